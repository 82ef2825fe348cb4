package main

import (
	"os"

	"github.com/Jeongsoo1975/AutoCrawlingUsingLLM/cmd"
)

func main() {
	if err := cmd.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
