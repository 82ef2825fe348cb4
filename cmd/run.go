package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Jeongsoo1975/AutoCrawlingUsingLLM/pkg/agent"
	"github.com/Jeongsoo1975/AutoCrawlingUsingLLM/pkg/browser"
	"github.com/Jeongsoo1975/AutoCrawlingUsingLLM/pkg/config"
	"github.com/Jeongsoo1975/AutoCrawlingUsingLLM/pkg/llm"
	"github.com/Jeongsoo1975/AutoCrawlingUsingLLM/pkg/logging"
	"github.com/Jeongsoo1975/AutoCrawlingUsingLLM/pkg/search"
	"github.com/Jeongsoo1975/AutoCrawlingUsingLLM/pkg/writer"
)

func newRunCommand() *cobra.Command {
	var (
		model        string
		outputDir    string
		outputFormat string
		maxTurns     int
		noHeadless   bool
	)

	cmd := &cobra.Command{
		Use:   "run [keywords...]",
		Short: "Run one research session per keyword",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if model != "" {
				cfg.LLM.Model = model
			}
			if outputDir != "" {
				cfg.Output.Directory = outputDir
			}
			if outputFormat != "" {
				cfg.Output.Format = outputFormat
			}
			if maxTurns > 0 {
				cfg.Agent.MaxTurns = maxTurns
			}
			if noHeadless {
				cfg.Browser.Headless = false
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			if !isatty.IsTerminal(os.Stdout.Fd()) {
				color.NoColor = true
			}

			logger := logging.New(cfg.LogLevel)
			client := llm.NewOllamaClient(cfg.LLM.Host, cfg.LLM.Model, cfg.LLM.RequestTimeout, logger)
			searcher := search.NewDuckDuckGoSearcher(cfg.Search.MaxResults, cfg.Search.Timeout, cfg.Search.Region, logger)
			controller := browser.NewChromeController(cfg.Browser.Headless, logger)
			recordWriter := writer.New(cfg.Output.Directory, cfg.Output.Format, logger)

			llmOptions := llm.Options{
				Temperature: cfg.LLM.Temperature,
				NumCtx:      cfg.LLM.NumCtx,
				MaxTokens:   cfg.LLM.MaxTokens,
			}

			exitErr := false
			for _, keyword := range args {
				session := browser.NewSession(controller, logger)
				store := agent.NewStore()
				dispatcher := agent.NewDispatcher(searcher, session, client, store, agent.DispatcherConfig{
					AutoExtract:     cfg.Agent.AutoExtract,
					AutoExtractSize: cfg.Agent.AutoExtractSize,
					BrowserTimeout:  cfg.Browser.CallTimeout,
					LLMOptions:      llmOptions,
				}, logger)
				loop := agent.NewLoop(client, dispatcher, store, session, recordWriter, agent.LoopConfig{
					MaxTurns:       cfg.Agent.MaxTurns,
					MinimumRecords: cfg.Agent.MinimumRecords,
					LLMOptions:     llmOptions,
				}, logger)

				outcome, err := loop.Run(cmd.Context(), keyword)
				if err != nil {
					exitErr = true
				}
				printOutcome(cmd, outcome)
			}

			if exitErr {
				return fmt.Errorf("one or more sessions failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "reasoning model name (overrides config)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "directory for output files")
	cmd.Flags().StringVar(&outputFormat, "output-format", "", "output format: csv or xlsx")
	cmd.Flags().IntVar(&maxTurns, "max-turns", 0, "maximum reasoning turns per session")
	cmd.Flags().BoolVar(&noHeadless, "no-headless", false, "show the browser window")
	return cmd
}

func printOutcome(cmd *cobra.Command, outcome *agent.SessionOutcome) {
	if outcome == nil {
		return
	}

	header := color.New(color.Bold)
	header.Fprintf(cmd.OutOrStdout(), "\n%s\n", outcome.Keyword)

	status := color.GreenString(string(outcome.Reason))
	switch outcome.Reason {
	case agent.ReasonExhausted:
		status = color.YellowString(string(outcome.Reason))
	case agent.ReasonFailed:
		status = color.RedString(string(outcome.Reason))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "  outcome: %s after %d turns\n", status, outcome.Turns)
	fmt.Fprintf(cmd.OutOrStdout(), "  records: %d", len(outcome.Records))
	if outcome.TargetMet {
		fmt.Fprintf(cmd.OutOrStdout(), " %s", color.GreenString("(target met)"))
	}
	fmt.Fprintln(cmd.OutOrStdout())
	if outcome.OutputPath != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "  output:  %s\n", outcome.OutputPath)
	}
	if outcome.Recommendations != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "  notes:   %s\n", outcome.Recommendations)
	}
}
