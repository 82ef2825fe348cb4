package agent

import (
	"fmt"
	"strings"
)

// SystemPrompt builds the session system turn. It states the workflow, the
// target fields, and the tool-use rules the dispatcher depends on.
func SystemPrompt(minimumRecords int) string {
	var b strings.Builder
	b.WriteString("You are an autonomous research agent that discovers blogs and extracts structured data about them using the provided tools.\n\n")
	b.WriteString("Workflow:\n")
	b.WriteString("1. Use " + ToolSearch + " to find candidate blogs for the keyword.\n")
	b.WriteString("2. Use " + ToolFetch + " to open promising result URLs and read their content.\n")
	b.WriteString("3. Whenever a fetch returns substantial text, immediately call " + ToolExtract + " with that text and the page URL.\n")
	b.WriteString("4. When enough blogs are collected, call " + ToolFinalize + " with a summary.\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Only use real URLs starting with http:// or https://.\n")
	b.WriteString("- Always request data processing through tool calls, never by writing JSON into your reply.\n")
	b.WriteString("- Target fields per blog: " + strings.Join(FieldColumns[1:], ", ") + ".\n")
	fmt.Fprintf(&b, "- Aim to collect at least %d blogs before finalizing.\n", minimumRecords)
	return b.String()
}

// UserPrompt builds the initial user turn for a keyword.
func UserPrompt(keyword string) string {
	return fmt.Sprintf("Research blogs for the keyword %q. Search, read the most promising results, extract the target fields for each blog, and finalize when done.", keyword)
}

// ExtractionPrompt builds the single-shot request used to turn page text
// into a field object. The response must be a bare JSON object; the decode
// cascade handles the cases where it is not.
func ExtractionPrompt(textContent, originalURL string) string {
	var b strings.Builder
	b.WriteString("Extract blog information from the page text below and respond with a single JSON object, no surrounding prose.\n\n")
	b.WriteString("Fields to extract (use the string \"" + Sentinel + "\" when a field cannot be determined):\n")
	b.WriteString("- blog_name: the blog or site title\n")
	b.WriteString("- blog_url: the page URL, use " + originalURL + "\n")
	b.WriteString("- recent_post_date: date of the most recent post (YYYY-MM-DD preferred)\n")
	b.WriteString("- first_post_date: date of the earliest post or the blog's start\n")
	b.WriteString("- total_posts: total post count, a number or approximate text\n")
	b.WriteString("- blog_creation_date: when the blog was created\n")
	b.WriteString("- average_visitors: visitor or traffic information\n")
	b.WriteString("- llm_summary: one or two sentences on what the blog covers\n\n")
	b.WriteString("Page URL: " + originalURL + "\n")
	b.WriteString("Page text:\n")
	b.WriteString(textContent)
	return b.String()
}
