package agent

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/Jeongsoo1975/AutoCrawlingUsingLLM/pkg/browser"
	"github.com/Jeongsoo1975/AutoCrawlingUsingLLM/pkg/llm"
	"github.com/Jeongsoo1975/AutoCrawlingUsingLLM/pkg/search"
)

// MinExtractionLength is the shortest text the extract tool will accept.
const MinExtractionLength = 50

// Content quality bands assigned to fetched page text.
const (
	QualityEmpty     = "empty"
	QualityVeryShort = "very_short"
	QualityShort     = "short"
	QualityGood      = "good"
)

// ClassifyContent assigns the quality band for a text. Thresholds count
// characters, not bytes; the content being crawled is routinely multi-byte.
func ClassifyContent(text string) string {
	switch n := utf8.RuneCountInString(text); {
	case n == 0:
		return QualityEmpty
	case n < 100:
		return QualityVeryShort
	case n < 300:
		return QualityShort
	default:
		return QualityGood
	}
}

// truncateRunes caps s at n characters without splitting a UTF-8 sequence.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// DispatcherConfig carries the dispatch-time knobs.
type DispatcherConfig struct {
	// AutoExtract enables the fetch handler's synchronous extraction of
	// good content. The reasoning service routinely fetches a page and
	// forgets to request extraction; this step compensates.
	AutoExtract bool
	// AutoExtractSize bounds the text passed to auto-extraction.
	AutoExtractSize int
	// BrowserTimeout bounds each browser operation.
	BrowserTimeout time.Duration
	// LLMOptions are used for extraction requests.
	LLMOptions llm.Options
}

// Dispatcher executes tool invocations against the external collaborators
// and the shared record store. Every invocation yields exactly one result.
type Dispatcher struct {
	searcher search.Searcher
	session  *browser.Session
	client   llm.Client
	store    *Store
	cfg      DispatcherConfig
	logger   *logrus.Logger

	keyword        string
	lastFetchedURL string
}

// NewDispatcher wires a dispatcher for one session.
func NewDispatcher(searcher search.Searcher, session *browser.Session, client llm.Client, store *Store, cfg DispatcherConfig, logger *logrus.Logger) *Dispatcher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.AutoExtractSize <= 0 {
		cfg.AutoExtractSize = 5000
	}
	return &Dispatcher{
		searcher: searcher,
		session:  session,
		client:   client,
		store:    store,
		cfg:      cfg,
		logger:   logger,
	}
}

// SetKeyword records the session keyword used for record provenance.
func (d *Dispatcher) SetKeyword(keyword string) {
	d.keyword = keyword
}

// LastFetchedURL returns the URL of the most recent successful fetch, used
// by the interpreter's extract fallback.
func (d *Dispatcher) LastFetchedURL() string {
	return d.lastFetchedURL
}

// Dispatch executes one invocation. It never returns nil; every expected
// failure becomes an error result.
func (d *Dispatcher) Dispatch(ctx context.Context, inv ToolInvocation) *ToolResult {
	log := d.logger.WithFields(logrus.Fields{
		"tool":    inv.Name,
		"call_id": inv.ID,
		"origin":  inv.Origin,
	})
	log.Info("Dispatching tool invocation")

	var result *ToolResult
	switch inv.Name {
	case ToolSearch:
		result = d.handleSearch(ctx, inv)
	case ToolFetch:
		result = d.handleFetch(ctx, inv)
	case ToolExtract:
		result = d.handleExtract(ctx, inv)
	case ToolFinalize:
		result = d.handleFinalize(inv)
	default:
		log.Warn("Rejecting unknown tool")
		result = errorResult(inv.ID, fmt.Sprintf("%v: %q is not an available tool", ErrUnknownTool, inv.Name))
	}

	if inv.DecodeWarning != "" {
		result.Message = strings.TrimSpace(result.Message + " (" + inv.DecodeWarning + ")")
	}
	return result
}

func (d *Dispatcher) handleSearch(ctx context.Context, inv ToolInvocation) *ToolResult {
	keyword := stringArg(inv.Arguments, "keyword")
	if keyword == "" {
		return errorResult(inv.ID, fmt.Sprintf("%v: %s requires a \"keyword\" argument", ErrMissingArgument, ToolSearch))
	}

	results, err := d.searcher.Search(ctx, keyword)
	if err != nil {
		return errorResult(inv.ID, fmt.Sprintf("search for %q failed: %v", keyword, err))
	}

	return &ToolResult{
		InvocationID: inv.ID,
		Status:       StatusSuccess,
		Payload: map[string]any{
			"results": results,
			"count":   len(results),
		},
		Message: fmt.Sprintf("Found %d results for %q.", len(results), keyword),
	}
}

func (d *Dispatcher) handleFetch(ctx context.Context, inv ToolInvocation) *ToolResult {
	url := stringArg(inv.Arguments, "url")
	if url == "" {
		return errorResult(inv.ID, fmt.Sprintf("%v: %s requires a \"url\" argument", ErrMissingArgument, ToolFetch))
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return errorResult(inv.ID, fmt.Sprintf("%v: got %q", ErrInvalidURL, url))
	}

	req := browser.Request{
		URL:     url,
		Action:  browser.ActionExtractText,
		Timeout: d.cfg.BrowserTimeout,
	}
	if details, ok := inv.Arguments["action_details"].(map[string]any); ok {
		if action := stringArg(details, "action"); action != "" {
			req.Action = browser.Action(action)
		}
		req.Selector = stringArg(details, "selector")
		req.InputText = stringArg(details, "input_text")
	}

	snap := d.session.Browse(ctx, req)
	if snap.Status != browser.StatusSuccess {
		return errorResult(inv.ID, fmt.Sprintf("fetch of %s failed: %s", url, snap.ErrorMessage))
	}
	d.lastFetchedURL = url

	text := strings.TrimSpace(snap.Data.TextContent)
	quality := ClassifyContent(text)
	payload := map[string]any{
		"final_url":        snap.FinalURL,
		"page_title":       snap.PageTitle,
		"action_performed": snap.ActionPerformed,
		"text_content":     text,
		"content_quality":  quality,
	}

	message := fmt.Sprintf("Fetched %s (%d characters, quality %s).", url, utf8.RuneCountInString(text), quality)
	switch quality {
	case QualityEmpty:
		message += " Warning: the page returned no text; try a different URL."
	case QualityVeryShort:
		message += " Warning: the text is very short and unlikely to contain blog details."
	case QualityShort:
		message += " Warning: the text is short; extracted fields may be incomplete."
	}

	if quality == QualityGood && d.cfg.AutoExtract {
		excerpt := truncateRunes(text, d.cfg.AutoExtractSize)
		rec, added, err := d.extractRecord(ctx, excerpt, url)
		switch {
		case err != nil:
			payload["auto_extraction"] = "failed: " + err.Error()
			message += " Automatic extraction failed; call " + ToolExtract + " with this text."
		case !added:
			payload["auto_extraction"] = "duplicate of " + rec.ID
			message += fmt.Sprintf(" This blog was already collected as %s.", rec.ID)
		default:
			payload["auto_extraction"] = "collected " + rec.ID
			message += fmt.Sprintf(" Extracted and stored record %s (%s).", rec.ID, rec.Name)
		}
	}

	return &ToolResult{
		InvocationID: inv.ID,
		Status:       StatusSuccess,
		Payload:      payload,
		Message:      message,
	}
}

func (d *Dispatcher) handleExtract(ctx context.Context, inv ToolInvocation) *ToolResult {
	text := stringArg(inv.Arguments, "text_content")
	url := stringArg(inv.Arguments, "original_url", "url")
	if url == "" {
		return errorResult(inv.ID, fmt.Sprintf("%v: %s requires an \"original_url\" argument", ErrMissingArgument, ToolExtract))
	}
	if text == "" {
		return errorResult(inv.ID, fmt.Sprintf("%v: fetch the page first and pass its text as \"text_content\"", ErrContentTooShort))
	}
	if n := utf8.RuneCountInString(text); n < MinExtractionLength {
		return errorResult(inv.ID, fmt.Sprintf("%v: got %d characters, need at least %d; fetch more of the page before extracting", ErrContentTooShort, n, MinExtractionLength))
	}

	rec, added, err := d.extractRecord(ctx, text, url)
	if err != nil {
		return errorResult(inv.ID, fmt.Sprintf("extraction for %s failed: %v; try again with cleaner page text", url, err))
	}
	if !added {
		return &ToolResult{
			InvocationID: inv.ID,
			Status:       StatusSuccess,
			Payload:      map[string]any{"blog_id": rec.ID, "duplicate": true},
			Message:      fmt.Sprintf("Blog %s was already collected; move on to the next candidate.", rec.ID),
		}
	}
	return &ToolResult{
		InvocationID: inv.ID,
		Status:       StatusSuccess,
		Payload: map[string]any{
			"blog_id":   rec.ID,
			"blog_name": rec.Name,
			"collected": d.store.Len(),
		},
		Message: fmt.Sprintf("Stored record %s (%s). %d collected so far.", rec.ID, rec.Name, d.store.Len()),
	}
}

func (d *Dispatcher) handleFinalize(inv ToolInvocation) *ToolResult {
	completed, _ := inv.Arguments["all_tasks_completed"].(bool)
	return &ToolResult{
		InvocationID: inv.ID,
		Status:       StatusSuccess,
		Payload: map[string]any{
			"collected":           d.store.Len(),
			"all_tasks_completed": completed,
		},
		Message: fmt.Sprintf("Collection finalized with %d records.", d.store.Len()),
	}
}

// extractRecord runs the single-shot extraction request against the
// reasoning service, decodes its output through the loose-object cascade,
// and appends the mapped record to the store.
func (d *Dispatcher) extractRecord(ctx context.Context, text, url string) (Record, bool, error) {
	resp, err := d.client.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: ExtractionPrompt(text, url)}},
		Options:  d.cfg.LLMOptions,
	})
	if err != nil {
		return Record{}, false, fmt.Errorf("extraction request failed: %w", err)
	}

	body := resp.Message.Content
	if fenced, ok := ExtractFencedObject(body); ok {
		body = fenced
	}
	fields, ok := ParseLooseObject(body)
	if !ok {
		return Record{}, false, fmt.Errorf("extraction output was not a decodable object")
	}

	rec := NewRecordFromFields(fields, url, d.keyword)
	added := d.store.Add(rec)
	d.logger.WithFields(logrus.Fields{
		"blog_id": rec.ID,
		"added":   added,
	}).Info("Extraction completed")
	return rec, added, nil
}

// stringArg returns the first non-empty string value among keys.
func stringArg(args map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := args[key].(string); ok {
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		}
	}
	return ""
}
