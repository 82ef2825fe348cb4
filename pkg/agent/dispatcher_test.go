package agent

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jeongsoo1975/AutoCrawlingUsingLLM/pkg/browser"
	"github.com/Jeongsoo1975/AutoCrawlingUsingLLM/pkg/llm"
	"github.com/Jeongsoo1975/AutoCrawlingUsingLLM/pkg/search"
)

type dispatcherFixture struct {
	dispatcher *Dispatcher
	store      *Store
	searcher   *search.MockSearcher
	controller *browser.MockController
	client     *llm.MockClient
}

func newDispatcherFixture(pageText string, responses ...*llm.ChatResponse) *dispatcherFixture {
	controller := &browser.MockController{
		BrowseFunc: func(req browser.Request) *browser.Snapshot {
			return &browser.Snapshot{
				Status:          browser.StatusSuccess,
				FinalURL:        req.URL,
				PageTitle:       "Page",
				ActionPerformed: string(req.Action),
				Data:            browser.PageData{TextContent: pageText},
			}
		},
	}
	searcher := &search.MockSearcher{
		Results: []search.Result{
			{Title: "First", URL: "https://example.com/blog1", Snippet: "a blog"},
		},
	}
	client := &llm.MockClient{Responses: responses}
	store := NewStore()

	d := NewDispatcher(searcher, browser.NewSession(controller, nil), client, store, DispatcherConfig{
		AutoExtract:     true,
		AutoExtractSize: 5000,
		BrowserTimeout:  time.Second,
	}, nil)
	d.SetKeyword("tea")

	return &dispatcherFixture{dispatcher: d, store: store, searcher: searcher, controller: controller, client: client}
}

func goodPageText() string {
	return strings.Repeat("This blog writes about tea ceremonies and brewing technique. ", 10)
}

func extractionJSON() *llm.ChatResponse {
	return llm.TextResponse(`{"blog_name": "Test Blog", "recent_post_date": "2026-08-01", "llm_summary": "Tea blog."}`)
}

func TestClassifyContent(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"empty", "", QualityEmpty},
		{"one char", "x", QualityVeryShort},
		{"ninety nine chars", strings.Repeat("x", 99), QualityVeryShort},
		{"hundred chars", strings.Repeat("x", 100), QualityShort},
		{"just under good", strings.Repeat("x", 299), QualityShort},
		{"good", strings.Repeat("x", 300), QualityGood},
		{"long", strings.Repeat("x", 5000), QualityGood},
		// Multi-byte text counts characters, not bytes: 40 Hangul
		// syllables are 120 bytes but still a very short page.
		{"forty hangul chars", strings.Repeat("한", 40), QualityVeryShort},
		{"hundred hangul chars", strings.Repeat("한", 100), QualityShort},
		{"three hundred hangul chars", strings.Repeat("한", 300), QualityGood},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyContent(tt.text))
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", truncateRunes("abc", 5))
	assert.Equal(t, "ab", truncateRunes("abc", 2))

	got := truncateRunes(strings.Repeat("한", 2000), 1000)
	assert.Equal(t, 1000, utf8.RuneCountInString(got))
	assert.True(t, utf8.ValidString(got), "truncation must not split a UTF-8 sequence")
}

func TestDispatch_UnknownTool(t *testing.T) {
	f := newDispatcherFixture("")
	res := f.dispatcher.Dispatch(context.Background(), ToolInvocation{ID: "call_1", Name: "nonsense_tool", Arguments: map[string]any{}})

	require.NotNil(t, res)
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, "call_1", res.InvocationID)
	assert.Contains(t, res.Message, "unknown tool")
}

func TestDispatch_SearchMissingKeyword(t *testing.T) {
	f := newDispatcherFixture("")
	res := f.dispatcher.Dispatch(context.Background(), ToolInvocation{ID: "call_1", Name: ToolSearch, Arguments: map[string]any{}})

	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.Message, "keyword")
	assert.Empty(t, f.searcher.Keywords, "searcher must not be contacted")
}

func TestDispatch_SearchSuccess(t *testing.T) {
	f := newDispatcherFixture("")
	res := f.dispatcher.Dispatch(context.Background(), ToolInvocation{ID: "call_1", Name: ToolSearch, Arguments: map[string]any{"keyword": "tea"}})

	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 1, res.Payload["count"])
	hits, ok := res.Payload["results"].([]search.Result)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/blog1", hits[0].URL)
}

func TestDispatch_FetchRejectsNonHTTPURL(t *testing.T) {
	f := newDispatcherFixture(goodPageText())
	res := f.dispatcher.Dispatch(context.Background(), ToolInvocation{ID: "call_1", Name: ToolFetch, Arguments: map[string]any{"url": "ftp://example.com"}})

	assert.Equal(t, StatusError, res.Status)
	assert.Empty(t, f.controller.Requests, "browser must not be contacted for a bad URL")
}

func TestDispatch_FetchEmptyContent(t *testing.T) {
	f := newDispatcherFixture("")
	res := f.dispatcher.Dispatch(context.Background(), ToolInvocation{ID: "call_1", Name: ToolFetch, Arguments: map[string]any{"url": "https://example.com"}})

	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, QualityEmpty, res.Payload["content_quality"])
	assert.Contains(t, res.Message, "Warning")
	assert.Empty(t, f.client.Requests, "no auto-extraction for empty content")
	assert.Equal(t, 0, f.store.Len())
}

func TestDispatch_FetchWhitespaceOnlyContent(t *testing.T) {
	f := newDispatcherFixture("  \n\t  \n  ")
	res := f.dispatcher.Dispatch(context.Background(), ToolInvocation{ID: "call_1", Name: ToolFetch, Arguments: map[string]any{"url": "https://example.com"}})

	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, QualityEmpty, res.Payload["content_quality"], "whitespace-only pages carry no text")
	assert.Empty(t, f.client.Requests)
}

func TestDispatch_FetchHangulContentClassifiedByCharacters(t *testing.T) {
	// 40 syllables, 120 bytes. Still a very short page.
	f := newDispatcherFixture(strings.Repeat("한", 40))
	res := f.dispatcher.Dispatch(context.Background(), ToolInvocation{ID: "call_1", Name: ToolFetch, Arguments: map[string]any{"url": "https://example.com"}})

	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, QualityVeryShort, res.Payload["content_quality"])
	assert.Contains(t, res.Message, "40 characters")
	assert.Empty(t, f.client.Requests)
}

func TestDispatch_FetchShortContentWarns(t *testing.T) {
	f := newDispatcherFixture(strings.Repeat("x", 150))
	res := f.dispatcher.Dispatch(context.Background(), ToolInvocation{ID: "call_1", Name: ToolFetch, Arguments: map[string]any{"url": "https://example.com"}})

	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, QualityShort, res.Payload["content_quality"])
	assert.Contains(t, res.Message, "Warning")
	assert.Empty(t, f.client.Requests)
}

func TestDispatch_FetchGoodContentAutoExtracts(t *testing.T) {
	f := newDispatcherFixture(goodPageText(), extractionJSON())
	res := f.dispatcher.Dispatch(context.Background(), ToolInvocation{ID: "call_1", Name: ToolFetch, Arguments: map[string]any{"url": "https://example.com/blog1"}})

	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, QualityGood, res.Payload["content_quality"])
	require.Len(t, f.client.Requests, 1, "exactly one auto-extraction attempt")
	require.Equal(t, 1, f.store.Len())

	rec := f.store.Records()[0]
	assert.Equal(t, "Test Blog", rec.Name)
	assert.Equal(t, "example_com_testblog", rec.ID)
	assert.Equal(t, "tea", rec.SourceKeyword)
}

func TestDispatch_FetchAutoExtractBoundsText(t *testing.T) {
	long := strings.Repeat("a", 9000)
	f := newDispatcherFixture(long, extractionJSON())
	f.dispatcher.Dispatch(context.Background(), ToolInvocation{ID: "call_1", Name: ToolFetch, Arguments: map[string]any{"url": "https://example.com"}})

	require.Len(t, f.client.Requests, 1)
	prompt := f.client.Requests[0].Messages[0].Content
	assert.Less(t, strings.Count(prompt, "a"), 6000, "auto-extraction text must be bounded to the first 5000 characters")
}

func TestDispatch_FetchAutoExtractKeepsValidUTF8(t *testing.T) {
	long := strings.Repeat("한", 9000)
	f := newDispatcherFixture(long, extractionJSON())
	f.dispatcher.Dispatch(context.Background(), ToolInvocation{ID: "call_1", Name: ToolFetch, Arguments: map[string]any{"url": "https://example.com"}})

	require.Len(t, f.client.Requests, 1)
	prompt := f.client.Requests[0].Messages[0].Content
	assert.True(t, utf8.ValidString(prompt), "bounded excerpt must not split a UTF-8 sequence")
	assert.Equal(t, 5000, strings.Count(prompt, "한"), "excerpt is bounded in characters, not bytes")
}

func TestDispatch_FetchAutoExtractDisabled(t *testing.T) {
	f := newDispatcherFixture(goodPageText())
	f.dispatcher.cfg.AutoExtract = false

	res := f.dispatcher.Dispatch(context.Background(), ToolInvocation{ID: "call_1", Name: ToolFetch, Arguments: map[string]any{"url": "https://example.com"}})
	require.Equal(t, StatusSuccess, res.Status)
	assert.Empty(t, f.client.Requests)
	assert.Equal(t, 0, f.store.Len())
}

func TestDispatch_FetchBrowserFailure(t *testing.T) {
	f := newDispatcherFixture("")
	f.controller.BrowseFunc = func(req browser.Request) *browser.Snapshot {
		return &browser.Snapshot{Status: browser.StatusError, ErrorMessage: "navigation timeout"}
	}

	res := f.dispatcher.Dispatch(context.Background(), ToolInvocation{ID: "call_1", Name: ToolFetch, Arguments: map[string]any{"url": "https://example.com"}})
	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.Message, "navigation timeout")
}

func TestDispatch_ExtractRejectsShortText(t *testing.T) {
	f := newDispatcherFixture("")
	res := f.dispatcher.Dispatch(context.Background(), ToolInvocation{
		ID:   "call_1",
		Name: ToolExtract,
		Arguments: map[string]any{
			"text_content": "too short",
			"original_url": "https://example.com",
		},
	})

	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.Message, "too short")
	assert.Equal(t, 0, f.store.Len(), "rejected extraction must not touch the store")
	assert.Empty(t, f.client.Requests)
}

func TestDispatch_ExtractFloorCountsCharacters(t *testing.T) {
	// 49 syllables are 147 bytes but still below the 50-character floor.
	f := newDispatcherFixture("")
	res := f.dispatcher.Dispatch(context.Background(), ToolInvocation{
		ID:   "call_1",
		Name: ToolExtract,
		Arguments: map[string]any{
			"text_content": strings.Repeat("한", 49),
			"original_url": "https://example.com",
		},
	})

	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.Message, "49 characters")
	assert.Equal(t, 0, f.store.Len())
}

func TestDispatch_ExtractSuccess(t *testing.T) {
	f := newDispatcherFixture("", extractionJSON())
	res := f.dispatcher.Dispatch(context.Background(), ToolInvocation{
		ID:   "call_1",
		Name: ToolExtract,
		Arguments: map[string]any{
			"text_content": goodPageText(),
			"original_url": "https://example.com/blog1",
		},
	})

	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "example_com_testblog", res.Payload["blog_id"])
	assert.Equal(t, 1, f.store.Len())
}

func TestDispatch_ExtractAcceptsURLAlias(t *testing.T) {
	f := newDispatcherFixture("", extractionJSON())
	res := f.dispatcher.Dispatch(context.Background(), ToolInvocation{
		ID:   "call_1",
		Name: ToolExtract,
		Arguments: map[string]any{
			"text_content": goodPageText(),
			"url":          "https://example.com/blog1",
		},
	})

	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 1, f.store.Len())
}

func TestDispatch_ExtractDuplicateReported(t *testing.T) {
	f := newDispatcherFixture("", extractionJSON(), extractionJSON())
	args := map[string]any{
		"text_content": goodPageText(),
		"original_url": "https://example.com/blog1",
	}

	first := f.dispatcher.Dispatch(context.Background(), ToolInvocation{ID: "call_1", Name: ToolExtract, Arguments: args})
	second := f.dispatcher.Dispatch(context.Background(), ToolInvocation{ID: "call_2", Name: ToolExtract, Arguments: args})

	require.Equal(t, StatusSuccess, first.Status)
	require.Equal(t, StatusSuccess, second.Status)
	assert.Equal(t, true, second.Payload["duplicate"])
	assert.Equal(t, 1, f.store.Len())
}

func TestDispatch_ExtractUndecodableOutput(t *testing.T) {
	f := newDispatcherFixture("", llm.TextResponse("I am sorry, I cannot do that."))
	res := f.dispatcher.Dispatch(context.Background(), ToolInvocation{
		ID:   "call_1",
		Name: ToolExtract,
		Arguments: map[string]any{
			"text_content": goodPageText(),
			"original_url": "https://example.com/blog1",
		},
	})

	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.Message, "try again")
	assert.Equal(t, 0, f.store.Len())
}

func TestDispatch_Finalize(t *testing.T) {
	f := newDispatcherFixture("", extractionJSON())
	f.dispatcher.Dispatch(context.Background(), ToolInvocation{
		ID:   "call_1",
		Name: ToolExtract,
		Arguments: map[string]any{
			"text_content": goodPageText(),
			"original_url": "https://example.com/blog1",
		},
	})

	res := f.dispatcher.Dispatch(context.Background(), ToolInvocation{
		ID:   "call_2",
		Name: ToolFinalize,
		Arguments: map[string]any{
			"collected_blogs_summary": "one blog",
			"all_tasks_completed":     true,
		},
	})

	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 1, res.Payload["collected"])
	assert.Equal(t, true, res.Payload["all_tasks_completed"])
}

func TestDispatch_DecodeWarningAttached(t *testing.T) {
	f := newDispatcherFixture("")
	res := f.dispatcher.Dispatch(context.Background(), ToolInvocation{
		ID:            "call_1",
		Name:          ToolSearch,
		Arguments:     map[string]any{},
		DecodeWarning: "tool arguments could not be decoded and were treated as empty",
	})

	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.Message, "could not be decoded")
}

func TestDispatch_LastFetchedURLTracked(t *testing.T) {
	f := newDispatcherFixture(goodPageText(), extractionJSON())
	assert.Empty(t, f.dispatcher.LastFetchedURL())

	f.dispatcher.Dispatch(context.Background(), ToolInvocation{ID: "call_1", Name: ToolFetch, Arguments: map[string]any{"url": "https://example.com/blog1"}})
	assert.Equal(t, "https://example.com/blog1", f.dispatcher.LastFetchedURL())
}
