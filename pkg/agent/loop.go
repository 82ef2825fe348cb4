package agent

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Jeongsoo1975/AutoCrawlingUsingLLM/pkg/browser"
	"github.com/Jeongsoo1975/AutoCrawlingUsingLLM/pkg/llm"
	"github.com/Jeongsoo1975/AutoCrawlingUsingLLM/pkg/search"
)

// Session states.
type State string

const (
	StateInit       State = "INIT"
	StateRunning    State = "RUNNING"
	StateFinalizing State = "FINALIZING"
	StateExhausted  State = "EXHAUSTED"
	StateFailed     State = "FAILED"
	StateClosed     State = "CLOSED"
)

// Terminal reasons reported on the session outcome.
type TerminalReason string

const (
	ReasonFinalized TerminalReason = "finalized"
	ReasonExhausted TerminalReason = "exhausted"
	ReasonFailed    TerminalReason = "failed"
)

// Output filename prefixes per exit path.
const (
	prefixFull     = "blogs"
	prefixPartial  = "blogs_partial"
	prefixURLsOnly = "blogs_urls_only"
)

// SessionOutcome is the final report for one keyword session.
type SessionOutcome struct {
	Keyword         string
	Records         []Record
	Reason          TerminalReason
	Turns           int
	OutputPath      string
	TargetMet       bool
	QualityScore    float64
	Recommendations string
}

// RecordWriter persists collected records. Implementations return the path
// of the written artifact.
type RecordWriter interface {
	Write(records []Record, prefix string) (string, error)
}

// LoopConfig carries the loop-level knobs.
type LoopConfig struct {
	MaxTurns       int
	MinimumRecords int
	LLMOptions     llm.Options
}

// Loop drives one research session: it alternates reasoning-service turns
// with tool dispatch until a stopping condition, then persists whatever was
// collected. Single-threaded by design; conversation and store mutations
// happen in strict turn order.
type Loop struct {
	client      llm.Client
	interpreter *Interpreter
	dispatcher  *Dispatcher
	store       *Store
	session     *browser.Session
	writer      RecordWriter
	cfg         LoopConfig
	logger      *logrus.Logger
}

// NewLoop wires a session loop.
func NewLoop(client llm.Client, dispatcher *Dispatcher, store *Store, session *browser.Session, writer RecordWriter, cfg LoopConfig, logger *logrus.Logger) *Loop {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = 20
	}
	return &Loop{
		client:      client,
		interpreter: NewInterpreter(logger),
		dispatcher:  dispatcher,
		store:       store,
		session:     session,
		writer:      writer,
		cfg:         cfg,
		logger:      logger,
	}
}

// Run executes one session for keyword. The returned outcome always carries
// a terminal reason and the collected record count, even on failure.
func (l *Loop) Run(ctx context.Context, keyword string) (outcome *SessionOutcome, err error) {
	requestID := "req-" + uuid.New().String()[:8]
	log := l.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"keyword":    keyword,
	})

	state := StateInit
	conv := NewConversation(SystemPrompt(l.cfg.MinimumRecords), UserPrompt(keyword))
	l.dispatcher.SetKeyword(keyword)

	if acquireErr := l.session.Acquire(ctx); acquireErr != nil {
		// Deferred to first tool use; the session retries the start.
		log.WithError(acquireErr).Warn("Browser initialization failed, continuing without it")
	}
	// The one hard resource invariant: the browser is released exactly
	// once on every exit path, including panics.
	defer l.session.Release(true)

	outcome = &SessionOutcome{Keyword: keyword, Reason: ReasonFailed}
	var searchHits []search.Result

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Session failed with unexpected error")
			l.finish(log, StateFailed, outcome, searchHits)
			err = fmt.Errorf("session for %q failed: %v", keyword, r)
		}
		log.WithFields(logrus.Fields{
			"state":   StateClosed,
			"records": len(outcome.Records),
			"reason":  outcome.Reason,
		}).Info("Session closed")
	}()

	state = StateRunning
	log.WithField("max_turns", l.cfg.MaxTurns).Info("Session started")

	finalized := false
	for turn := 1; turn <= l.cfg.MaxTurns && state == StateRunning; turn++ {
		outcome.Turns = turn
		turnLog := log.WithField("turn", turn)

		resp, chatErr := l.client.Chat(ctx, llm.ChatRequest{
			Messages: conv.Messages(),
			Tools:    ToolSpecs(),
			Options:  l.cfg.LLMOptions,
		})
		if chatErr != nil {
			turnLog.WithError(chatErr).Warn("Reasoning call failed, skipping turn")
			continue
		}

		invocations := l.interpreter.Interpret(resp.Message, l.dispatcher.LastFetchedURL())
		conv.AppendAssistant(resp.Message.Content, invocations)

		if len(invocations) == 0 {
			if l.store.Len() == 0 {
				turnLog.Debug("No invocations and nothing collected yet, continuing")
				continue
			}
			turnLog.Info("No further tool requests, stopping")
			state = StateFinalizing
			break
		}

		for _, inv := range invocations {
			result := l.dispatcher.Dispatch(ctx, inv)
			conv.AppendToolResult(result)

			if inv.Name == ToolSearch && result.IsSuccess() {
				if hits, ok := result.Payload["results"].([]search.Result); ok {
					searchHits = append(searchHits, hits...)
				}
			}
			if inv.Name == ToolFinalize && result.IsSuccess() {
				finalized = true
				if score, ok := inv.Arguments["quality_score"].(float64); ok {
					outcome.QualityScore = score
				}
				outcome.Recommendations = stringArg(inv.Arguments, "recommendations")
			}
		}
		// Completion phrases in the text are advisory only; invocations
		// dispatched this turn always run first, and only an accepted
		// finalize ends the session here.
		if finalized {
			state = StateFinalizing
		}
	}

	if state == StateRunning {
		state = StateExhausted
		log.WithField("turns", outcome.Turns).Warn("Turn cap reached")
	}

	outcome.TargetMet = l.store.Len() >= l.cfg.MinimumRecords
	l.finish(log, state, outcome, searchHits)
	return outcome, nil
}

// finish applies the terminal persistence policy for the exit state.
func (l *Loop) finish(log *logrus.Entry, state State, outcome *SessionOutcome, searchHits []search.Result) {
	outcome.Records = l.store.Records()

	switch state {
	case StateFinalizing:
		outcome.Reason = ReasonFinalized
		if len(outcome.Records) == 0 {
			log.Info("Nothing collected, nothing to persist")
			return
		}
		l.persist(log, outcome, prefixFull)
	case StateExhausted, StateFailed:
		if state == StateExhausted {
			outcome.Reason = ReasonExhausted
		} else {
			outcome.Reason = ReasonFailed
		}
		if len(outcome.Records) > 0 {
			l.persist(log, outcome, prefixPartial)
			return
		}
		placeholders := l.salvageRecords(searchHits, outcome.Keyword)
		if len(placeholders) == 0 {
			log.Info("No records and no search hits to salvage")
			return
		}
		outcome.Records = placeholders
		log.WithField("count", len(placeholders)).Info("Persisting placeholder records for bare URLs")
		l.persist(log, outcome, prefixURLsOnly)
	}
}

// salvageRecords builds placeholder records for search hits that never made
// it through extraction.
func (l *Loop) salvageRecords(hits []search.Result, keyword string) []Record {
	var records []Record
	seen := map[string]bool{}
	for _, hit := range hits {
		if hit.URL == "" || seen[hit.URL] || l.store.HasURL(hit.URL) {
			continue
		}
		seen[hit.URL] = true
		records = append(records, PlaceholderRecord(hit.URL, keyword))
	}
	return records
}

func (l *Loop) persist(log *logrus.Entry, outcome *SessionOutcome, prefix string) {
	path, err := l.writer.Write(outcome.Records, prefix)
	if err != nil {
		log.WithError(err).Error("Failed to persist records")
		return
	}
	outcome.OutputPath = path
	log.WithFields(logrus.Fields{
		"path":    path,
		"records": len(outcome.Records),
	}).Info("Records persisted")
}
