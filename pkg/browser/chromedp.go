package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// ChromeController is a chromedp-backed Controller. One browser process is
// shared; each Browse runs in a fresh tab.
type ChromeController struct {
	headless    bool
	logger      *logrus.Logger
	browserCtx  context.Context
	cancelAlloc context.CancelFunc
	cancelCtx   context.CancelFunc
}

var _ Controller = &ChromeController{}

// NewChromeController builds an unstarted controller.
func NewChromeController(headless bool, logger *logrus.Logger) *ChromeController {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ChromeController{headless: headless, logger: logger}
}

// Start launches the browser process.
func (c *ChromeController) Start(ctx context.Context) error {
	if c.browserCtx != nil {
		return nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelCtx := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx); err != nil {
		cancelCtx()
		cancelAlloc()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	c.browserCtx = browserCtx
	c.cancelAlloc = cancelAlloc
	c.cancelCtx = cancelCtx
	c.logger.WithField("headless", c.headless).Info("Browser started")
	return nil
}

// Browse navigates to the requested URL, performs the optional interaction,
// and extracts visible text. Page failures come back in the snapshot.
func (c *ChromeController) Browse(ctx context.Context, req Request) *Snapshot {
	if c.browserCtx == nil {
		if err := c.Start(ctx); err != nil {
			return &Snapshot{Status: StatusError, FinalURL: req.URL, ErrorMessage: err.Error()}
		}
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	tabCtx, cancelTab := chromedp.NewContext(c.browserCtx)
	defer cancelTab()
	runCtx, cancelRun := context.WithTimeout(tabCtx, timeout)
	defer cancelRun()

	selector := req.Selector
	if selector == "" {
		selector = "body"
	}

	tasks := chromedp.Tasks{chromedp.Navigate(req.URL)}
	actionPerformed := string(ActionExtractText)
	switch req.Action {
	case ActionClick:
		tasks = append(tasks, chromedp.Click(selector, chromedp.ByQuery))
		actionPerformed = string(ActionClick)
	case ActionType:
		tasks = append(tasks, chromedp.SendKeys(selector, req.InputText, chromedp.ByQuery))
		actionPerformed = string(ActionType)
	}

	var text, title, finalURL string
	tasks = append(tasks,
		chromedp.Title(&title),
		chromedp.Location(&finalURL),
		chromedp.Text("body", &text, chromedp.ByQuery),
	)

	if err := chromedp.Run(runCtx, tasks); err != nil {
		c.logger.WithFields(logrus.Fields{
			"url":   req.URL,
			"error": err,
		}).Warn("Browser operation failed")
		return &Snapshot{
			Status:          StatusError,
			FinalURL:        req.URL,
			ActionPerformed: actionPerformed,
			ErrorMessage:    err.Error(),
		}
	}

	return &Snapshot{
		Status:          StatusSuccess,
		FinalURL:        finalURL,
		PageTitle:       title,
		ActionPerformed: actionPerformed,
		Data: PageData{
			TextContent:  text,
			UsedSelector: selector,
		},
	}
}

// Close tears down the browser process. Safe to call when never started.
func (c *ChromeController) Close() error {
	if c.browserCtx == nil {
		return nil
	}
	c.cancelCtx()
	c.cancelAlloc()
	c.browserCtx = nil
	c.cancelCtx = nil
	c.cancelAlloc = nil
	c.logger.Info("Browser closed")
	return nil
}
