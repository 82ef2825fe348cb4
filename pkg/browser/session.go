package browser

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Session wraps a Controller in a reference-counted lifecycle. The
// underlying browser starts on the first acquisition and is torn down when
// the count returns to zero or a forced release is requested. The count
// never goes negative.
type Session struct {
	mu      sync.Mutex
	users   int
	started bool
	ctrl    Controller
	logger  *logrus.Logger
}

// NewSession wraps ctrl. The controller is not started until first use.
func NewSession(ctrl Controller, logger *logrus.Logger) *Session {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Session{ctrl: ctrl, logger: logger}
}

// Acquire registers a user and lazily starts the browser. A start failure
// leaves the user registered; Browse will retry the start.
func (s *Session) Acquire(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users++
	s.logger.WithField("users", s.users).Debug("Browser session acquired")
	return s.ensureStartedLocked(ctx)
}

// Browse executes one operation, starting the browser first if needed.
func (s *Session) Browse(ctx context.Context, req Request) *Snapshot {
	s.mu.Lock()
	if err := s.ensureStartedLocked(ctx); err != nil {
		s.mu.Unlock()
		return &Snapshot{
			Status:       StatusError,
			FinalURL:     req.URL,
			ErrorMessage: "browser could not be started: " + err.Error(),
		}
	}
	s.mu.Unlock()

	return s.ctrl.Browse(ctx, req)
}

// Release unregisters a user. The browser is closed when no users remain or
// force is set. Releasing more times than acquired clamps the count at zero
// rather than going negative.
func (s *Session) Release(force bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users--
	if s.users < 0 {
		s.logger.Warn("Browser session released more times than acquired")
		s.users = 0
	}

	if s.users > 0 && !force {
		s.logger.WithField("users", s.users).Debug("Browser session still in use")
		return
	}
	if force {
		s.users = 0
	}
	if !s.started {
		return
	}
	s.started = false
	if err := s.ctrl.Close(); err != nil {
		s.logger.WithError(err).Warn("Browser close failed")
		return
	}
	s.logger.Debug("Browser session closed")
}

// Users reports the current reference count.
func (s *Session) Users() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users
}

func (s *Session) ensureStartedLocked(ctx context.Context) error {
	if s.started {
		return nil
	}
	if err := s.ctrl.Start(ctx); err != nil {
		return err
	}
	s.started = true
	return nil
}
