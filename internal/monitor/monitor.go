package monitor

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"substackmon/internal/logging"
)

// ErrAlreadyRunning is returned by Start when a loop is already active.
var ErrAlreadyRunning = errors.New("monitor already running")

// ErrNotRunning is returned by Stop when no loop is active.
var ErrNotRunning = errors.New("monitor not running")

// Source provides the latest post locator and post text for the watched blog.
type Source interface {
	LatestPostURL(ctx context.Context) (string, error)
	PostText(ctx context.Context, postURL string) (string, error)
}

// Summarizer turns post text into an email-ready HTML summary. Blocked
// prompts are reported via summarizer.ErrBlocked.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Notifier delivers one HTML email to the configured recipients.
type Notifier interface {
	Deliver(ctx context.Context, subject, htmlBody string) error
}

// MarkerStore persists the last successfully delivered post URL.
type MarkerStore interface {
	LastProcessed(ctx context.Context) (string, error)
	RecordDelivery(ctx context.Context, postURL, subject, summary string) error
}

// WaitFunc suspends between cycles. It returns false when the wait was cut
// short by cancellation or a stop request, which ends the loop. Injectable
// so tests can drive the loop without real time.
type WaitFunc func(ctx context.Context, stop <-chan struct{}, d time.Duration) bool

// Monitor coordinates the poll loop over the pipeline collaborators.
type Monitor struct {
	source     Source
	summarizer Summarizer
	notifier   Notifier
	store      MarkerStore
	logger     *slog.Logger

	pollInterval time.Duration
	subject      string
	wait         WaitFunc

	mu         sync.Mutex
	session    *session
	startedAt  time.Time
	cycleCount int64
	lastResult *CycleResult
}

type session struct {
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// Option configures optional Monitor behavior.
type Option func(*Monitor)

// WithPollInterval overrides the default poll interval.
func WithPollInterval(interval time.Duration) Option {
	return func(m *Monitor) {
		if interval > 0 {
			m.pollInterval = interval
		}
	}
}

// WithSubject overrides the email subject used for deliveries.
func WithSubject(subject string) Option {
	return func(m *Monitor) {
		if subject != "" {
			m.subject = subject
		}
	}
}

// WithWaitFunc overrides how the loop sleeps between cycles (used in tests).
func WithWaitFunc(wait WaitFunc) Option {
	return func(m *Monitor) {
		if wait != nil {
			m.wait = wait
		}
	}
}

// New constructs a monitor. The loop is not started until Start is called.
func New(source Source, summarizer Summarizer, notifier Notifier, store MarkerStore, logger *slog.Logger, opts ...Option) *Monitor {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Monitor{
		source:       source,
		summarizer:   summarizer,
		notifier:     notifier,
		store:        store,
		logger:       logging.WithComponent(logger, "monitor"),
		pollInterval: time.Hour,
		subject:      defaultSubject,
		wait:         defaultWait,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start spawns the polling loop. It returns ErrAlreadyRunning when a loop
// is active, including one that is draining its final cycle after Stop.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil {
		return ErrAlreadyRunning
	}

	sess := &session{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	m.session = sess
	m.startedAt = time.Now()

	go m.run(ctx, sess)
	return nil
}

// Stop requests a cooperative shutdown. The in-flight cycle, if any, runs
// to completion; no further cycle starts afterward. Stop returns without
// waiting for the loop to exit.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return ErrNotRunning
	}
	m.session.stopOnce.Do(func() { close(m.session.stop) })
	return nil
}

// Wait blocks until the loop exits or ctx is done. It returns immediately
// when no loop is active.
func (m *Monitor) Wait(ctx context.Context) error {
	m.mu.Lock()
	sess := m.session
	m.mu.Unlock()
	if sess == nil {
		return nil
	}
	select {
	case <-sess.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status describes the monitor for the control surface.
type Status struct {
	Running    bool
	StartedAt  time.Time
	CycleCount int64
	LastResult *CycleResult
}

// Status returns a snapshot of loop state. Running stays true until the
// final cycle of a stopping loop has finished.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := Status{
		Running:    m.session != nil,
		StartedAt:  m.startedAt,
		CycleCount: m.cycleCount,
	}
	if m.lastResult != nil {
		copied := *m.lastResult
		status.LastResult = &copied
	}
	return status
}

func (m *Monitor) run(ctx context.Context, sess *session) {
	defer close(sess.done)
	defer func() {
		m.mu.Lock()
		if m.session == sess {
			m.session = nil
		}
		m.mu.Unlock()
		m.logger.Info("monitor loop stopped")
	}()

	m.logger.Info("monitor loop started", logging.Duration("poll_interval", m.pollInterval))

	for {
		select {
		case <-ctx.Done():
			return
		case <-sess.stop:
			return
		default:
		}

		if result, ok := m.safeCycle(ctx); ok {
			m.recordResult(result)
		}

		if !m.wait(ctx, sess.stop, m.pollInterval) {
			return
		}
	}
}

// safeCycle shields the loop from unexpected panics in a pipeline stage:
// the failure is logged with a correlation id and the loop continues.
func (m *Monitor) safeCycle(ctx context.Context) (result CycleResult, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("cycle panic",
				logging.String("correlation_id", uuid.NewString()),
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
			)
			ok = false
		}
	}()
	return m.runCycle(ctx), true
}

func (m *Monitor) recordResult(result CycleResult) {
	m.mu.Lock()
	m.cycleCount++
	copied := result
	m.lastResult = &copied
	m.mu.Unlock()
}

func defaultWait(ctx context.Context, stop <-chan struct{}, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-stop:
		return false
	case <-timer.C:
		return true
	}
}
