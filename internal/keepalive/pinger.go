// Package keepalive runs the self-ping loop that keeps free-tier hosts
// from idling the process out. The loop is independent of the monitor:
// ping failures are logged and throttled, never fatal.
package keepalive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"substackmon/internal/logging"
)

// ErrAlreadyActive is returned by Start when the loop is already running.
var ErrAlreadyActive = errors.New("keepalive pinger already active")

// ErrNotActive is returned by Stop when no loop is running.
var ErrNotActive = errors.New("keepalive pinger not active")

const defaultInterval = 10 * time.Minute

// PingRecord captures the most recent ping attempt.
type PingRecord struct {
	At  time.Time
	OK  bool
	Err error
}

// Pinger issues a periodic GET against the service's own health endpoint.
type Pinger struct {
	targetURL string
	interval  time.Duration
	client    *http.Client
	logger    *slog.Logger

	// failLog throttles repeated failure lines so a host outage does not
	// flood the log at ping frequency.
	failLog *rate.Limiter

	mu      sync.Mutex
	session *session
	last    *PingRecord
}

type session struct {
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// Option configures optional Pinger behavior.
type Option func(*Pinger)

// WithInterval overrides the default ping interval.
func WithInterval(interval time.Duration) Option {
	return func(p *Pinger) {
		if interval > 0 {
			p.interval = interval
		}
	}
}

// WithHTTPClient injects a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Pinger) {
		if client != nil {
			p.client = client
		}
	}
}

// New constructs a pinger targeting baseURL's health endpoint. The loop is
// not started until Start is called.
func New(baseURL string, logger *slog.Logger, opts ...Option) *Pinger {
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Pinger{
		targetURL: strings.TrimRight(baseURL, "/") + "/health",
		interval:  defaultInterval,
		client:    &http.Client{Timeout: 30 * time.Second},
		logger:    logging.WithComponent(logger, "keepalive"),
		failLog:   rate.NewLimiter(rate.Every(15*time.Minute), 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start spawns the ping loop.
func (p *Pinger) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session != nil {
		return ErrAlreadyActive
	}
	sess := &session{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	p.session = sess
	go p.run(ctx, sess)
	return nil
}

// Stop ends the ping loop. It does not wait for the loop goroutine.
func (p *Pinger) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return ErrNotActive
	}
	p.session.stopOnce.Do(func() { close(p.session.stop) })
	return nil
}

// Active reports whether the ping loop is running.
func (p *Pinger) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session != nil
}

// LastPing returns the most recent ping attempt, or nil before the first.
func (p *Pinger) LastPing() *PingRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return nil
	}
	copied := *p.last
	return &copied
}

func (p *Pinger) run(ctx context.Context, sess *session) {
	defer close(sess.done)
	defer func() {
		p.mu.Lock()
		if p.session == sess {
			p.session = nil
		}
		p.mu.Unlock()
		p.logger.Info("keepalive loop stopped")
	}()

	p.logger.Info("keepalive loop started",
		logging.String("target", p.targetURL),
		logging.Duration("interval", p.interval))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sess.stop:
			return
		case <-ticker.C:
			p.record(p.ping(ctx))
		}
	}
}

func (p *Pinger) ping(ctx context.Context) PingRecord {
	record := PingRecord{At: time.Now()}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.targetURL, nil)
	if err != nil {
		record.Err = err
		return record
	}
	resp, err := p.client.Do(req)
	if err != nil {
		record.Err = err
		return record
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16)) //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		record.Err = fmt.Errorf("ping returned status %d", resp.StatusCode)
		return record
	}
	record.OK = true
	return record
}

func (p *Pinger) record(record PingRecord) {
	p.mu.Lock()
	p.last = &record
	p.mu.Unlock()

	if record.OK {
		p.logger.Debug("keepalive ping ok", logging.String("target", p.targetURL))
		return
	}
	if p.failLog.Allow() {
		p.logger.Warn("keepalive ping failed",
			logging.String("target", p.targetURL),
			logging.Error(record.Err))
	}
}
