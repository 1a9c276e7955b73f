package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"substackmon/internal/summarizer"
)

type fakeSource struct {
	mu          sync.Mutex
	latest      string
	latestErr   error
	text        string
	textErr     error
	latestCalls int
	textCalls   int
	onLatest    func(call int)
	onPostText  func()
}

func (f *fakeSource) LatestPostURL(context.Context) (string, error) {
	f.mu.Lock()
	f.latestCalls++
	call := f.latestCalls
	hook := f.onLatest
	latest, err := f.latest, f.latestErr
	f.mu.Unlock()
	if hook != nil {
		hook(call)
	}
	return latest, err
}

func (f *fakeSource) PostText(context.Context, string) (string, error) {
	f.mu.Lock()
	f.textCalls++
	hook := f.onPostText
	text, err := f.text, f.textErr
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return text, err
}

func (f *fakeSource) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latestCalls, f.textCalls
}

type fakeSummarizer struct {
	mu      sync.Mutex
	summary string
	err     error
	calls   int
}

func (f *fakeSummarizer) Summarize(context.Context, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.summary, f.err
}

type fakeNotifier struct {
	mu       sync.Mutex
	err      error
	calls    int
	subjects []string
	bodies   []string
}

func (f *fakeNotifier) Deliver(_ context.Context, subject, htmlBody string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.subjects = append(f.subjects, subject)
	f.bodies = append(f.bodies, htmlBody)
	return f.err
}

type fakeStore struct {
	mu       sync.Mutex
	marker   string
	readErr  error
	writeErr error
	records  []string
}

func (f *fakeStore) LastProcessed(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.marker, f.readErr
}

func (f *fakeStore) RecordDelivery(_ context.Context, postURL, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.marker = postURL
	f.records = append(f.records, postURL)
	return nil
}

func (f *fakeStore) current() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.marker
}

type pipeline struct {
	source     *fakeSource
	summarizer *fakeSummarizer
	notifier   *fakeNotifier
	store      *fakeStore
}

func newPipeline() *pipeline {
	return &pipeline{
		source:     &fakeSource{latest: "https://demo.substack.com/p/post-1", text: "post body"},
		summarizer: &fakeSummarizer{summary: "<p>summary</p>"},
		notifier:   &fakeNotifier{},
		store:      &fakeStore{},
	}
}

func (p *pipeline) monitor(opts ...Option) *Monitor {
	return New(p.source, p.summarizer, p.notifier, p.store, nil, opts...)
}

func TestCycleDeliversNewPost(t *testing.T) {
	p := newPipeline()
	m := p.monitor(WithSubject("New post"))

	result := m.runCycle(context.Background())

	if result.Outcome != OutcomeDelivered {
		t.Fatalf("unexpected outcome: %s", result.Outcome)
	}
	if result.PostURL != "https://demo.substack.com/p/post-1" {
		t.Fatalf("unexpected post url: %q", result.PostURL)
	}
	if p.store.current() != "https://demo.substack.com/p/post-1" {
		t.Fatalf("marker not advanced: %q", p.store.current())
	}
	if p.notifier.calls != 1 || p.notifier.subjects[0] != "New post" {
		t.Fatalf("unexpected delivery: %+v", p.notifier)
	}
	if !strings.Contains(p.notifier.bodies[0], "<p>summary</p>") {
		t.Fatalf("summary missing from body: %q", p.notifier.bodies[0])
	}
}

func TestCycleNoNewPostSkipsDownstream(t *testing.T) {
	p := newPipeline()
	p.store.marker = "https://demo.substack.com/p/post-1"
	m := p.monitor()

	result := m.runCycle(context.Background())

	if result.Outcome != OutcomeNoNewPost {
		t.Fatalf("unexpected outcome: %s", result.Outcome)
	}
	if _, textCalls := p.source.calls(); textCalls != 0 {
		t.Fatalf("PostText must not be called, got %d calls", textCalls)
	}
	if p.summarizer.calls != 0 || p.notifier.calls != 0 {
		t.Fatal("downstream collaborators must not be called on no-new-post")
	}
	if p.store.current() != "https://demo.substack.com/p/post-1" {
		t.Fatalf("marker changed: %q", p.store.current())
	}
}

func TestCycleOutcomesLeaveMarkerUntouched(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*pipeline)
		outcome Outcome
	}{
		{"fetch error", func(p *pipeline) { p.source.latest, p.source.latestErr = "", errors.New("boom") }, OutcomeFetchFailed},
		{"fetch empty", func(p *pipeline) { p.source.latest = "" }, OutcomeFetchFailed},
		{"marker read error", func(p *pipeline) { p.store.readErr = errors.New("db locked") }, OutcomeFetchFailed},
		{"extract failed", func(p *pipeline) { p.source.text, p.source.textErr = "", errors.New("no content") }, OutcomeExtractFailed},
		{"summarize failed", func(p *pipeline) { p.summarizer.err = errors.New("http 500") }, OutcomeSummarizeFailed},
		{"summarize blocked", func(p *pipeline) { p.summarizer.err = fmt.Errorf("wrap: %w", summarizer.ErrBlocked) }, OutcomeSummarizeBlocked},
		{"delivery failed", func(p *pipeline) { p.notifier.err = errors.New("postmark down") }, OutcomeDeliveryFailed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newPipeline()
			p.store.marker = "https://demo.substack.com/p/post-0"
			p.source.latest = "https://demo.substack.com/p/post-1"
			tc.mutate(p)

			result := p.monitor().runCycle(context.Background())

			if result.Outcome != tc.outcome {
				t.Fatalf("unexpected outcome: got %s want %s", result.Outcome, tc.outcome)
			}
			if p.store.current() != "https://demo.substack.com/p/post-0" {
				t.Fatalf("marker must not change, got %q", p.store.current())
			}
			if len(p.store.records) != 0 {
				t.Fatalf("no delivery may be recorded, got %v", p.store.records)
			}
		})
	}
}

func TestCycleDeliveredDespiteMarkerWriteFailure(t *testing.T) {
	p := newPipeline()
	p.store.writeErr = errors.New("disk full")

	result := p.monitor().runCycle(context.Background())

	if result.Outcome != OutcomeDelivered {
		t.Fatalf("unexpected outcome: %s", result.Outcome)
	}
	if p.notifier.calls != 1 {
		t.Fatalf("expected delivery, got %d calls", p.notifier.calls)
	}
}

func TestStartStopIdempotent(t *testing.T) {
	p := newPipeline()
	m := p.monitor(WithWaitFunc(func(ctx context.Context, stop <-chan struct{}, _ time.Duration) bool {
		select {
		case <-ctx.Done():
			return false
		case <-stop:
			return false
		}
	}))

	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := m.Start(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Start: got %v want ErrAlreadyRunning", err)
	}

	if err := m.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := m.Wait(waitCtx); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	if err := m.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("Stop when idle: got %v want ErrNotRunning", err)
	}
	if m.Status().Running {
		t.Fatal("monitor should be idle after Wait")
	}
}

func TestConcurrentStartsSpawnOneLoop(t *testing.T) {
	p := newPipeline()
	m := p.monitor(WithWaitFunc(func(ctx context.Context, stop <-chan struct{}, _ time.Duration) bool {
		select {
		case <-ctx.Done():
			return false
		case <-stop:
			return false
		}
	}))

	ctx := context.Background()
	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- m.Start(ctx)
		}()
	}
	wg.Wait()
	close(errs)

	started := 0
	for err := range errs {
		if err == nil {
			started++
		} else if !errors.Is(err, ErrAlreadyRunning) {
			t.Fatalf("unexpected Start error: %v", err)
		}
	}
	if started != 1 {
		t.Fatalf("expected exactly one successful Start, got %d", started)
	}

	if err := m.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := m.Wait(waitCtx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestStopDuringCycleFinishesCycle(t *testing.T) {
	p := newPipeline()
	inCycle := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	p.source.onPostText = func() {
		once.Do(func() { close(inCycle) })
		<-release
	}

	m := p.monitor()
	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	<-inCycle
	if err := m.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !m.Status().Running {
		t.Fatal("monitor must report running while the in-flight cycle drains")
	}

	close(release)
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := m.Wait(waitCtx); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	status := m.Status()
	if status.Running {
		t.Fatal("monitor must be idle after the final cycle")
	}
	if status.CycleCount != 1 {
		t.Fatalf("expected exactly one cycle, got %d", status.CycleCount)
	}
	if status.LastResult == nil || status.LastResult.Outcome != OutcomeDelivered {
		t.Fatalf("expected the in-flight cycle to complete, got %+v", status.LastResult)
	}
	if latestCalls, _ := p.source.calls(); latestCalls != 1 {
		t.Fatalf("no further cycle may run after stop, got %d fetches", latestCalls)
	}
}

func TestCyclePanicIsRecovered(t *testing.T) {
	p := newPipeline()
	p.source.onLatest = func(call int) {
		if call == 1 {
			panic("selector exploded")
		}
	}

	cycles := 0
	m := p.monitor(WithWaitFunc(func(context.Context, <-chan struct{}, time.Duration) bool {
		cycles++
		return cycles < 2
	}))

	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := m.Wait(waitCtx); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	status := m.Status()
	if status.CycleCount != 1 {
		t.Fatalf("panicked cycle must not be recorded; got %d results", status.CycleCount)
	}
	if status.LastResult == nil || status.LastResult.Outcome != OutcomeDelivered {
		t.Fatalf("second cycle should deliver, got %+v", status.LastResult)
	}
}

func TestSubjectFor(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://eas503.substack.com", "Summary of the latest Eas503 Substack post"},
		{"https://demo.substack.com/", "Summary of the latest Demo Substack post"},
		{"not a url", defaultSubject},
		{"", defaultSubject},
	}
	for _, tc := range cases {
		if got := SubjectFor(tc.url); got != tc.want {
			t.Fatalf("SubjectFor(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}
