package listener

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/wxsales/copilot/internal/observability/metrics"
	"github.com/wxsales/copilot/internal/textfilter"
	"github.com/wxsales/copilot/pkg/logging"
)

// Scraper produces one snapshot of raw row labels per call. Rows may
// appear or disappear between ticks; no ordering is guaranteed.
type Scraper interface {
	Snapshot(ctx context.Context) ([]string, error)
}

// TaskEnqueuer accepts counterparty message events for generation.
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, sessionID, customerName, body string) (string, error)
}

// MatchMode controls how the monitor keyword filters contact keys.
type MatchMode string

const (
	MatchContains MatchMode = "contains"
	MatchPrefix   MatchMode = "prefix"
	MatchExact    MatchMode = "exact"
)

// Listener drives the reconciler on a fixed polling cadence and feeds
// counterparty events into the task queue. Self-authored events are
// logged only.
type Listener struct {
	scraper    Scraper
	enqueuer   TaskEnqueuer
	reconciler *Reconciler
	logger     *logging.Logger
	metrics    *metrics.PipelineMetrics
	masker     textfilter.Masker

	interval  time.Duration
	keyword   string
	matchMode MatchMode

	wg sync.WaitGroup
}

// Option customizes a Listener.
type Option func(*Listener)

// WithInterval overrides the polling interval.
func WithInterval(d time.Duration) Option {
	return func(l *Listener) { l.interval = d }
}

// WithMonitorFilter restricts observation to contacts matching keyword
// under the given mode. An empty keyword observes everything.
func WithMonitorFilter(keyword string, mode MatchMode) Option {
	return func(l *Listener) {
		l.keyword = keyword
		l.matchMode = mode
	}
}

// WithMetrics attaches pipeline metrics.
func WithMetrics(m *metrics.PipelineMetrics) Option {
	return func(l *Listener) { l.metrics = m }
}

// New creates a Listener. Scraper, enqueuer, and logger are required.
func New(scraper Scraper, enqueuer TaskEnqueuer, logger *logging.Logger, opts ...Option) *Listener {
	if scraper == nil {
		panic("listener: scraper is required")
	}
	if enqueuer == nil {
		panic("listener: enqueuer is required")
	}
	if logger == nil {
		panic("listener: logger is required")
	}
	l := &Listener{
		scraper:    scraper,
		enqueuer:   enqueuer,
		reconciler: NewReconciler(),
		logger:     logger,
		interval:   500 * time.Millisecond,
		matchMode:  MatchContains,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start launches the polling loop. It returns immediately; cancel ctx
// to stop and Wait to join.
func (l *Listener) Start(ctx context.Context) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				l.logger.Info("listener stopping")
				return
			case <-ticker.C:
				l.tick(ctx)
			}
		}
	}()
}

// Wait blocks until the polling loop has exited.
func (l *Listener) Wait() {
	l.wg.Wait()
}

func (l *Listener) tick(ctx context.Context) {
	labels, err := l.scraper.Snapshot(ctx)
	if err != nil {
		l.logger.Warn("snapshot failed", "error", err)
		return
	}
	for _, raw := range labels {
		l.observe(ctx, raw)
	}
}

// observe runs one label through the reconciler. A malformed or
// surprising label never stops the loop: errors are logged and the
// remaining rows still get processed.
func (l *Listener) observe(ctx context.Context, raw string) {
	event := l.reconciler.Observe(raw)
	if event == nil {
		return
	}
	if !l.matches(event.ContactKey) {
		return
	}
	l.metrics.ObserveEvent(string(event.Sender))

	if event.Sender == SenderSelf {
		l.logger.Debug("outbound message observed",
			"contact", event.ContactKey,
			"body", l.masker.Mask(event.Body))
		return
	}
	if textfilter.IsNoise(event.Body) {
		l.logger.Debug("noise message dropped",
			"contact", event.ContactKey,
			"body", l.masker.Mask(event.Body))
		return
	}

	taskID, err := l.enqueuer.Enqueue(ctx, event.ContactKey, event.ContactKey, event.Body)
	if err != nil {
		l.logger.Error("enqueue failed", "contact", event.ContactKey, "error", err)
		return
	}
	l.logger.Info("message task enqueued",
		"contact", event.ContactKey,
		"task_id", taskID,
		"unread", event.UnreadCount)
}

func (l *Listener) matches(contactKey string) bool {
	if l.keyword == "" {
		return true
	}
	switch l.matchMode {
	case MatchPrefix:
		return strings.HasPrefix(contactKey, l.keyword)
	case MatchExact:
		return contactKey == l.keyword
	default:
		return strings.Contains(contactKey, l.keyword)
	}
}
