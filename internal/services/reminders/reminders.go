package reminders

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/dispatchly/fleetsync/internal/broker/messages"
	"github.com/dispatchly/fleetsync/internal/metrics"
	"github.com/dispatchly/fleetsync/internal/models"
	"github.com/dispatchly/fleetsync/internal/store"
)

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

// Worker периодически обходит открытые store'ы: помечает просроченные счета
// и публикует напоминания, у которых подошёл срок. Отправка троттлится по
// клиенту, чтобы догон бэклога не вылился в шквал писем.
type Worker struct {
	stores   *store.Manager
	producer Producer
	rl       RateLimiter
	metrics  *metrics.Metrics

	topic   string
	planner *Planner

	interval            time.Duration
	rateLimitPerHour    int64
	rateLimitWindow     time.Duration

	clock func() time.Time

	triggerCh chan struct{}

	startedAtUnixNano   int64
	lastCycleUnixNano   atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalDue            atomic.Int64
	totalPublished      atomic.Int64
	totalThrottled      atomic.Int64
	totalOverdueMarked  atomic.Int64
	totalErrors         atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

func New(stores *store.Manager, producer Producer, rl RateLimiter, topic string) *Worker {
	return &Worker{
		stores:           stores,
		producer:         producer,
		rl:               rl,
		topic:            topic,
		planner:          DefaultPlanner(),
		interval:         time.Minute,
		rateLimitPerHour: 3,
		rateLimitWindow:  time.Hour,
		clock:            func() time.Time { return time.Now().UTC() },
		triggerCh:        make(chan struct{}, 1),
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

func (w *Worker) WithSettings(interval time.Duration, rlPerHour int64) *Worker {
	if interval > 0 {
		w.interval = interval
	}
	if rlPerHour > 0 {
		w.rateLimitPerHour = rlPerHour
	}
	return w
}

func (w *Worker) WithPlanner(cfg PlannerConfig) *Worker {
	w.planner = NewPlanner(cfg)
	return w
}

func (w *Worker) WithMetrics(m *metrics.Metrics) *Worker {
	w.metrics = m
	return w
}

func (w *Worker) WithClock(clock func() time.Time) *Worker {
	if clock != nil {
		w.clock = clock
	}
	return w
}

// Trigger forces an immediate cycle (best-effort, non-blocking).
func (w *Worker) Trigger() {
	w.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt          time.Time  `json:"startedAt"`
	LastCycleAt        *time.Time `json:"lastCycleAt,omitempty"`
	LastTriggerAt      *time.Time `json:"lastTriggerAt,omitempty"`
	TotalDue           int64      `json:"totalDue"`
	TotalPublished     int64      `json:"totalPublished"`
	TotalThrottled     int64      `json:"totalThrottled"`
	TotalOverdueMarked int64      `json:"totalOverdueMarked"`
	TotalErrors        int64      `json:"totalErrors"`
	LastError          string     `json:"lastError,omitempty"`
}

func (w *Worker) Stats() Stats {
	st := Stats{
		StartedAt:          time.Unix(0, w.startedAtUnixNano).UTC(),
		TotalDue:           w.totalDue.Load(),
		TotalPublished:     w.totalPublished.Load(),
		TotalThrottled:     w.totalThrottled.Load(),
		TotalOverdueMarked: w.totalOverdueMarked.Load(),
		TotalErrors:        w.totalErrors.Load(),
	}
	if n := w.lastCycleUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastCycleAt = &t
	}
	if n := w.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	w.lastErrorMu.Lock()
	st.LastError = w.lastError
	w.lastErrorMu.Unlock()
	return st
}

func (w *Worker) Run(ctx context.Context) error {
	t := time.NewTicker(w.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			w.RunOnce(ctx)
		case <-w.triggerCh:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce — один цикл обхода всех открытых тенантов.
func (w *Worker) RunOnce(ctx context.Context) {
	now := w.clock()
	w.lastCycleUnixNano.Store(now.UnixNano())

	for _, st := range w.stores.All() {
		w.runTenant(ctx, st, now)
	}
}

func (w *Worker) runTenant(ctx context.Context, st *store.Store, now time.Time) {
	marked := st.MarkOverdueInvoices(ctx, now)
	w.totalOverdueMarked.Add(int64(len(marked)))

	due := st.DueReminders(now)
	w.totalDue.Add(int64(len(due)))

	for _, inv := range due {
		if err := w.remindOne(ctx, st, inv, now); err != nil {
			w.totalErrors.Add(1)
			w.lastErrorMu.Lock()
			w.lastError = err.Error()
			w.lastErrorMu.Unlock()
			slog.Error("send invoice reminder", "org", st.Tenant().OrgID, "invoice_id", inv.ID, "error", err.Error())
		}
	}
}

func (w *Worker) remindOne(ctx context.Context, st *store.Store, inv models.Invoice, now time.Time) error {
	org := st.Tenant().OrgID

	if w.rl != nil && w.rateLimitPerHour > 0 {
		key := fmt.Sprintf("rem:%s:%d", org, inv.CustomerID)
		allowed, n, err := w.rl.Allow(ctx, key, w.rateLimitPerHour, w.rateLimitWindow)
		if err != nil {
			return err
		}
		if !allowed {
			// Клиент уже получил лимит напоминаний в окне: счёт остаётся due
			// и будет подхвачен следующим циклом.
			slog.Warn("reminder rate limit exceeded", "org", org, "customer_id", inv.CustomerID, "count", n)
			w.totalThrottled.Add(1)
			return nil
		}
	}

	msg := messages.InvoiceReminderDue{
		OrgID:         org,
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		CustomerID:    inv.CustomerID,
		BalanceDue:    inv.BalanceDue.String(),
		ReminderCount: inv.ReminderCount + 1,
		DueAt:         now,
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "marshal reminder msg")
	}

	key := []byte(fmt.Sprintf("%s:%d", org, inv.ID))
	if err := w.producer.Publish(ctx, w.topic, key, b); err != nil {
		return errors.Wrap(err, "publish reminder")
	}

	next := w.planner.Next(inv.ReminderCount+1, now)
	st.AdvanceReminder(ctx, inv.ID, now, next)

	w.totalPublished.Add(1)
	if w.metrics != nil {
		w.metrics.RemindersPublished.Inc()
	}
	return nil
}
