package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ouvidoriag/ogdash2/internal/domain"
	"github.com/ouvidoriag/ogdash2/internal/observability"
	"github.com/ouvidoriag/ogdash2/internal/platform/logger"
	"github.com/ouvidoriag/ogdash2/internal/reporting/deadline"
	"github.com/ouvidoriag/ogdash2/internal/reporting/store"
)

// Report summarizes one sweep.
type Report struct {
	Date      string `json:"date"`
	Scanned   int64  `json:"scanned"`
	Triggered int64  `json:"triggered"`
	Skipped   int64  `json:"skipped"`
	Sent      int64  `json:"sent"`
	Failed    int64  `json:"failed"`
}

type SweeperDeps struct {
	Records     store.RecordStore
	Deadlines   *deadline.Engine
	Tracker     *Tracker
	Recipients  RecipientResolver
	Composer    Composer
	Mailer      Mailer
	Log         *logger.Logger
	Metrics     *observability.Metrics
	Concurrency int
}

// Sweeper runs the daily deadline notification pass. It has no internal
// timeout and runs apart from request handling.
type Sweeper struct {
	records     store.RecordStore
	deadlines   *deadline.Engine
	tracker     *Tracker
	recipients  RecipientResolver
	composer    Composer
	mailer      Mailer
	log         *logger.Logger
	metrics     *observability.Metrics
	concurrency int
}

func NewSweeper(deps SweeperDeps) (*Sweeper, error) {
	if deps.Records == nil || deps.Deadlines == nil || deps.Tracker == nil {
		return nil, errors.New("sweeper needs records, deadlines and tracker")
	}
	if deps.Recipients == nil || deps.Mailer == nil {
		return nil, errors.New("sweeper needs a recipient resolver and a mailer")
	}
	if deps.Composer == nil {
		deps.Composer = PlainComposer{}
	}
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Concurrency <= 0 {
		deps.Concurrency = 4
	}
	return &Sweeper{
		records:     deps.Records,
		deadlines:   deps.Deadlines,
		tracker:     deps.Tracker,
		recipients:  deps.Recipients,
		composer:    deps.Composer,
		mailer:      deps.Mailer,
		log:         deps.Log.With("service", "NotificationSweeper"),
		metrics:     deps.Metrics,
		concurrency: deps.Concurrency,
	}, nil
}

// Run evaluates every record as of today and dispatches each due
// notification that has not been sent yet. Per-record failures are recorded
// and counted; only a failure to load records aborts the sweep.
func (s *Sweeper) Run(ctx context.Context, today time.Time) (Report, error) {
	start := time.Now()
	rep := Report{Date: today.Format("2006-01-02")}

	records, err := s.records.Find(ctx, store.Query{})
	if err != nil {
		return rep, store.Unavailable("load records for sweep", err)
	}

	var scanned, triggered, skipped, sent, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, rec := range records {
		scanned.Add(1)
		trigger := s.deadlines.NotificationTrigger(rec, today)
		if trigger == deadline.TriggerNone {
			continue
		}
		triggered.Add(1)
		g.Go(func() error {
			switch s.dispatch(gctx, rec, trigger, today) {
			case outcomeSent:
				sent.Add(1)
			case outcomeSkipped:
				skipped.Add(1)
			default:
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	rep.Scanned = scanned.Load()
	rep.Triggered = triggered.Load()
	rep.Skipped = skipped.Load()
	rep.Sent = sent.Load()
	rep.Failed = failed.Load()
	s.metrics.ObserveSweep(time.Since(start))
	s.log.Info("notification sweep finished",
		"date", rep.Date,
		"scanned", rep.Scanned,
		"triggered", rep.Triggered,
		"skipped", rep.Skipped,
		"sent", rep.Sent,
		"failed", rep.Failed,
		"took_ms", time.Since(start).Milliseconds(),
	)
	return rep, ctx.Err()
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeSkipped
	outcomeFailed
)

func (s *Sweeper) dispatch(ctx context.Context, rec *domain.Record, trigger deadline.Trigger, today time.Time) outcome {
	id := rec.Identifier()
	kind := string(trigger)

	already, err := s.tracker.AlreadySent(ctx, id, kind)
	if err != nil {
		s.log.Warn("dedup check failed", "identifier", id, "kind", kind, "error", err)
		s.metrics.IncSweepOutcome(kind, "failed")
		return outcomeFailed
	}
	if already {
		s.metrics.IncSweepOutcome(kind, "skipped")
		return outcomeSkipped
	}

	fail := func(stage string, cause error, recipient string) outcome {
		s.log.Warn("notification failed", "identifier", id, "kind", kind, "stage", stage, "error", cause)
		meta := Metadata{ErrorMessage: cause.Error(), Recipient: recipient, Extra: map[string]any{"stage": stage}}
		if err := s.tracker.Record(ctx, id, kind, domain.NotificationStatusError, meta); err != nil {
			s.log.Error("failed to record notification error", "identifier", id, "kind", kind, "error", err)
		}
		s.metrics.IncSweepOutcome(kind, "failed")
		return outcomeFailed
	}

	due, ok := s.deadlines.Describe(rec, today)
	if !ok {
		return fail("describe", errors.New("deadline not computable"), "")
	}
	to, err := s.recipients.Recipients(ctx, rec)
	if err != nil {
		return fail("recipients", err, "")
	}
	if len(to) == 0 {
		return fail("recipients", errors.New("no recipient configured"), "")
	}

	subject, htmlBody, textBody := s.composer.Compose(Notice{Trigger: trigger, Due: due})
	var messageIDs []string
	for _, addr := range to {
		mid, err := s.mailer.Send(ctx, Message{To: addr, Subject: subject, HTML: htmlBody, Text: textBody})
		if err != nil {
			return fail("send", fmt.Errorf("send to %s: %w", addr, err), addr)
		}
		messageIDs = append(messageIDs, mid)
	}

	meta := Metadata{
		Recipient: strings.Join(to, ","),
		MessageID: strings.Join(messageIDs, ","),
		Extra: map[string]any{
			"due_date":       due.DueDate,
			"remaining_days": due.RemainingDays,
			"prazo_days":     due.PrazoDays,
		},
	}
	if err := s.tracker.Record(ctx, id, kind, domain.NotificationStatusSent, meta); err != nil {
		// Delivered but not logged: the next run may send again, which is the
		// accepted failure mode.
		s.log.Error("failed to record sent notification", "identifier", id, "kind", kind, "error", err)
	}
	s.metrics.IncSweepOutcome(kind, "sent")
	return outcomeSent
}
