// Package scheduler drives the pipeline at the configured fire points. The tick
// loop is deliberately simple: every tick checks whether a fire point has been
// reached in the schedule timezone and, if it has not fired yet today, runs the
// pipeline once. A point is only due within one tick interval of its wall-clock
// time; a point whose window passed while the process was down is forfeited, not
// fired late. A failed firing does not re-fire until the next fire point.
package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/avikko/wxpost/internal/conf"
	"github.com/avikko/wxpost/internal/errors"
	"github.com/avikko/wxpost/internal/logging"
	"github.com/avikko/wxpost/internal/observability/metrics"
)

var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
)

func init() {
	var err error
	serviceLevelVar.Set(slog.LevelInfo)
	logger, _, err = logging.NewFileLogger("logs/scheduler.log", "scheduler", serviceLevelVar)
	if err != nil {
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "scheduler")
	}
}

// Mode selects how Run drives the pipeline.
type Mode int

const (
	// ModeLive fires at every configured fire point and publishes.
	ModeLive Mode = iota
	// ModePreviewNow runs the pipeline immediately, renders, and exits without publishing.
	ModePreviewNow
	// ModePreviewNextFire waits for the next fire point, renders, and exits without publishing.
	ModePreviewNextFire
)

// runner is the one-firing contract the tick loop drives.
type runner interface {
	RunOnce(ctx context.Context, now time.Time, preview bool) (*Outcome, error)
}

// firePoint is a parsed "HH:MM" wall-clock time in the schedule timezone.
type firePoint struct {
	hour   int
	minute int
	label  string
}

// Scheduler owns the fire-point state. All times are evaluated in the configured
// timezone, so fire points track local wall-clock across DST transitions.
type Scheduler struct {
	pipeline runner
	loc      *time.Location
	points   []firePoint
	interval time.Duration
	metrics  *metrics.PipelineMetrics

	mu        sync.Mutex
	running   bool
	lastFired map[string]string // fire point label -> date it last fired ("2006-01-02")
}

// New parses the configured fire points and builds a Scheduler around the pipeline.
func New(pipeline *Pipeline, settings *conf.Settings, pipelineMetrics *metrics.PipelineMetrics) (*Scheduler, error) {
	if len(settings.Sched.FirePoints) == 0 {
		return nil, errors.Newf("no fire points configured").
			Component("scheduler").
			Category(errors.CategoryConfiguration).
			Build()
	}

	points := make([]firePoint, 0, len(settings.Sched.FirePoints))
	for _, raw := range settings.Sched.FirePoints {
		parsed, err := time.Parse("15:04", raw)
		if err != nil {
			return nil, errors.New(fmt.Errorf("invalid fire point %q: %w", raw, err)).
				Component("scheduler").
				Category(errors.CategoryConfiguration).
				Build()
		}
		points = append(points, firePoint{hour: parsed.Hour(), minute: parsed.Minute(), label: raw})
	}

	interval := time.Duration(settings.Sched.TickIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &Scheduler{
		pipeline:  pipeline,
		loc:       settings.Timezone(),
		points:    points,
		interval:  interval,
		metrics:   pipelineMetrics,
		lastFired: make(map[string]string),
	}, nil
}

// Tick evaluates the fire points against now and runs the pipeline for at most one
// due point. It returns true when a firing ran (regardless of its outcome). A tick
// arriving while a firing is in progress is a no-op.
func (s *Scheduler) Tick(ctx context.Context, now time.Time, preview bool) bool {
	local := now.In(s.loc)

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return false
	}
	point, due := s.duePointLocked(local)
	if !due {
		s.mu.Unlock()
		return false
	}
	// Mark before running so a failed firing does not re-fire on the next tick.
	s.lastFired[point.label] = local.Format("2006-01-02")
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.fire(ctx, point, local, preview)
	return true
}

// duePointLocked returns the first fire point whose grace window contains now and
// that has not fired yet today. The grace window is one tick interval, enough for
// ticker jitter but never a whole missed slot: a point that went stale while the
// process was down is marked forfeited so a restart at noon does not post the
// morning summary. Caller holds s.mu.
func (s *Scheduler) duePointLocked(local time.Time) (firePoint, bool) {
	dateKey := local.Format("2006-01-02")
	for _, point := range s.points {
		pointTime := time.Date(local.Year(), local.Month(), local.Day(), point.hour, point.minute, 0, 0, s.loc)
		elapsed := local.Sub(pointTime)
		if elapsed < 0 {
			continue
		}
		if s.lastFired[point.label] == dateKey {
			continue
		}
		if elapsed > s.interval {
			s.lastFired[point.label] = dateKey
			logger.Info("fire point forfeited", "fire_point", point.label, "date", dateKey, "late_by", elapsed.String())
			continue
		}
		return point, true
	}
	return firePoint{}, false
}

// fire runs the pipeline once for a due point. Failures are logged and counted,
// never fatal to the loop.
func (s *Scheduler) fire(ctx context.Context, point firePoint, local time.Time, preview bool) {
	logger.Info("fire point reached", "fire_point", point.label, "date", local.Format("2006-01-02"), "preview", preview)

	outcome, err := s.pipeline.RunOnce(ctx, local, preview)
	if err != nil {
		s.metrics.RecordFiring("failed")
		logger.Error("firing failed", "fire_point", point.label, "error", err)
		logging.Error("scheduled firing failed", "fire_point", point.label, "error", err)
		return
	}

	if preview {
		s.metrics.RecordFiring("preview")
		logging.Info("preview rendered", "fire_point", point.label, "text", outcome.Text)
		return
	}
	s.metrics.RecordFiring("published")
	logger.Info("firing published", "fire_point", point.label, "post_id", outcome.PostID, "attempts", outcome.Attempts)
}

// Run drives the scheduler until ctx is cancelled (ModeLive) or until the single
// requested firing completes (preview modes).
func (s *Scheduler) Run(ctx context.Context, mode Mode) error {
	if mode == ModePreviewNow {
		outcome, err := s.pipeline.RunOnce(ctx, time.Now().In(s.loc), true)
		if err != nil {
			return err
		}
		logging.Info("preview rendered", "text", outcome.Text)
		fmt.Println(outcome.Text)
		return nil
	}

	preview := mode == ModePreviewNextFire
	logger.Info("scheduler started",
		"fire_points", len(s.points),
		"tick_interval", s.interval.String(),
		"timezone", s.loc.String(),
		"preview", preview)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("scheduler stopped", "reason", ctx.Err())
			return nil
		case tick := <-ticker.C:
			fired := s.Tick(ctx, tick, preview)
			if fired && preview {
				return nil
			}
		}
	}
}
