package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pktikkani/mindful-poster/internal/posts"
	"github.com/pktikkani/mindful-poster/pkg/logging"
)

// Starter is the slice of the workflow the scheduler drives.
type Starter interface {
	Start(ctx context.Context) (posts.Post, error)
}

// DayGuard reports whether a post was already created inside a time window.
type DayGuard interface {
	ExistsOnDay(ctx context.Context, from, to time.Time) (bool, error)
}

// Scheduler fires one generation cycle per day at the configured local time.
// A post created earlier the same day, scheduled or manual, suppresses the run.
type Scheduler struct {
	pipeline Starter
	guard    DayGuard
	hour     int
	minute   int
	location *time.Location
	logger   logging.Logger
	stopCh   chan struct{}
	interval time.Duration
}

type Config struct {
	Pipeline Starter
	Guard    DayGuard
	Hour     int
	Minute   int
	Location *time.Location
	Logger   logging.Logger
}

func New(cfg Config) *Scheduler {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		pipeline: cfg.Pipeline,
		guard:    cfg.Guard,
		hour:     cfg.Hour,
		minute:   cfg.Minute,
		location: loc,
		logger:   cfg.Logger,
		stopCh:   make(chan struct{}),
		interval: time.Minute,
	}
}

// Start launches the daily trigger loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.WithFields(logging.Fields{
		"hour":     s.hour,
		"minute":   s.minute,
		"timezone": s.location.String(),
	}).Info("Starting daily post scheduler")
	go s.run(ctx)
}

// Stop terminates the trigger loop.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping daily post scheduler")
	close(s.stopCh)
}

func (s *Scheduler) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.tick(ctx, time.Now().In(s.location))
		}
	}
}

// tick runs one scheduler evaluation for the given local time.
func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	if now.Hour() != s.hour || now.Minute() != s.minute {
		return
	}

	from, to := dayBounds(now)
	exists, err := s.guard.ExistsOnDay(ctx, from, to)
	if err != nil {
		s.logger.WithFields(logging.Fields{
			"error": err.Error(),
		}).Error("Failed to check for today's post")
		return
	}
	if exists {
		s.logger.Info("Post already exists for today, skipping scheduled run")
		return
	}

	post, err := s.pipeline.Start(ctx)
	if err != nil {
		s.logger.WithFields(logging.Fields{
			"error": err.Error(),
		}).Error("Scheduled generation failed")
		return
	}

	s.logger.WithFields(logging.Fields{
		"post_id": post.ID,
		"theme":   post.Theme,
		"status":  string(post.Status),
	}).Info("Scheduled generation cycle finished")
}

// dayBounds returns the [midnight, next midnight) window around t in its location.
func dayBounds(t time.Time) (time.Time, time.Time) {
	from := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return from, from.AddDate(0, 0, 1)
}

// ParseClock parses a HH:MM schedule time.
func ParseClock(v string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(v), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid schedule time %q, expected HH:MM", v)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid schedule hour %q", parts[0])
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid schedule minute %q", parts[1])
	}
	return hour, minute, nil
}
