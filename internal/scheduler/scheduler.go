// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package scheduler runs automatic posting on a cron schedule. Each tick
// publishes one article in a randomly chosen category.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"autoblog/internal/license"
	"autoblog/internal/pipeline"
)

// DefaultSpec runs at the top of every hour.
const DefaultSpec = "0 * * * *"

// runTimeout bounds one scheduled run.
const runTimeout = 10 * time.Minute

// Runner executes a batch. *pipeline.Service satisfies it.
type Runner interface {
	Batch(ctx context.Context, req pipeline.BatchRequest) (pipeline.BatchResult, error)
}

// Gate checks license features. *license.Manager satisfies it.
type Gate interface {
	Require(f license.Feature) error
}

// Status is the schedule as shown on the dashboard.
type Status struct {
	Enabled bool       `json:"enabled"`
	Spec    string     `json:"spec"`
	Next    *time.Time `json:"next,omitempty"`
}

// Scheduler owns a cron instance with at most one posting entry.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	entry   cron.EntryID
	enabled bool

	spec   string
	runner Runner
	gate   Gate
	siteID string
	pick   func(n int) int
	logger *slog.Logger
}

// New validates spec and starts an idle cron. An empty spec selects
// DefaultSpec.
func New(runner Runner, gate Gate, spec, siteID string) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("scheduler: invalid spec %q: %w", spec, err)
	}
	s := &Scheduler{
		cron:   cron.New(),
		spec:   spec,
		runner: runner,
		gate:   gate,
		siteID: siteID,
		pick:   rand.IntN,
		logger: slog.Default().With("component", "scheduler"),
	}
	s.cron.Start()
	return s, nil
}

// Enable registers the posting job. It fails with a *license.FeatureError
// when the license lacks auto scheduling. Enabling twice is a no-op.
func (s *Scheduler) Enable() error {
	if err := s.gate.Require(license.FeatureAutoSchedule); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enabled {
		return nil
	}
	id, err := s.cron.AddFunc(s.spec, s.run)
	if err != nil {
		return fmt.Errorf("scheduler: add job: %w", err)
	}
	s.entry = id
	s.enabled = true
	s.logger.Info("schedule enabled", "spec", s.spec)
	return nil
}

// Disable removes the posting job.
func (s *Scheduler) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled {
		return
	}
	s.cron.Remove(s.entry)
	s.enabled = false
	s.logger.Info("schedule disabled")
}

// Toggle flips the schedule and returns the new status.
func (s *Scheduler) Toggle() (Status, error) {
	s.mu.Lock()
	enabled := s.enabled
	s.mu.Unlock()

	if enabled {
		s.Disable()
	} else if err := s.Enable(); err != nil {
		return s.Status(), err
	}
	return s.Status(), nil
}

// Status reports whether the job is registered and when it fires next.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{Enabled: s.enabled, Spec: s.spec}
	if s.enabled {
		if next := s.cron.Entry(s.entry).Next; !next.IsZero() {
			st.Next = &next
		}
	}
	return st
}

// Stop halts the cron and waits for a running job to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	category := pipeline.Categories[s.pick(len(pipeline.Categories))]
	res, err := s.runner.Batch(ctx, pipeline.BatchRequest{
		Count:      1,
		Categories: []string{category},
		SiteID:     s.siteID,
	})
	if err != nil {
		s.logger.Error("scheduled run failed", "category", category, "error", err)
		return
	}
	for _, item := range res.Results {
		if !item.Success {
			s.logger.Warn("scheduled post failed", "category", category, "error", item.Error)
			continue
		}
		s.logger.Info("scheduled post published", "category", category, "title", item.Title, "url", item.URL)
	}
}
