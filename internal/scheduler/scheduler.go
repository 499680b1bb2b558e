// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package scheduler drives the polling and aggregation jobs on top of
// gocron/v2: cron/interval triggers, at-most-one concurrent run per job
// (gocron's reschedule singleton mode), and a
// STOPPED -> STARTING -> RUNNING -> STOPPING -> STOPPED lifecycle,
// generalized from a single fixed job list to a runtime-registered one.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/robfig/cron/v3"

	"github.com/wontakkang/xgtcore/pkg/log"
)

// State is the scheduler's own lifecycle state, independent of gocron's
// internal bookkeeping.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "STOPPED"
	case StateStarting:
		return "STARTING"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	default:
		return "UNKNOWN"
	}
}

// JobSpec describes one job to register: either a polling job for a
// client/setup-group or a fixed aggregation job.
type JobSpec struct {
	Name     string
	Cron     string        // standard 5-field cron expression
	Interval time.Duration // used instead of Cron when non-zero
	// MisfireGrace bounds how late a fire may start and still run
	// (15-300s by job kind); gocron has no native
	// concept of this so the scheduler enforces it itself by skipping a
	// fire whose scheduled time is older than MisfireGrace.
	MisfireGrace time.Duration
	// Offset delays the start of Run by a fixed amount after the cron
	// fire, e.g. the 10-min/hourly aggregation jobs' "+5s"/"+10s"
	// offsets that give the preceding finer-grained job
	// time to make its writes visible.
	Offset time.Duration
	Run    func(ctx context.Context) error
}

// Scheduler wraps a gocron.Scheduler with at-most-one-per-job and
// coalesce=false semantics (every fire attempts, none are merged),
// plus skip-and-log behavior when a fire arrives while the previous
// run is still executing.
type Scheduler struct {
	mu    sync.Mutex
	state State
	inner gocron.Scheduler
	jobs  map[string]gocron.Job

	shutdownGrace time.Duration
}

// New builds a Scheduler. shutdownGrace bounds how long Stop waits for
// in-flight jobs before hard-cancelling (default 30s).
func New(shutdownGrace time.Duration) (*Scheduler, error) {
	inner, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("scheduler.New: %w", err)
	}
	if shutdownGrace <= 0 {
		shutdownGrace = 30 * time.Second
	}
	return &Scheduler{inner: inner, jobs: make(map[string]gocron.Job), shutdownGrace: shutdownGrace, state: StateStopped}, nil
}

// Register adds a job. Every job runs under WithSingletonMode(LimitModeReschedule):
// max_instances=1, coalesce=false — if a fire arrives while the previous
// run is still executing, gocron reschedules (effectively skips) it and
// the wrapped task logs that it happened.
func (s *Scheduler) Register(spec JobSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var schedule cron.Schedule
	if spec.Cron != "" {
		var err error
		schedule, err = cron.ParseStandard(spec.Cron)
		if err != nil {
			return fmt.Errorf("scheduler.Register(%s): invalid cron expression %q: %w", spec.Name, spec.Cron, err)
		}
	}

	// expectedFire holds the unix-nano time this job's next fire is due,
	// recomputed from schedule/Interval after every actual fire so the
	// misfire-grace check below compares against the job's own schedule
	// rather than its own invocation time.
	var expectedFire atomic.Int64
	now := time.Now()
	if schedule != nil {
		expectedFire.Store(schedule.Next(now).UnixNano())
	} else if spec.Interval > 0 {
		expectedFire.Store(now.Add(spec.Interval).UnixNano())
	}

	running := false
	task := gocron.NewTask(func() {
		firedAt := time.Now()

		skip := false
		if spec.MisfireGrace > 0 {
			if exp := expectedFire.Load(); exp != 0 {
				if late := firedAt.Sub(time.Unix(0, exp)); late > spec.MisfireGrace {
					log.Warnf("scheduler: skipping job %q, fired %v late (misfire grace %v)", spec.Name, late, spec.MisfireGrace)
					skip = true
				}
			}
		}
		if schedule != nil {
			expectedFire.Store(schedule.Next(firedAt).UnixNano())
		} else if spec.Interval > 0 {
			expectedFire.Store(firedAt.Add(spec.Interval).UnixNano())
		}
		if skip {
			return
		}

		s.mu.Lock()
		if running {
			log.Warnf("scheduler: skipping overlapping fire of job %q", spec.Name)
			s.mu.Unlock()
			return
		}
		running = true
		s.mu.Unlock()

		defer func() {
			s.mu.Lock()
			running = false
			s.mu.Unlock()
		}()

		if spec.Offset > 0 {
			time.Sleep(spec.Offset)
		}

		ctx := context.Background()
		start := time.Now()
		if err := spec.Run(ctx); err != nil {
			log.Errorf("scheduler: job %q failed after %v: %v", spec.Name, time.Since(start), err)
			return
		}
		log.Debugf("scheduler: job %q completed in %v", spec.Name, time.Since(start))
	})

	var def gocron.JobDefinition
	if spec.Cron != "" {
		def = gocron.CronJob(spec.Cron, false)
	} else {
		def = gocron.DurationJob(spec.Interval)
	}

	job, err := s.inner.NewJob(def, task,
		gocron.WithName(spec.Name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("scheduler.Register(%s): %w", spec.Name, err)
	}
	s.jobs[spec.Name] = job
	return nil
}

// Start transitions STOPPED -> STARTING -> RUNNING and starts firing
// registered jobs.
func (s *Scheduler) Start() {
	s.mu.Lock()
	s.state = StateStarting
	s.mu.Unlock()

	s.inner.Start()

	s.mu.Lock()
	s.state = StateRunning
	s.mu.Unlock()
	log.Info("scheduler: running")
}

// Stop transitions RUNNING -> STOPPING, waits up to shutdownGrace for
// in-flight jobs, then returns regardless. gocron.Shutdown itself
// blocks until jobs finish, so the grace window is enforced by racing
// it against a timer.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	s.state = StateStopping
	s.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- s.inner.Shutdown() }()

	select {
	case err := <-done:
		s.mu.Lock()
		s.state = StateStopped
		s.mu.Unlock()
		return err
	case <-time.After(s.shutdownGrace):
		log.Warnf("scheduler: shutdown grace (%v) exceeded, returning without waiting further", s.shutdownGrace)
		s.mu.Lock()
		s.state = StateStopped
		s.mu.Unlock()
		return nil
	}
}

// State reports the scheduler's current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
