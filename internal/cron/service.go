// Package cron runs background maintenance on a schedule: sweeping expired
// sessions out of the in-memory backend and logging a daily activity report.
package cron

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"

	"github.com/stellarlinkco/luma/internal/config"
	"github.com/stellarlinkco/luma/internal/engine"
)

// Sweeper is implemented by backends that need explicit expiry (the in-memory
// backend; Redis expires keys on its own).
type Sweeper interface {
	Sweep() int
}

type Service struct {
	cfg     config.MaintenanceConfig
	engine  *engine.Engine
	sweeper Sweeper

	mu   sync.Mutex
	cron *rcron.Cron
}

// NewService wires maintenance jobs for the engine. sweeper may be nil when
// the storage backend handles expiry itself.
func NewService(cfg config.MaintenanceConfig, eng *engine.Engine, sweeper Sweeper) *Service {
	return &Service{
		cfg:     cfg,
		engine:  eng,
		sweeper: sweeper,
	}
}

func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return nil
	}

	c := rcron.New(rcron.WithSeconds())

	if s.sweeper != nil {
		if _, err := c.AddFunc(s.cfg.SweepSpec, s.runSweep); err != nil {
			return fmt.Errorf("register sweep job (%s): %w", s.cfg.SweepSpec, err)
		}
	}
	if _, err := c.AddFunc(s.cfg.ReportSpec, s.runReport); err != nil {
		return fmt.Errorf("register report job (%s): %w", s.cfg.ReportSpec, err)
	}

	c.Start()
	s.cron = c
	log.Printf("[cron] maintenance started (sweep %q, report %q)", s.cfg.SweepSpec, s.cfg.ReportSpec)
	return nil
}

func (s *Service) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		log.Printf("[cron] stop timeout waiting for running jobs")
	}
	log.Printf("[cron] maintenance stopped")
}

func (s *Service) runSweep() {
	removed := s.sweeper.Sweep()
	if removed > 0 {
		log.Printf("[cron] swept %d expired records", removed)
	}
}

func (s *Service) runReport() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stats := s.engine.GetSystemStats()
	checks := s.engine.HealthCheck(ctx)
	log.Printf("[cron] daily report: turns=%d tokens=%d persona=%s model=%s healthy=%t",
		stats.TotalTurns, stats.TotalTokens, stats.PersonaName, stats.Model, checks["overall"])
}
