// Package cron runs the built-in nag schedule. External schedulers hitting
// the /hooks/nag endpoint remain the primary path; this service is the
// self-contained alternative for deployments without one.
package cron

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"
)

type Service struct {
	schedule string
	OnNag    func()

	mu     sync.Mutex
	cron   *rcron.Cron
	stopCh chan struct{}
}

func NewService(schedule string) *Service {
	return &Service{schedule: schedule}
}

// Start registers the nag schedule and begins ticking. The expression uses
// the six-field form with a leading seconds column.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return fmt.Errorf("cron service already started")
	}

	c := rcron.New(rcron.WithSeconds())
	if _, err := c.AddFunc(s.schedule, func() {
		log.Printf("[cron] nag schedule fired")
		if s.OnNag == nil {
			log.Printf("[cron] no OnNag handler set")
			return
		}
		s.OnNag()
	}); err != nil {
		return fmt.Errorf("register nag schedule %q: %w", s.schedule, err)
	}

	stopCh := make(chan struct{})
	s.cron = c
	s.stopCh = stopCh
	c.Start()
	log.Printf("[cron] started, nag schedule %q", s.schedule)

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-stopCh:
		}
	}()

	return nil
}

func (s *Service) Stop() {
	s.mu.Lock()
	c := s.cron
	stopCh := s.stopCh
	s.cron = nil
	s.stopCh = nil
	s.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
	}
	if c != nil {
		stopCtx := c.Stop()
		select {
		case <-stopCtx.Done():
		case <-time.After(5 * time.Second):
			log.Printf("[cron] stop timeout waiting for running job")
		}
	}
	log.Printf("[cron] stopped")
}
