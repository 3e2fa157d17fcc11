package cron

import (
	"context"
	"testing"
)

func TestStart_InvalidScheduleRejected(t *testing.T) {
	s := NewService("not a cron expr")
	if err := s.Start(context.Background()); err == nil {
		s.Stop()
		t.Fatal("Start accepted invalid schedule")
	}
}

func TestStart_ValidSixFieldSchedule(t *testing.T) {
	s := NewService("0 0 21 * * *")
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	s.Stop()
}

func TestStart_DoubleStartRejected(t *testing.T) {
	s := NewService("0 0 21 * * *")
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer s.Stop()

	if err := s.Start(context.Background()); err == nil {
		t.Fatal("second Start succeeded")
	}
}

func TestStop_Idempotent(t *testing.T) {
	s := NewService("0 0 21 * * *")
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	s.Stop()
	s.Stop() // must not panic or block
}

func TestStop_BeforeStart(t *testing.T) {
	s := NewService("0 0 21 * * *")
	s.Stop() // must not panic
}
