package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/achumpitazy/bootcamp-bankaccounts/internal/domain"
)

type restarterStub struct {
	calls   int
	err     error
	lastCtx context.Context
}

func (s *restarterStub) RestartTransactions(ctx context.Context) (*domain.Message, error) {
	s.calls++
	s.lastCtx = ctx
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Message{Message: domain.MsgTransactionsRestarted}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRestartMonthlyTransactions_RunsSweepWithDeadline(t *testing.T) {
	restarter := &restarterStub{}
	jobs := NewJobs(restarter, discardLogger(), time.Minute)

	jobs.RestartMonthlyTransactions()

	if restarter.calls != 1 {
		t.Fatalf("expected one sweep, got %d", restarter.calls)
	}
	if _, ok := restarter.lastCtx.Deadline(); !ok {
		t.Fatal("expected the sweep context to carry a deadline")
	}
}

func TestRestartMonthlyTransactions_SurvivesSweepError(t *testing.T) {
	restarter := &restarterStub{err: errors.New("database unavailable")}
	jobs := NewJobs(restarter, discardLogger(), 0)

	jobs.RestartMonthlyTransactions()

	if restarter.calls != 1 {
		t.Fatalf("expected one sweep attempt, got %d", restarter.calls)
	}
}

func TestScheduler_RejectsInvalidSchedule(t *testing.T) {
	scheduler := NewScheduler(NewJobs(&restarterStub{}, discardLogger(), 0), discardLogger(), "every full moon")

	if err := scheduler.Start(); err == nil {
		scheduler.Stop()
		t.Fatal("expected invalid schedule to be rejected")
	}
}

func TestScheduler_StartsWithMonthlySchedule(t *testing.T) {
	scheduler := NewScheduler(NewJobs(&restarterStub{}, discardLogger(), 0), discardLogger(), "0 0 1 * *")

	if err := scheduler.Start(); err != nil {
		t.Fatalf("expected monthly schedule to be accepted, got %v", err)
	}
	<-scheduler.Stop().Done()
}
