/**
 * @description
 * Scheduled job implementations for the bank-accounts service.
 */
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/achumpitazy/bootcamp-bankaccounts/internal/domain"
)

// TransactionRestarter runs the monthly reset sweep.
type TransactionRestarter interface {
	RestartTransactions(ctx context.Context) (*domain.Message, error)
}

// Jobs contains the logic for all scheduled tasks.
type Jobs struct {
	restarter TransactionRestarter
	logger    *slog.Logger
	timeout   time.Duration
}

// NewJobs creates a new Jobs runner.
func NewJobs(restarter TransactionRestarter, logger *slog.Logger, timeout time.Duration) *Jobs {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Jobs{
		restarter: restarter,
		logger:    logger,
		timeout:   timeout,
	}
}

// RestartMonthlyTransactions restores every account's monthly movement allowance.
func (j *Jobs) RestartMonthlyTransactions() {
	j.logger.Info("starting restart transactions job")
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	msg, err := j.restarter.RestartTransactions(ctx)
	if err != nil {
		j.logger.Error("failed to restart account transactions", "error", err)
		return
	}

	j.logger.Info("restart transactions job finished", "message", msg.Message)
}
