/**
 * @description
 * This file defines the event handler that processes messages from RabbitMQ.
 * Other services (or operators) can trigger the monthly reset sweep by publishing
 * to the account_events exchange.
 */
package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/achumpitazy/bootcamp-bankaccounts/internal/domain"
)

// AccountEventHandler handles the processing of account-related events.
type AccountEventHandler struct {
	restarter TransactionRestarter
	logger    *slog.Logger
}

// NewAccountEventHandler creates a new instance of AccountEventHandler.
func NewAccountEventHandler(restarter TransactionRestarter, logger *slog.Logger) *AccountEventHandler {
	return &AccountEventHandler{restarter: restarter, logger: logger}
}

// HandleRestartTransactionsEvent runs the reset sweep. It returns true to ack the
// message and false to requeue it.
func (h *AccountEventHandler) HandleRestartTransactionsEvent(body []byte) bool {
	var event domain.RestartTransactionsEvent
	if len(body) > 0 {
		if err := json.Unmarshal(body, &event); err != nil {
			h.logger.Warn("malformed restart transactions event; acking", "error", err)
			return true
		}
	}

	h.logger.Info("processing restart transactions event", "requested_by", event.RequestedBy)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if _, err := h.restarter.RestartTransactions(ctx); err != nil {
		h.logger.Error("restart transactions event failed; requeueing", "error", err)
		return false
	}
	return true
}
