/**
 * @description
 * This file defines the HTTP handlers for the bank-accounts service's API endpoints.
 * Handlers are responsible for parsing requests, validating the required fields,
 * calling the appropriate service method, and writing the response.
 *
 * @notes
 * - Business rule rejections come back from the service as a normal response and
 *   are written with 200 OK; callers inspect the message field.
 * - List endpoints stream newline-delimited JSON when the client asks for
 *   application/x-ndjson and return a JSON array otherwise.
 */
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/achumpitazy/bootcamp-bankaccounts/internal/app"
	"github.com/achumpitazy/bootcamp-bankaccounts/internal/domain"
	"github.com/go-chi/chi/v5"
)

const ndjsonContentType = "application/x-ndjson"

// AccountHandler holds the dependencies for account handlers.
type AccountHandler struct {
	service *app.AccountService
	logger  *slog.Logger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(service *app.AccountService, logger *slog.Logger) *AccountHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountHandler{service: service, logger: logger}
}

// ListAccounts handles GET /account.
func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.GetAll(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeAccounts(w, r, accounts)
}

// GetAccount handles GET /account/{id}.
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.service.GetAccountByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// ListCustomerAccounts handles GET /account/consult/{customerId}.
func (h *AccountHandler) ListCustomerAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.GetAccountsByCustomerID(r.Context(), chi.URLParam(r, "customerId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeAccounts(w, r, accounts)
}

// CreatePersonAccount handles POST /account/person.
func (h *AccountHandler) CreatePersonAccount(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r, validateCreation)
	if !ok {
		return
	}

	resp, err := h.service.CreatePersonAccount(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateCompanyAccount handles POST /account/company.
func (h *AccountHandler) CreateCompanyAccount(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r, validateCreation)
	if !ok {
		return
	}

	resp, err := h.service.CreateCompanyAccount(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateAccount handles PUT /account.
func (h *AccountHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r, validateUpdate)
	if !ok {
		return
	}

	account, err := h.service.UpdateAccount(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// DeleteAccount handles DELETE /account/{id}.
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	msg, err := h.service.DeleteAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// Deposit handles POST /account/deposit.
func (h *AccountHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r, validateMovement)
	if !ok {
		return
	}

	resp, err := h.service.Deposit(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Withdrawal handles POST /account/withdrawal.
func (h *AccountHandler) Withdrawal(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r, validateMovement)
	if !ok {
		return
	}

	resp, err := h.service.Withdrawal(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// RestartTransactions handles PUT /account/restartTransactions. The sweep is
// detached from the request so a client disconnect or the router timeout cannot
// leave it half done.
func (h *AccountHandler) RestartTransactions(w http.ResponseWriter, r *http.Request) {
	msg, err := h.service.RestartTransactions(context.WithoutCancel(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (h *AccountHandler) decodeRequest(w http.ResponseWriter, r *http.Request, validate func(domain.AccountRequest) error) (domain.AccountRequest, bool) {
	var req domain.AccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, domain.Message{Message: "Invalid request body"})
		return req, false
	}
	req.ID = strings.TrimSpace(req.ID)
	req.CustomerID = strings.TrimSpace(req.CustomerID)

	if err := validate(req); err != nil {
		h.writeError(w, r, err)
		return req, false
	}
	return req, true
}

func validateCreation(req domain.AccountRequest) error {
	var missing []string
	if req.CustomerID == "" {
		missing = append(missing, "customerId")
	}
	if req.TypeAccount == 0 {
		missing = append(missing, "typeAccount")
	}
	return missingFields(missing)
}

func validateUpdate(req domain.AccountRequest) error {
	var missing []string
	if req.ID == "" {
		missing = append(missing, "id")
	}
	if req.CustomerID == "" {
		missing = append(missing, "customerId")
	}
	if req.TypeAccount == 0 {
		missing = append(missing, "typeAccount")
	}
	if err := missingFields(missing); err != nil {
		return err
	}
	return validateMoneyScale(req)
}

func validateMovement(req domain.AccountRequest) error {
	if req.ID == "" {
		return missingFields([]string{"id"})
	}
	if !req.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", domain.ErrValidation)
	}
	return validateMoneyScale(req)
}

func validateMoneyScale(req domain.AccountRequest) error {
	if !domain.HasMoneyScale(req.Amount) || !domain.HasMoneyScale(req.Maintenance) {
		return fmt.Errorf("%w: amounts must have at most %d decimal places", domain.ErrValidation, domain.MoneyScale)
	}
	return nil
}

func missingFields(fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	return fmt.Errorf("%w: missing required fields: %s", domain.ErrValidation, strings.Join(fields, ", "))
}

func (h *AccountHandler) writeAccounts(w http.ResponseWriter, r *http.Request, accounts []domain.Account) {
	if accounts == nil {
		accounts = []domain.Account{}
	}
	if !strings.Contains(r.Header.Get("Accept"), ndjsonContentType) {
		writeJSON(w, http.StatusOK, accounts)
		return
	}

	w.Header().Set("Content-Type", ndjsonContentType)
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)
	for i := range accounts {
		if err := enc.Encode(&accounts[i]); err != nil {
			h.logger.Warn("ndjson stream aborted", "path", r.URL.Path, "error", err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// writeError maps service errors to HTTP status codes.
func (h *AccountHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrUnknownAccountType):
		writeJSON(w, http.StatusBadRequest, domain.Message{Message: err.Error()})
	case errors.Is(err, domain.ErrAccountNotFound):
		writeJSON(w, http.StatusNotFound, domain.Message{Message: domain.MsgAccountNotFound})
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		h.logger.Error("upstream failure", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusBadGateway, domain.Message{Message: err.Error()})
	default:
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, domain.Message{Message: "Internal server error"})
	}
}

// writeJSON is a helper to write JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// If encoding fails, we can't send a JSON error, so just log it.
		slog.Error("failed to encode response", "error", err)
	}
}
