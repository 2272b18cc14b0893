package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/achumpitazy/bootcamp-bankaccounts/internal/app"
	"github.com/achumpitazy/bootcamp-bankaccounts/internal/config"
	"github.com/achumpitazy/bootcamp-bankaccounts/internal/domain"
	"github.com/achumpitazy/bootcamp-bankaccounts/internal/store"
	"github.com/shopspring/decimal"
)

type customersStub struct{}

func (customersStub) GetPersonByID(ctx context.Context, id string) (*domain.Customer, error) {
	if id == "00001" {
		return &domain.Customer{ID: id, TypeCustomer: "STANDARD"}, nil
	}
	return nil, nil
}

func (customersStub) GetCompanyByID(ctx context.Context, id string) (*domain.Customer, error) {
	if id == "20100" {
		return &domain.Customer{ID: id, TypeCustomer: "PYME"}, nil
	}
	return nil, nil
}

type transactionsStub struct {
	err error
}

func (s *transactionsStub) CreateTransaction(ctx context.Context, record domain.TransactionRecord) error {
	return s.err
}

type testServer struct {
	handler      http.Handler
	repo         *store.MemoryAccountRepository
	transactions *transactionsStub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := store.NewMemoryAccountRepository()
	transactions := &transactionsStub{}

	service := app.NewAccountService(repo, customersStub{}, transactions, logger)
	service.SetClock(func() time.Time { return time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC) })

	cfg := &config.Config{CORSAllowedOrigins: "*", MovementThrottle: 10}
	return &testServer{
		handler:      NewRouter(cfg, service, nil, logger),
		repo:         repo,
		transactions: transactions,
	}
}

func (s *testServer) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) seed(t *testing.T, typeCode int, amount int64, remaining int) *domain.Account {
	t.Helper()
	typ, err := domain.LookupTypeAccount(typeCode)
	if err != nil {
		t.Fatalf("lookup type: %v", err)
	}
	saved, err := s.repo.Save(context.Background(), &domain.Account{
		CustomerID:      "00001",
		TypeAccount:     typ.Code,
		TypeAccountName: typ.Name,
		Amount:          decimal.NewFromInt(amount),
		Maintenance:     typ.MaintenanceFee,
		Transactions:    remaining,
		OperationDay:    typ.OperationDay,
		NumberAccount:   "04112122",
		TypeCustomer:    "STANDARD",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return saved
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) domain.AccountResponse {
	t.Helper()
	var resp domain.AccountResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "healthy" {
		t.Fatalf("unexpected health response %d %q", rec.Code, rec.Body.String())
	}
}

func TestCreatePersonAccount(t *testing.T) {
	s := newTestServer(t)
	body := `{"customerId":"00001","typeAccount":2,"dateAccount":"2026-04-04T12:00:00Z","numberAccount":"04112122","typeCustomer":"PERSON"}`

	rec := s.do(t, http.MethodPost, "/account/person", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	if resp.Account == nil || resp.Message != domain.MsgAccountCreated {
		t.Fatalf("expected created account, got %+v", resp)
	}
	if resp.Account.TypeAccountName != domain.SavingsTypeName || resp.Account.Transactions != 5 {
		t.Fatalf("expected SAVINGS with 5 transactions, got %+v", resp.Account)
	}

	rec = s.do(t, http.MethodPost, "/account/person", body)
	resp = decodeResponse(t, rec)
	if rec.Code != http.StatusOK || resp.Account != nil {
		t.Fatalf("expected 200 rejection for duplicate, got %d %+v", rec.Code, resp)
	}
	if !strings.Contains(rec.Body.String(), `"account":null`) {
		t.Fatalf("expected null account in body, got %s", rec.Body.String())
	}
}

func TestCreateCompanyAccount_RejectsSavings(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/account/company", `{"customerId":"20100","typeAccount":2}`)
	resp := decodeResponse(t, rec)
	if rec.Code != http.StatusOK || resp.Account != nil || resp.Message != domain.MsgCompanyOnlyType+domain.CheckingTypeName {
		t.Fatalf("unexpected response %d %+v", rec.Code, resp)
	}
}

func TestCreateAccount_BadRequests(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"customerId":`},
		{name: "missing customer", body: `{"typeAccount":1}`},
		{name: "missing type", body: `{"customerId":"00001"}`},
		{name: "unknown type", body: `{"customerId":"00001","typeAccount":9}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/account/person", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestDepositAndWithdrawal(t *testing.T) {
	s := newTestServer(t)
	account := s.seed(t, 2, 100, 5)

	rec := s.do(t, http.MethodPost, "/account/deposit", `{"id":"`+account.ID+`","amount":50}`)
	resp := decodeResponse(t, rec)
	if rec.Code != http.StatusOK || resp.Account == nil {
		t.Fatalf("expected successful deposit, got %d %+v", rec.Code, resp)
	}
	if !resp.Account.Amount.Equal(decimal.NewFromInt(150)) || resp.Account.Transactions != 4 {
		t.Fatalf("expected 150/4, got %s/%d", resp.Account.Amount, resp.Account.Transactions)
	}

	rec = s.do(t, http.MethodPost, "/account/withdrawal", `{"id":"`+account.ID+`","amount":"200"}`)
	resp = decodeResponse(t, rec)
	if rec.Code != http.StatusOK || resp.Account != nil || resp.Message != domain.MsgInsufficientBalance {
		t.Fatalf("expected insufficient balance rejection, got %d %+v", rec.Code, resp)
	}
}

func TestMovement_ErrorStatuses(t *testing.T) {
	s := newTestServer(t)
	account := s.seed(t, 1, 100, 10)

	if rec := s.do(t, http.MethodPost, "/account/deposit", `{"id":"`+account.ID+`","amount":0}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero amount, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/account/withdrawal", `{"amount":10}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing id, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/account/deposit", `{"id":"missing","amount":10}`); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown account, got %d", rec.Code)
	}

	s.transactions.err = errors.New("transaction service down")
	if rec := s.do(t, http.MethodPost, "/account/deposit", `{"id":"`+account.ID+`","amount":10}`); rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 when the transaction service fails, got %d", rec.Code)
	}
}

func TestGetAccount(t *testing.T) {
	s := newTestServer(t)
	account := s.seed(t, 1, 0, 10)

	rec := s.do(t, http.MethodGet, "/account/"+account.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got domain.Account
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode account: %v", err)
	}
	if got.ID != account.ID || got.TypeAccountName != domain.CheckingTypeName {
		t.Fatalf("unexpected account %+v", got)
	}
	if !strings.Contains(rec.Body.String(), `"descripTypeAccount":"CHECKING"`) {
		t.Fatalf("expected descripTypeAccount field in body, got %s", rec.Body.String())
	}

	if rec := s.do(t, http.MethodGet, "/account/missing", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown account, got %d", rec.Code)
	}
}

func TestListAccounts_JSONAndNDJSON(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, 1, 0, 10)
	s.seed(t, 2, 0, 5)

	rec := s.do(t, http.MethodGet, "/account", "")
	var accounts []domain.Account
	if err := json.Unmarshal(rec.Body.Bytes(), &accounts); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(accounts))
	}

	rec = s.do(t, http.MethodGet, "/account/consult/00001", "", "Accept", ndjsonContentType)
	if ct := rec.Header().Get("Content-Type"); ct != ndjsonContentType {
		t.Fatalf("expected ndjson content type, got %q", ct)
	}
	lines := 0
	scanner := bufio.NewScanner(rec.Body)
	for scanner.Scan() {
		var account domain.Account
		if err := json.Unmarshal(scanner.Bytes(), &account); err != nil {
			t.Fatalf("decode ndjson line: %v", err)
		}
		lines++
	}
	if lines != 2 {
		t.Fatalf("expected 2 ndjson lines, got %d", lines)
	}

	rec = s.do(t, http.MethodGet, "/account/consult/nobody", "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected empty array for unknown customer, got %s", rec.Body.String())
	}
}

func TestUpdateAccount(t *testing.T) {
	s := newTestServer(t)
	account := s.seed(t, 1, 0, 10)

	body := `{"id":"` + account.ID + `","customerId":"00001","typeAccount":2,"amount":25,"maintenance":0,"transaction":3,"operationDay":1,"numberAccount":"1","typeCustomer":"STANDARD"}`
	rec := s.do(t, http.MethodPut, "/account", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got domain.Account
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode account: %v", err)
	}
	if got.TypeAccountName != domain.SavingsTypeName || got.Transactions != 3 || !got.Amount.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("unexpected updated account %+v", got)
	}

	if rec := s.do(t, http.MethodPut, "/account", `{"id":"missing","customerId":"00001","typeAccount":2}`); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown account, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPut, "/account", `{"customerId":"00001","typeAccount":2}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing id, got %d", rec.Code)
	}
}

func TestDeleteAndRestart(t *testing.T) {
	s := newTestServer(t)
	account := s.seed(t, 2, 0, 0)

	rec := s.do(t, http.MethodPut, "/account/restartTransactions", "")
	var msg domain.Message
	if err := json.Unmarshal(rec.Body.Bytes(), &msg); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if rec.Code != http.StatusOK || msg.Message != domain.MsgTransactionsRestarted {
		t.Fatalf("unexpected restart response %d %+v", rec.Code, msg)
	}
	stored, _ := s.repo.FindByID(context.Background(), account.ID)
	if stored.Transactions != 5 {
		t.Fatalf("expected allowance reset to 5, got %d", stored.Transactions)
	}

	rec = s.do(t, http.MethodDelete, "/account/"+account.ID, "")
	if err := json.Unmarshal(rec.Body.Bytes(), &msg); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if msg.Message != domain.MsgAccountDeleted {
		t.Fatalf("expected deleted message, got %q", msg.Message)
	}

	rec = s.do(t, http.MethodDelete, "/account/"+account.ID, "")
	if err := json.Unmarshal(rec.Body.Bytes(), &msg); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if rec.Code != http.StatusOK || msg.Message != domain.MsgAccountNotFound {
		t.Fatalf("expected does-not-exist message, got %d %+v", rec.Code, msg)
	}
}

func TestMovementAndUpdate_RejectSubCentAmounts(t *testing.T) {
	s := newTestServer(t)
	account := s.seed(t, 2, 100, 5)

	rec := s.do(t, http.MethodPost, "/account/deposit", `{"id":"`+account.ID+`","amount":"0.005"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for sub-cent deposit, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = s.do(t, http.MethodPost, "/account/withdrawal", `{"id":"`+account.ID+`","amount":10.125}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for sub-cent withdrawal, got %d: %s", rec.Code, rec.Body.String())
	}

	body := `{"id":"` + account.ID + `","customerId":"00001","typeAccount":2,"amount":"100.00","maintenance":"1.001","transaction":5}`
	if rec := s.do(t, http.MethodPut, "/account", body); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for sub-cent maintenance, got %d: %s", rec.Code, rec.Body.String())
	}

	stored, _ := s.repo.FindByID(context.Background(), account.ID)
	if !stored.Amount.Equal(decimal.NewFromInt(100)) || stored.Transactions != 5 {
		t.Fatalf("expected account untouched at 100/5, got %s/%d", stored.Amount, stored.Transactions)
	}

	rec = s.do(t, http.MethodPost, "/account/deposit", `{"id":"`+account.ID+`","amount":"0.01"}`)
	resp := decodeResponse(t, rec)
	if rec.Code != http.StatusOK || resp.Account == nil || !resp.Account.Amount.Equal(decimal.RequireFromString("100.01")) {
		t.Fatalf("expected cent deposit to succeed with 100.01, got %d %+v", rec.Code, resp)
	}
}

func TestRestartTransactions_SurvivesClientDisconnect(t *testing.T) {
	s := newTestServer(t)
	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, s.seed(t, 2, 0, 0).ID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPut, "/account/restartTransactions", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	for _, id := range ids {
		stored, _ := s.repo.FindByID(context.Background(), id)
		if stored.Transactions != 5 {
			t.Fatalf("account %s: expected allowance reset to 5 after disconnect, got %d", id, stored.Transactions)
		}
	}
}
