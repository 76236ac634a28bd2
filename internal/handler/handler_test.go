package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nathanyu/account-ledger/internal/domain"
	"github.com/nathanyu/account-ledger/internal/engine"
	"github.com/nathanyu/account-ledger/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- helpers ----

func newTestRouter(t *testing.T, resetEnabled bool) (*gin.Engine, *engine.TransferService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := engine.NewTransferService(store.NewAccountStore(), nil)
	r := gin.New()
	SetupRoutes(r, NewHandler(svc, resetEnabled))
	return r, svc
}

func doRequest(router *gin.Engine, method, url, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req, _ = http.NewRequest(method, url, nil)
	} else {
		req, _ = http.NewRequest(method, url, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func seed(t *testing.T, svc *engine.TransferService, balances map[string]int64) {
	t.Helper()
	for id, balance := range balances {
		_, err := svc.CreateAccount(context.Background(), id, decimal.NewFromInt(balance))
		require.NoError(t, err)
	}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// ---- tests ----

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t, false)

	w := doRequest(r, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestCreateAccount(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"string balance", `{"account_id":"A","balance":"1000.50"}`, http.StatusCreated, ""},
		{"numeric balance", `{"account_id":"B","balance":250}`, http.StatusCreated, ""},
		{"zero balance", `{"account_id":"C","balance":"0"}`, http.StatusCreated, ""},
		{"negative balance", `{"account_id":"D","balance":"-1"}`, http.StatusBadRequest, domain.CodeInvalidAmount},
		{"missing id", `{"balance":"1"}`, http.StatusBadRequest, domain.CodeInvalidRequest},
		{"missing balance", `{"account_id":"E"}`, http.StatusBadRequest, domain.CodeInvalidRequest},
		{"bad balance", `{"account_id":"F","balance":"lots"}`, http.StatusBadRequest, domain.CodeInvalidRequest},
		{"malformed", `{`, http.StatusBadRequest, domain.CodeInvalidRequest},
	}

	r, _ := newTestRouter(t, false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(r, http.MethodPost, "/v1/accounts", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, w).Code)
			}
		})
	}
}

func TestCreateAccount_Duplicate(t *testing.T) {
	r, svc := newTestRouter(t, false)
	seed(t, svc, map[string]int64{"A": 1000})

	w := doRequest(r, http.MethodPost, "/v1/accounts", `{"account_id":"A","balance":"5"}`)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, domain.CodeDuplicateAccount, decodeError(t, w).Code)

	account, err := svc.GetAccount(context.Background(), "A")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1000).Equal(account.Balance))
}

func TestGetAccount(t *testing.T) {
	r, svc := newTestRouter(t, false)
	seed(t, svc, map[string]int64{"A": 1000})

	w := doRequest(r, http.MethodGet, "/v1/accounts/A", "")
	require.Equal(t, http.StatusOK, w.Code)

	var account domain.Account
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &account))
	assert.Equal(t, "A", account.ID)
	assert.True(t, decimal.NewFromInt(1000).Equal(account.Balance))

	w = doRequest(r, http.MethodGet, "/v1/accounts/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, domain.CodeAccountNotFound, decodeError(t, w).Code)
}

func TestListAccounts(t *testing.T) {
	r, svc := newTestRouter(t, false)
	seed(t, svc, map[string]int64{"B": 200, "A": 100})

	w := doRequest(r, http.MethodGet, "/v1/accounts", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp AccountsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.AccountCount)
	require.Len(t, resp.Accounts, 2)
	assert.Equal(t, "A", resp.Accounts[0].ID)
	assert.True(t, decimal.NewFromInt(300).Equal(resp.TotalBalance))
}

func TestTransfer(t *testing.T) {
	r, svc := newTestRouter(t, false)
	seed(t, svc, map[string]int64{"A": 1000, "B": 1000})

	w := doRequest(r, http.MethodPost, "/v1/transfers",
		`{"transaction_id":"tx-1","from_account":"A","to_account":"B","amount":"100.25"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp TransferResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "tx-1", resp.TransactionID)
	assert.True(t, decimal.RequireFromString("899.75").Equal(resp.From.Balance))
	assert.True(t, decimal.RequireFromString("1100.25").Equal(resp.To.Balance))
}

func TestTransfer_GeneratesTransactionID(t *testing.T) {
	r, svc := newTestRouter(t, false)
	seed(t, svc, map[string]int64{"A": 1000, "B": 1000})

	w := doRequest(r, http.MethodPost, "/v1/transfers", `{"from_account":"A","to_account":"B","amount":1}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp TransferResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.TransactionID)
}

func TestTransfer_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"unknown source", `{"from_account":"X","to_account":"B","amount":"1"}`, http.StatusNotFound, domain.CodeAccountNotFound},
		{"unknown target", `{"from_account":"A","to_account":"X","amount":"1"}`, http.StatusNotFound, domain.CodeAccountNotFound},
		{"zero amount", `{"from_account":"A","to_account":"B","amount":"0"}`, http.StatusBadRequest, domain.CodeInvalidAmount},
		{"negative amount", `{"from_account":"A","to_account":"B","amount":"-5"}`, http.StatusBadRequest, domain.CodeInvalidAmount},
		{"same account", `{"from_account":"A","to_account":"A","amount":"1"}`, http.StatusBadRequest, domain.CodeSameAccount},
		{"insufficient funds", `{"from_account":"A","to_account":"B","amount":"1000.01"}`, http.StatusUnprocessableEntity, domain.CodeInsufficientFunds},
		{"missing amount", `{"from_account":"A","to_account":"B"}`, http.StatusBadRequest, domain.CodeInvalidRequest},
		{"missing source", `{"to_account":"B","amount":"1"}`, http.StatusBadRequest, domain.CodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, svc := newTestRouter(t, false)
			seed(t, svc, map[string]int64{"A": 1000, "B": 1000})

			w := doRequest(r, http.MethodPost, "/v1/transfers", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.wantCode, decodeError(t, w).Code)
			assert.True(t, decimal.NewFromInt(2000).Equal(svc.TotalBalance(context.Background())))
		})
	}
}

func TestStatusFor_UpdateFault(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, statusFor(&domain.AccountNotFoundOnUpdateError{AccountID: "A"}))
}

func TestClearAccounts(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		r, svc := newTestRouter(t, false)
		seed(t, svc, map[string]int64{"A": 1})

		w := doRequest(r, http.MethodDelete, "/v1/accounts", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Len(t, svc.ListAccounts(context.Background()), 1)
	})

	t.Run("enabled", func(t *testing.T) {
		r, svc := newTestRouter(t, true)
		seed(t, svc, map[string]int64{"A": 1, "B": 2})

		w := doRequest(r, http.MethodDelete, "/v1/accounts", "")

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, svc.ListAccounts(context.Background()))
	})
}
