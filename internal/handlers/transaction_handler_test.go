package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/siocraft/finance-tracker-api/internal/audit"
	"github.com/siocraft/finance-tracker-api/internal/auth"
	"github.com/siocraft/finance-tracker-api/internal/config"
	"github.com/siocraft/finance-tracker-api/internal/database"
	"github.com/siocraft/finance-tracker-api/internal/logger"
	"github.com/siocraft/finance-tracker-api/internal/models"
	"github.com/siocraft/finance-tracker-api/internal/services"
)

type tokenVerifier map[string]string

func (v tokenVerifier) VerifyToken(_ context.Context, token string) (*auth.Identity, error) {
	userID, ok := v[token]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return &auth.Identity{UserID: userID}, nil
}

var testTokens = tokenVerifier{"token-a": "user-a", "token-b": "user-b"}

func newTestRouter(t *testing.T, svc TransactionService) http.Handler {
	t.Helper()
	log := logger.Discard()
	return NewRouter(RouterConfig{
		Transactions: NewTransactionHandler(svc, log),
		Verifier:     testTokens,
		CORS:         config.CORSConfig{AllowedOrigins: []string{"*"}},
		Log:          log,
	})
}

func newFileBackedRouter(t *testing.T) http.Handler {
	t.Helper()
	store := database.NewFileStore(t.TempDir(), false, logger.Discard())
	svc := services.NewTransactionService(store, database.NewMutexLocker(), audit.NewAuditLogger(logger.Discard()), logger.Discard())
	require.NoError(t, svc.Initialize(context.Background()))
	return newTestRouter(t, svc)
}

func do(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) services.ErrorResponse {
	t.Helper()
	var resp services.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func createVia(t *testing.T, h http.Handler, token string, amount int) models.Transaction {
	t.Helper()
	body := fmt.Sprintf(`{"amount": %d, "description": "item %d", "type": "expense"}`, amount, amount)
	rec := do(t, h, http.MethodPost, "/api/v1/transactions", token, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created models.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	return created
}

func TestHealth(t *testing.T) {
	h := newFileBackedRouter(t)

	rec := do(t, h, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.False(t, resp.Timestamp.IsZero())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestRoutesRequireAuth(t *testing.T) {
	h := newFileBackedRouter(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/transactions"},
		{http.MethodPost, "/api/v1/transactions"},
		{http.MethodGet, "/api/v1/transactions/abc"},
		{http.MethodPut, "/api/v1/transactions/abc"},
		{http.MethodDelete, "/api/v1/transactions/abc"},
	} {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			rec := do(t, h, route.method, route.path, "", "")
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Authorization header missing", errorOf(t, rec).Error)

			rec = do(t, h, route.method, route.path, "forged", "")
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Invalid or expired token", errorOf(t, rec).Error)
		})
	}
}

func TestCreateTransaction(t *testing.T) {
	h := newFileBackedRouter(t)

	t.Run("created with defaults", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/v1/transactions", "token-a",
			`{"amount": 150.75, "description": "Grocery shopping", "type": "expense", "userId": "someone-else", "id": "chosen"}`)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var created models.Transaction
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		assert.NotEmpty(t, created.ID)
		assert.NotEqual(t, "chosen", created.ID)
		assert.Equal(t, "user-a", created.UserID)
		assert.True(t, created.Amount.Equal(decimal.RequireFromString("150.75")))
		assert.Equal(t, models.DefaultCategory, created.Category)
		assert.Nil(t, created.UpdatedAt)
		assert.NotContains(t, rec.Body.String(), "updatedAt")
		assert.Contains(t, rec.Body.String(), `"amount":150.75`)
	})

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{"missing fields", `{}`, http.StatusBadRequest, "Validation failed"},
		{"bad type", `{"amount": 5, "description": "x", "type": "gift"}`, http.StatusBadRequest, "Validation failed"},
		{"zero amount", `{"amount": 0, "description": "x", "type": "income"}`, http.StatusBadRequest, "invalid transaction: amount must not be zero"},
		{"malformed json", `{"amount": `, http.StatusBadRequest, "Invalid request body"},
		{"non numeric amount", `{"amount": "lots", "description": "x", "type": "income"}`, http.StatusBadRequest, "Invalid request body"},
		{"two objects", `{"amount": 1, "description": "x", "type": "income"}{}`, http.StatusBadRequest, "Request body must only contain a single JSON object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/v1/transactions", "token-a", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantError, errorOf(t, rec).Error)
		})
	}

	t.Run("validation details name the fields", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/v1/transactions", "token-a", `{"description": "x", "type": "gift"}`)
		resp := errorOf(t, rec)
		assert.Contains(t, resp.Details, "amount")
		assert.Contains(t, resp.Details, "type")
	})

	t.Run("oversized body", func(t *testing.T) {
		big := `{"description": "` + strings.Repeat("a", maxBodyBytes) + `", "amount": 1, "type": "income"}`
		rec := do(t, h, http.MethodPost, "/api/v1/transactions", "token-a", big)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestTransactionLifecycle(t *testing.T) {
	h := newFileBackedRouter(t)

	a10 := createVia(t, h, "token-a", 10)
	createVia(t, h, "token-a", 20)
	a30 := createVia(t, h, "token-a", 30)
	b999 := createVia(t, h, "token-b", 999)

	t.Run("unpaginated list is scoped", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/v1/transactions", "token-a", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var list []models.Transaction
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
		require.Len(t, list, 3)
		for _, tx := range list {
			assert.Equal(t, "user-a", tx.UserID)
		}
	})

	t.Run("empty list is an array", func(t *testing.T) {
		store := database.NewFileStore(t.TempDir(), false, logger.Discard())
		svc := services.NewTransactionService(store, database.NewMutexLocker(), audit.NewAuditLogger(logger.Discard()), logger.Discard())
		require.NoError(t, svc.Initialize(context.Background()))

		rec := do(t, newTestRouter(t, svc), http.MethodGet, "/api/v1/transactions", "token-a", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("paginated list", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/v1/transactions?page=1&limit=2&sortBy=amount&sortOrder=asc", "token-a", "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var page models.PaginatedResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
		require.Len(t, page.Data, 2)
		assert.Equal(t, "10", page.Data[0].Amount.String())
		assert.Equal(t, "20", page.Data[1].Amount.String())
		assert.Equal(t, models.PaginationMeta{
			CurrentPage: 1, TotalPages: 2, TotalItems: 3, ItemsPerPage: 2,
			HasNextPage: true, HasPreviousPage: false,
		}, page.Pagination)
	})

	t.Run("limit alone selects paged mode with defaults", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/v1/transactions?limit=5", "token-a", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var page models.PaginatedResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
		assert.Equal(t, 1, page.Pagination.CurrentPage)
		require.Len(t, page.Data, 3)
		assert.Equal(t, "30", page.Data[0].Amount.String(), "newest first")
	})

	t.Run("get other user's transaction is not found", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/v1/transactions/"+b999.ID, "token-a", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Transaction not found", errorOf(t, rec).Error)

		rec = do(t, h, http.MethodGet, "/api/v1/transactions/"+b999.ID, "token-b", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("update", func(t *testing.T) {
		rec := do(t, h, http.MethodPut, "/api/v1/transactions/"+a30.ID, "token-a", `{"amount": 35, "userId": "user-b"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var updated models.Transaction
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
		assert.Equal(t, "35", updated.Amount.String())
		assert.Equal(t, "user-a", updated.UserID)
		assert.True(t, updated.CreatedAt.Equal(a30.CreatedAt))
		assert.NotNil(t, updated.UpdatedAt)

		rec = do(t, h, http.MethodPut, "/api/v1/transactions/"+a30.ID, "token-b", `{"amount": 1}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = do(t, h, http.MethodPut, "/api/v1/transactions/"+a30.ID, "token-a", `{"type": "loan"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("delete", func(t *testing.T) {
		rec := do(t, h, http.MethodDelete, "/api/v1/transactions/"+a10.ID, "token-b", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = do(t, h, http.MethodDelete, "/api/v1/transactions/"+a10.ID, "token-a", "")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())

		rec = do(t, h, http.MethodGet, "/api/v1/transactions/"+a10.ID, "token-a", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = do(t, h, http.MethodDelete, "/api/v1/transactions/"+a10.ID, "token-a", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestListTransactions_QueryValidation(t *testing.T) {
	h := newFileBackedRouter(t)

	tests := []struct {
		query string
		want  string
	}{
		{"page=0&limit=10", "Page must be greater than 0"},
		{"page=abc", "Page must be greater than 0"},
		{"page=1&limit=0", "Limit must be between 1 and 100"},
		{"page=1&limit=101", "Limit must be between 1 and 100"},
		{"limit=ten", "Limit must be between 1 and 100"},
		{"page=1&limit=10&sortBy=userId", "sortBy must be one of: date, amount, description, category, createdAt"},
		{"page=1&limit=10&sortOrder=up", `sortOrder must be either "asc" or "desc"`},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, "/api/v1/transactions?"+tt.query, "token-a", "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, errorOf(t, rec).Error)
		})
	}
}

type MockTransactionService struct {
	mock.Mock
}

func (m *MockTransactionService) List(ctx context.Context, userID string) ([]models.Transaction, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Transaction), args.Error(1)
}

func (m *MockTransactionService) ListPaged(ctx context.Context, userID string, params models.PaginationParams) (*models.PaginatedResponse, error) {
	args := m.Called(ctx, userID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaginatedResponse), args.Error(1)
}

func (m *MockTransactionService) GetByID(ctx context.Context, id, userID string) (*models.Transaction, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionService) Create(ctx context.Context, userID string, req models.CreateTransactionRequest) (*models.Transaction, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionService) Update(ctx context.Context, id, userID string, patch models.UpdateTransactionRequest) (*models.Transaction, error) {
	args := m.Called(ctx, id, userID, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionService) Delete(ctx context.Context, id, userID string) (bool, error) {
	args := m.Called(ctx, id, userID)
	return args.Bool(0), args.Error(1)
}

func TestStorageFailuresAreInternalErrors(t *testing.T) {
	storageErr := fmt.Errorf("%w: read-only file system", database.ErrStorage)
	svc := new(MockTransactionService)
	svc.On("List", mock.Anything, "user-a").Return(nil, storageErr)
	svc.On("ListPaged", mock.Anything, "user-a", mock.Anything).Return(nil, storageErr)
	svc.On("GetByID", mock.Anything, "t1", "user-a").Return(nil, storageErr)
	svc.On("Create", mock.Anything, "user-a", mock.Anything).Return(nil, storageErr)
	svc.On("Update", mock.Anything, "t1", "user-a", mock.Anything).Return(nil, storageErr)
	svc.On("Delete", mock.Anything, "t1", "user-a").Return(false, storageErr)

	log, hook := test.NewNullLogger()
	h := NewRouter(RouterConfig{
		Transactions: NewTransactionHandler(svc, log),
		Verifier:     testTokens,
		CORS:         config.CORSConfig{AllowedOrigins: []string{"*"}},
		Log:          logger.Discard(),
	})

	tests := []struct {
		method, path, body, want string
	}{
		{http.MethodGet, "/api/v1/transactions", "", "Failed to fetch transactions"},
		{http.MethodGet, "/api/v1/transactions?page=2", "", "Failed to fetch transactions"},
		{http.MethodGet, "/api/v1/transactions/t1", "", "Failed to fetch transaction"},
		{http.MethodPost, "/api/v1/transactions", `{"amount": 1, "description": "x", "type": "income"}`, "Failed to create transaction"},
		{http.MethodPut, "/api/v1/transactions/t1", `{"amount": 2}`, "Failed to update transaction"},
		{http.MethodDelete, "/api/v1/transactions/t1", "", "Failed to delete transaction"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			hook.Reset()
			rec := do(t, h, tt.method, tt.path, "token-a", tt.body)
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			resp := errorOf(t, rec)
			assert.Equal(t, tt.want, resp.Error)
			assert.NotContains(t, rec.Body.String(), "read-only")

			entry := hook.LastEntry()
			require.NotNil(t, entry)
			assert.Contains(t, entry.Data["error"], "read-only file system")
			assert.Equal(t, "user-a", entry.Data["user_id"])
		})
	}

	svc.AssertExpectations(t)
}

func TestListTransactions_PassesParsedParams(t *testing.T) {
	svc := new(MockTransactionService)
	want := models.PaginationParams{Page: 3, Limit: 25, SortBy: models.SortByDate, SortOrder: models.SortAsc}
	svc.On("ListPaged", mock.Anything, "user-b", want).
		Return(&models.PaginatedResponse{Data: []models.Transaction{}, Pagination: models.PaginationMeta{CurrentPage: 3}}, nil)

	h := newTestRouter(t, svc)
	rec := do(t, h, http.MethodGet, "/api/v1/transactions?page=3&limit=25&sortBy=date&sortOrder=asc", "token-b", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data": [], "pagination": {"currentPage": 3, "totalPages": 0, "totalItems": 0, "itemsPerPage": 0, "hasNextPage": false, "hasPreviousPage": false}}`, rec.Body.String())
	svc.AssertExpectations(t)
}

func TestHandlerWithoutIdentity(t *testing.T) {
	handler := NewTransactionHandler(new(MockTransactionService), logger.Discard())
	rec := httptest.NewRecorder()

	handler.ListTransactions(rec, httptest.NewRequest(http.MethodGet, "/api/v1/transactions", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", errorOf(t, rec).Error)
}

func TestSwaggerUI(t *testing.T) {
	h := newFileBackedRouter(t)
	rec := do(t, h, http.MethodGet, "/swagger/index.html", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newFileBackedRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/transactions", bytes.NewReader(nil))
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestRateLimitedRouter(t *testing.T) {
	store := database.NewFileStore(t.TempDir(), false, logger.Discard())
	svc := services.NewTransactionService(store, database.NewMutexLocker(), audit.NewAuditLogger(logger.Discard()), logger.Discard())
	require.NoError(t, svc.Initialize(context.Background()))

	h := NewRouter(RouterConfig{
		Transactions: NewTransactionHandler(svc, logger.Discard()),
		Verifier:     testTokens,
		CORS:         config.CORSConfig{AllowedOrigins: []string{"*"}},
		RateLimit:    config.RateLimitConfig{RPS: 1, Burst: 1},
		Log:          logger.Discard(),
	})

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "", "").Code)
	rec := do(t, h, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too many requests", errorOf(t, rec).Error)
}
