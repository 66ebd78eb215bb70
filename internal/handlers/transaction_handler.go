package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/siocraft/finance-tracker-api/internal/middleware"
	"github.com/siocraft/finance-tracker-api/internal/models"
	"github.com/siocraft/finance-tracker-api/internal/services"
)

const maxBodyBytes = 1_048_576

// TransactionService is what the handler needs from the service layer
type TransactionService interface {
	List(ctx context.Context, userID string) ([]models.Transaction, error)
	ListPaged(ctx context.Context, userID string, params models.PaginationParams) (*models.PaginatedResponse, error)
	GetByID(ctx context.Context, id, userID string) (*models.Transaction, error)
	Create(ctx context.Context, userID string, req models.CreateTransactionRequest) (*models.Transaction, error)
	Update(ctx context.Context, id, userID string, patch models.UpdateTransactionRequest) (*models.Transaction, error)
	Delete(ctx context.Context, id, userID string) (bool, error)
}

type TransactionHandler struct {
	service   TransactionService
	validator *services.ValidationHelper
	log       logrus.FieldLogger
}

func NewTransactionHandler(service TransactionService, log logrus.FieldLogger) *TransactionHandler {
	return &TransactionHandler{
		service:   service,
		validator: services.NewValidationHelper(),
		log:       log,
	}
}

// ListTransactions lists the caller's transactions
// @Summary List transactions
// @Description Returns every transaction of the authenticated user. When page or limit is supplied the result is sorted and paginated.
// @Tags Transactions
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (1-based)" minimum(1) default(1)
// @Param limit query int false "Items per page" minimum(1) maximum(100) default(10)
// @Param sortBy query string false "Sort field" Enums(date, amount, description, category, createdAt) default(createdAt)
// @Param sortOrder query string false "Sort order" Enums(asc, desc) default(desc)
// @Success 200 {array} models.Transaction "Unpaginated list"
// @Success 200 {object} models.PaginatedResponse "Paginated list"
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /api/v1/transactions [get]
func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	params, paged, err := h.parsePagination(r.URL.Query())
	if err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	if !paged {
		transactions, err := h.service.List(r.Context(), userID)
		if err != nil {
			h.sendServiceError(w, r, err, "Failed to fetch transactions")
			return
		}
		services.SendJSON(w, http.StatusOK, transactions)
		return
	}

	result, err := h.service.ListPaged(r.Context(), userID, params)
	if err != nil {
		h.sendServiceError(w, r, err, "Failed to fetch transactions")
		return
	}
	services.SendJSON(w, http.StatusOK, result)
}

// GetTransaction returns one transaction
// @Summary Get transaction
// @Description Returns a transaction owned by the authenticated user
// @Tags Transactions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Success 200 {object} models.Transaction
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /api/v1/transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	transaction, err := h.service.GetByID(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		h.sendServiceError(w, r, err, "Failed to fetch transaction")
		return
	}
	services.SendJSON(w, http.StatusOK, transaction)
}

// CreateTransaction records a new transaction
// @Summary Create transaction
// @Description Creates a transaction for the authenticated user. Category defaults to Other.
// @Tags Transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateTransactionRequest true "Transaction to create"
// @Success 201 {object} models.Transaction
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /api/v1/transactions [post]
func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req models.CreateTransactionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	created, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		h.sendServiceError(w, r, err, "Failed to create transaction")
		return
	}
	services.SendJSON(w, http.StatusCreated, created)
}

// UpdateTransaction applies a partial update
// @Summary Update transaction
// @Description Updates the supplied fields of a transaction owned by the authenticated user
// @Tags Transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Param request body models.UpdateTransactionRequest true "Fields to update"
// @Success 200 {object} models.Transaction
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /api/v1/transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var patch models.UpdateTransactionRequest
	if !decodeBody(w, r, &patch) {
		return
	}

	updated, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), userID, patch)
	if err != nil {
		h.sendServiceError(w, r, err, "Failed to update transaction")
		return
	}
	services.SendJSON(w, http.StatusOK, updated)
}

// DeleteTransaction removes a transaction
// @Summary Delete transaction
// @Description Deletes a transaction owned by the authenticated user
// @Tags Transactions
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Success 204 "No Content"
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /api/v1/transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	deleted, err := h.service.Delete(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		h.sendServiceError(w, r, err, "Failed to delete transaction")
		return
	}
	if !deleted {
		services.SendErrorResponse(w, "Transaction not found", http.StatusNotFound, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TransactionHandler) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return "", false
	}
	return userID, true
}

func (h *TransactionHandler) sendServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var fieldErrs validator.ValidationErrors
	switch {
	case errors.Is(err, services.ErrTransactionNotFound):
		services.SendErrorResponse(w, "Transaction not found", http.StatusNotFound, nil)
	case errors.As(err, &fieldErrs):
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
	case errors.Is(err, services.ErrInvalidTransaction):
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
	default:
		h.log.WithFields(logrus.Fields{
			"request_id": middleware.RequestIDFromContext(r.Context()),
			"user_id":    middleware.UserIDFromContext(r.Context()),
			"error":      err.Error(),
		}).Error("[TRANSACTIONS] " + fallback)
		services.SendErrorResponse(w, fallback, http.StatusInternalServerError, nil)
	}
}

// parsePagination reports paged=true when page or limit was supplied
func (h *TransactionHandler) parsePagination(q url.Values) (models.PaginationParams, bool, error) {
	params := models.PaginationParams{
		Page:      models.DefaultPage,
		Limit:     models.DefaultLimit,
		SortBy:    models.SortField(q.Get("sortBy")),
		SortOrder: models.SortOrder(q.Get("sortOrder")),
	}
	paged := q.Has("page") || q.Has("limit")
	if !paged {
		return params, false, nil
	}

	if raw := strings.TrimSpace(q.Get("page")); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return params, true, errors.New(paginationMessage("Page"))
		}
		params.Page = page
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return params, true, errors.New(paginationMessage("Limit"))
		}
		params.Limit = limit
	}

	params = params.WithDefaults()
	if err := h.validator.ValidateStruct(&params); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return params, true, errors.New(paginationMessage(fieldErrs[0].Field()))
		}
		return params, true, err
	}
	return params, true, nil
}

func paginationMessage(field string) string {
	switch field {
	case "Page":
		return "Page must be greater than 0"
	case "Limit":
		return fmt.Sprintf("Limit must be between 1 and %d", models.MaxLimit)
	case "SortBy":
		names := make([]string, 0, len(models.SortFields))
		for _, f := range models.SortFields {
			names = append(names, string(f))
		}
		return "sortBy must be one of: " + strings.Join(names, ", ")
	default:
		return `sortOrder must be either "asc" or "desc"`
	}
}

// decodeBody reads exactly one JSON value into dst. Unknown fields are ignored.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)

	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			services.SendErrorResponse(w, "Request body too large", http.StatusRequestEntityTooLarge, nil)
			return false
		}
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}
	return true
}
