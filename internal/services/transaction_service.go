package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/siocraft/finance-tracker-api/internal/audit"
	"github.com/siocraft/finance-tracker-api/internal/database"
	"github.com/siocraft/finance-tracker-api/internal/models"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidTransaction  = errors.New("invalid transaction")
)

// TransactionService owns the read-modify-write cycle over the record store.
// Mutations hold the locker for the whole load, compute and save sequence.
type TransactionService struct {
	store     database.RecordStore
	locker    database.Locker
	audit     *audit.AuditLogger
	log       logrus.FieldLogger
	validator *ValidationHelper
	now       func() time.Time
	newID     func() string
}

func NewTransactionService(store database.RecordStore, locker database.Locker, auditLogger *audit.AuditLogger, log logrus.FieldLogger) *TransactionService {
	return &TransactionService{
		store:     store,
		locker:    locker,
		audit:     auditLogger,
		log:       log,
		validator: NewValidationHelper(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Initialize prepares the backing document. Failure is fatal at startup.
func (ts *TransactionService) Initialize(ctx context.Context) error {
	return ts.store.Initialize(ctx)
}

// List returns every transaction owned by userID in stored order
func (ts *TransactionService) List(ctx context.Context, userID string) ([]models.Transaction, error) {
	all, err := ts.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	return FilterByOwner(all, userID), nil
}

// ListPaged filters, sorts and paginates the caller's transactions
func (ts *TransactionService) ListPaged(ctx context.Context, userID string, params models.PaginationParams) (*models.PaginatedResponse, error) {
	params = params.WithDefaults()

	owned, err := ts.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	sorted := SortTransactions(owned, params.SortBy, params.SortOrder)
	data, meta := Paginate(sorted, params.Page, params.Limit)

	return &models.PaginatedResponse{Data: data, Pagination: meta}, nil
}

// GetByID returns the transaction with id when it belongs to userID
func (ts *TransactionService) GetByID(ctx context.Context, id, userID string) (*models.Transaction, error) {
	all, err := ts.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	idx := indexOf(all, id, userID)
	if idx < 0 {
		return nil, ErrTransactionNotFound
	}
	found := all[idx]
	return &found, nil
}

// Create stores a new transaction for userID
func (ts *TransactionService) Create(ctx context.Context, userID string, req models.CreateTransactionRequest) (*models.Transaction, error) {
	if err := ts.validateCreate(userID, &req); err != nil {
		return nil, err
	}

	now := ts.now().UTC()
	created := models.Transaction{
		UserID:      userID,
		Amount:      *req.Amount,
		Description: req.Description,
		Category:    req.Category,
		Type:        req.Type,
		Date:        now,
		CreatedAt:   now,
	}
	if strings.TrimSpace(created.Category) == "" {
		created.Category = models.DefaultCategory
	}

	err := ts.mutate(ctx, func(all []models.Transaction) ([]models.Transaction, error) {
		created.ID = ts.uniqueID(all)
		return append(all, created), nil
	})
	if err != nil {
		ts.audit.LogError("create", "", userID, err)
		return nil, err
	}

	ts.audit.LogCreate(created.ID, userID, created.Amount)
	return &created, nil
}

// Update overlays the supplied patch fields onto the caller's transaction.
// id, userId and createdAt are never changed.
func (ts *TransactionService) Update(ctx context.Context, id, userID string, patch models.UpdateTransactionRequest) (*models.Transaction, error) {
	if err := ts.validateUpdate(&patch); err != nil {
		return nil, err
	}

	var updated models.Transaction
	err := ts.mutate(ctx, func(all []models.Transaction) ([]models.Transaction, error) {
		idx := indexOf(all, id, userID)
		if idx < 0 {
			return nil, ErrTransactionNotFound
		}

		existing := all[idx]
		merged := existing
		patch.Apply(&merged)
		merged.ID = existing.ID
		merged.UserID = existing.UserID
		merged.CreatedAt = existing.CreatedAt
		now := ts.now().UTC()
		merged.UpdatedAt = &now

		next := make([]models.Transaction, len(all))
		copy(next, all)
		next[idx] = merged
		updated = merged
		return next, nil
	})
	if err != nil {
		if !errors.Is(err, ErrTransactionNotFound) {
			ts.audit.LogError("update", id, userID, err)
		}
		return nil, err
	}

	ts.audit.LogUpdate(id, userID, updated.Amount, patchedFields(patch))
	return &updated, nil
}

// Delete removes the caller's transaction. It reports false, without
// writing, when there is nothing to remove.
func (ts *TransactionService) Delete(ctx context.Context, id, userID string) (bool, error) {
	err := ts.mutate(ctx, func(all []models.Transaction) ([]models.Transaction, error) {
		idx := indexOf(all, id, userID)
		if idx < 0 {
			return nil, ErrTransactionNotFound
		}

		next := make([]models.Transaction, 0, len(all)-1)
		next = append(next, all[:idx]...)
		next = append(next, all[idx+1:]...)
		return next, nil
	})
	if errors.Is(err, ErrTransactionNotFound) {
		return false, nil
	}
	if err != nil {
		ts.audit.LogError("delete", id, userID, err)
		return false, err
	}

	ts.audit.LogDelete(id, userID)
	return true, nil
}

// mutate runs one locked load, compute, save cycle. When compute fails
// nothing is written.
func (ts *TransactionService) mutate(ctx context.Context, compute func(all []models.Transaction) ([]models.Transaction, error)) error {
	unlock, err := ts.locker.Lock(ctx)
	if err != nil {
		return fmt.Errorf("lock transaction store: %w", err)
	}
	defer unlock()

	all, err := ts.store.LoadAll(ctx)
	if err != nil {
		return err
	}

	next, err := compute(all)
	if err != nil {
		return err
	}

	if err := ts.store.SaveAll(ctx, next); err != nil {
		ts.log.WithField("error", err.Error()).Error("Failed to persist transactions")
		return err
	}
	return nil
}

func (ts *TransactionService) uniqueID(all []models.Transaction) string {
	for {
		id := ts.newID()
		if !containsID(all, id) {
			return id
		}
		ts.log.WithField("id", id).Warn("Generated transaction id already in use, regenerating")
	}
}

func (ts *TransactionService) validateCreate(userID string, req *models.CreateTransactionRequest) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidTransaction)
	}
	if err := ts.validator.ValidateStruct(req); err != nil {
		return err
	}
	if req.Amount.IsZero() {
		return fmt.Errorf("%w: amount must not be zero", ErrInvalidTransaction)
	}
	if strings.TrimSpace(req.Description) == "" {
		return fmt.Errorf("%w: description must not be empty", ErrInvalidTransaction)
	}
	return nil
}

func (ts *TransactionService) validateUpdate(patch *models.UpdateTransactionRequest) error {
	if err := ts.validator.ValidateStruct(patch); err != nil {
		return err
	}
	if patch.Description != nil && strings.TrimSpace(*patch.Description) == "" {
		return fmt.Errorf("%w: description must not be empty", ErrInvalidTransaction)
	}
	return nil
}

func indexOf(all []models.Transaction, id, userID string) int {
	for i, t := range all {
		if t.ID == id && t.UserID == userID {
			return i
		}
	}
	return -1
}

func containsID(all []models.Transaction, id string) bool {
	for _, t := range all {
		if t.ID == id {
			return true
		}
	}
	return false
}

func patchedFields(patch models.UpdateTransactionRequest) []string {
	var fields []string
	if patch.Amount != nil {
		fields = append(fields, "amount")
	}
	if patch.Description != nil {
		fields = append(fields, "description")
	}
	if patch.Category != nil {
		fields = append(fields, "category")
	}
	if patch.Type != nil {
		fields = append(fields, "type")
	}
	if patch.Date != nil {
		fields = append(fields, "date")
	}
	return fields
}
