package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts are persisted and served as plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// TransactionType distinguishes money coming in from money going out
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// DefaultCategory is assigned when a transaction is created without one
const DefaultCategory = "Other"

// Valid reports whether t is one of the known transaction types
func (t TransactionType) Valid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// Transaction represents a single personal finance record
// @Description Financial transaction owned by the authenticated user
type Transaction struct {
	ID          string          `json:"id" example:"123e4567-e89b-12d3-a456-426614174000"`         // Unique identifier
	UserID      string          `json:"userId" example:"Xk3v9QpL2mTz"`                             // Owning user
	Amount      decimal.Decimal `json:"amount" swaggertype:"number" example:"150.75"`              // Transaction amount
	Description string          `json:"description" example:"Grocery shopping"`                    // Transaction description
	Category    string          `json:"category" example:"Food"`                                   // Transaction category
	Type        TransactionType `json:"type" enums:"income,expense" example:"expense"`             // Transaction type
	Date        time.Time       `json:"date" example:"2023-12-01T10:30:00Z"`                       // Transaction date
	CreatedAt   time.Time       `json:"createdAt" example:"2023-12-01T10:30:00Z"`                  // Creation timestamp
	UpdatedAt   *time.Time      `json:"updatedAt,omitempty" example:"2023-12-01T11:30:00Z"`        // Last update timestamp
}

// CreateTransactionRequest represents the create payload
// @Description Create transaction request structure
type CreateTransactionRequest struct {
	Amount      *decimal.Decimal `json:"amount" validate:"required" swaggertype:"number" example:"150.75"`
	Description string           `json:"description" validate:"required" example:"Grocery shopping"`
	Category    string           `json:"category,omitempty" example:"Food"`
	Type        TransactionType  `json:"type" validate:"required,oneof=income expense" enums:"income,expense" example:"expense"`
}

// UpdateTransactionRequest represents a partial update. Nil fields are left untouched.
// @Description Update transaction request structure
type UpdateTransactionRequest struct {
	Amount      *decimal.Decimal `json:"amount,omitempty" swaggertype:"number" example:"200"`
	Description *string          `json:"description,omitempty" example:"Weekly groceries"`
	Category    *string          `json:"category,omitempty" example:"Food"`
	Type        *TransactionType `json:"type,omitempty" validate:"omitempty,oneof=income expense" enums:"income,expense" example:"expense"`
	Date        *time.Time       `json:"date,omitempty" example:"2023-12-02T09:00:00Z"`
}

// Apply overlays the supplied fields of the patch onto t
func (p UpdateTransactionRequest) Apply(t *Transaction) {
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
}
