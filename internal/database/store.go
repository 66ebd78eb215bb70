package database

import (
	"context"
	"errors"

	jsoniter "github.com/json-iterator/go"

	"github.com/siocraft/finance-tracker-api/internal/models"
)

// ErrStorage marks failures of the backing document. Read failures only
// surface with it when strict reads are enabled.
var ErrStorage = errors.New("storage failure")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RecordStore persists the whole transaction collection as one document.
// There is no partial update: every mutation is a full load and a full save.
type RecordStore interface {
	// Initialize makes sure the document exists. Safe to call on every start.
	Initialize(ctx context.Context) error
	LoadAll(ctx context.Context) ([]models.Transaction, error)
	SaveAll(ctx context.Context, transactions []models.Transaction) error
}

func decodeCollection(data []byte) ([]models.Transaction, error) {
	var transactions []models.Transaction
	if err := json.Unmarshal(data, &transactions); err != nil {
		return nil, err
	}
	if transactions == nil {
		transactions = []models.Transaction{}
	}
	return transactions, nil
}

func encodeCollection(transactions []models.Transaction) ([]byte, error) {
	if transactions == nil {
		transactions = []models.Transaction{}
	}
	return json.MarshalIndent(transactions, "", "  ")
}
