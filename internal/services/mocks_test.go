package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/siocraft/finance-tracker-api/internal/models"
)

type MockRecordStore struct {
	mock.Mock
}

func (m *MockRecordStore) Initialize(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockRecordStore) LoadAll(ctx context.Context) ([]models.Transaction, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Transaction), args.Error(1)
}

func (m *MockRecordStore) SaveAll(ctx context.Context, transactions []models.Transaction) error {
	args := m.Called(ctx, transactions)
	return args.Error(0)
}

type MockLocker struct {
	mock.Mock
	unlocked int
}

func (m *MockLocker) Lock(ctx context.Context) (func(), error) {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return nil, err
	}
	return func() { m.unlocked++ }, nil
}
