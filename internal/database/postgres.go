package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/siocraft/finance-tracker-api/internal/config"
	"github.com/siocraft/finance-tracker-api/internal/models"
)

const (
	createDocumentsTable = `CREATE TABLE IF NOT EXISTS transaction_documents (
	name       TEXT PRIMARY KEY,
	body       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
	seedDocument   = `INSERT INTO transaction_documents (name, body) VALUES ($1, '[]'::jsonb) ON CONFLICT (name) DO NOTHING`
	selectDocument = `SELECT body FROM transaction_documents WHERE name = $1`
	upsertDocument = `INSERT INTO transaction_documents (name, body, updated_at) VALUES ($1, $2, NOW())
ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, updated_at = NOW()`
)

// OpenPostgres opens and pings the database connection
func OpenPostgres(cfg config.DatabaseConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, nil
}

// PostgresStore keeps the whole collection as a single JSONB row, keyed by
// document name. It has the same whole-document semantics as FileStore.
type PostgresStore struct {
	db          *sql.DB
	document    string
	strictReads bool
	log         logrus.FieldLogger
}

func NewPostgresStore(db *sql.DB, document string, strictReads bool, log logrus.FieldLogger) *PostgresStore {
	return &PostgresStore{
		db:          db,
		document:    document,
		strictReads: strictReads,
		log:         log,
	}
}

func (s *PostgresStore) Initialize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createDocumentsTable); err != nil {
		return fmt.Errorf("%w: create table: %v", ErrStorage, err)
	}
	if _, err := s.db.ExecContext(ctx, seedDocument, s.document); err != nil {
		return fmt.Errorf("%w: seed document %s: %v", ErrStorage, s.document, err)
	}
	return nil
}

func (s *PostgresStore) LoadAll(ctx context.Context) ([]models.Transaction, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, selectDocument, s.document).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return []models.Transaction{}, nil
	}
	if err != nil {
		return s.readFailure("read", err)
	}

	transactions, err := decodeCollection(body)
	if err != nil {
		return s.readFailure("decode", err)
	}
	return transactions, nil
}

func (s *PostgresStore) readFailure(op string, err error) ([]models.Transaction, error) {
	if s.strictReads {
		return nil, fmt.Errorf("%w: %s document %s: %v", ErrStorage, op, s.document, err)
	}
	s.log.WithFields(logrus.Fields{"document": s.document, "error": err.Error()}).
		Warnf("Failed to %s transactions, serving an empty collection", op)
	return []models.Transaction{}, nil
}

func (s *PostgresStore) SaveAll(ctx context.Context, transactions []models.Transaction) error {
	data, err := encodeCollection(transactions)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrStorage, err)
	}
	if _, err := s.db.ExecContext(ctx, upsertDocument, s.document, string(data)); err != nil {
		return fmt.Errorf("%w: save document %s: %v", ErrStorage, s.document, err)
	}
	return nil
}
