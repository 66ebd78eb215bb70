package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/siocraft/finance-tracker-api/internal/models"
)

const transactionsFile = "transactions.json"

// FileStore keeps the collection in <dataDir>/transactions.json
type FileStore struct {
	dataDir     string
	path        string
	strictReads bool
	log         logrus.FieldLogger
}

func NewFileStore(dataDir string, strictReads bool, log logrus.FieldLogger) *FileStore {
	return &FileStore{
		dataDir:     dataDir,
		path:        filepath.Join(dataDir, transactionsFile),
		strictReads: strictReads,
		log:         log,
	}
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Initialize(ctx context.Context) error {
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return fmt.Errorf("%w: create data dir: %v", ErrStorage, err)
	}

	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: stat %s: %v", ErrStorage, s.path, err)
	}

	if err := os.WriteFile(s.path, []byte("[]"), 0o644); err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrStorage, s.path, err)
	}
	s.log.WithField("path", s.path).Info("Initialized empty transaction store")
	return nil
}

func (s *FileStore) LoadAll(ctx context.Context) ([]models.Transaction, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return s.readFailure("read", err)
	}

	transactions, err := decodeCollection(data)
	if err != nil {
		return s.readFailure("decode", err)
	}
	return transactions, nil
}

func (s *FileStore) readFailure(op string, err error) ([]models.Transaction, error) {
	if s.strictReads {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrStorage, op, s.path, err)
	}
	s.log.WithFields(logrus.Fields{"path": s.path, "error": err.Error()}).
		Warnf("Failed to %s transactions, serving an empty collection", op)
	return []models.Transaction{}, nil
}

// SaveAll replaces the document through a temp file and rename so readers
// never observe a half-written collection.
func (s *FileStore) SaveAll(ctx context.Context, transactions []models.Transaction) error {
	data, err := encodeCollection(transactions)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrStorage, err)
	}

	tmp, err := os.CreateTemp(s.dataDir, "transactions-*.json.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", ErrStorage, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %v", ErrStorage, tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync %s: %v", ErrStorage, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrStorage, tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("%w: chmod %s: %v", ErrStorage, tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%w: replace %s: %v", ErrStorage, s.path, err)
	}
	return nil
}
