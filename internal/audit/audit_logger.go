package audit

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	EventCreate = "CREATE"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
	EventError  = "ERROR"
)

type AuditEvent struct {
	Timestamp     time.Time
	EventType     string
	TransactionID string
	UserID        string
	Amount        decimal.Decimal
	Status        string
	Details       map[string]string
}

// AuditLogger records mutations of the transaction collection
type AuditLogger struct {
	log logrus.FieldLogger
}

func NewAuditLogger(log logrus.FieldLogger) *AuditLogger {
	return &AuditLogger{log: log}
}

func (a *AuditLogger) LogCreate(transactionID, userID string, amount decimal.Decimal) {
	a.write(AuditEvent{
		Timestamp:     time.Now().UTC(),
		EventType:     EventCreate,
		TransactionID: transactionID,
		UserID:        userID,
		Amount:        amount,
		Status:        "SUCCESS",
	})
}

func (a *AuditLogger) LogUpdate(transactionID, userID string, amount decimal.Decimal, fields []string) {
	details := map[string]string{}
	for _, f := range fields {
		details[f] = "changed"
	}
	a.write(AuditEvent{
		Timestamp:     time.Now().UTC(),
		EventType:     EventUpdate,
		TransactionID: transactionID,
		UserID:        userID,
		Amount:        amount,
		Status:        "SUCCESS",
		Details:       details,
	})
}

func (a *AuditLogger) LogDelete(transactionID, userID string) {
	a.write(AuditEvent{
		Timestamp:     time.Now().UTC(),
		EventType:     EventDelete,
		TransactionID: transactionID,
		UserID:        userID,
		Status:        "SUCCESS",
	})
}

func (a *AuditLogger) LogError(operation, transactionID, userID string, err error) {
	a.write(AuditEvent{
		Timestamp:     time.Now().UTC(),
		EventType:     EventError,
		TransactionID: transactionID,
		UserID:        userID,
		Status:        "FAILED",
		Details:       map[string]string{"operation": operation, "error": err.Error()},
	})
}

func (a *AuditLogger) write(event AuditEvent) {
	fields := logrus.Fields{
		"audit":          true,
		"event_type":     event.EventType,
		"transaction_id": event.TransactionID,
		"user_id":        event.UserID,
		"status":         event.Status,
		"at":             event.Timestamp.Format(time.RFC3339Nano),
	}
	if !event.Amount.IsZero() {
		fields["amount"] = event.Amount.String()
	}
	for k, v := range event.Details {
		fields["detail_"+k] = v
	}

	entry := a.log.WithFields(fields)
	if event.Status == "FAILED" {
		entry.Error("AUDIT")
		return
	}
	entry.Info("AUDIT")
}
