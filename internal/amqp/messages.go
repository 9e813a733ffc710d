package amqp

import (
	"encoding/json"
	"time"
)

const (
	KindWelcomeMail    = "welcome_mail"
	KindArchiveExpense = "archive_expense"
)

// TaskMessage is the envelope carried on the task queue. Exactly one of
// the payload fields is set, according to Kind.
type TaskMessage struct {
	Kind      string                 `json:"kind"`
	Timestamp time.Time              `json:"timestamp"`
	Mail      *WelcomeMailMessage    `json:"mail,omitempty"`
	Archive   *ArchiveExpenseMessage `json:"archive,omitempty"`
}

// WelcomeMailMessage asks the mailer worker to send a registration
// welcome email.
type WelcomeMailMessage struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// ArchiveExpenseMessage asks the mailer worker to append an expense row
// to the archive spreadsheet.
type ArchiveExpenseMessage struct {
	ExpenseID   string    `json:"expense_id"`
	UserID      string    `json:"user_id"`
	Category    string    `json:"category"`
	AmountCents int64     `json:"amount_cents"`
	Description string    `json:"description"`
	SpentAt     time.Time `json:"spent_at"`
}

func NewWelcomeMailTask(userID, name, email string) *TaskMessage {
	return &TaskMessage{
		Kind:      KindWelcomeMail,
		Timestamp: time.Now(),
		Mail:      &WelcomeMailMessage{UserID: userID, Name: name, Email: email},
	}
}

func NewArchiveExpenseTask(m ArchiveExpenseMessage) *TaskMessage {
	return &TaskMessage{
		Kind:      KindArchiveExpense,
		Timestamp: time.Now(),
		Archive:   &m,
	}
}

// ToJSON converts the message to JSON bytes.
func (m *TaskMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TaskMessageFromJSON creates a message from JSON bytes.
func TaskMessageFromJSON(data []byte) (*TaskMessage, error) {
	var msg TaskMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
