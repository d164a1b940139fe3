package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrAccountExists is returned by directory backends when the email is taken
var ErrAccountExists = errors.New("account already exists")

// ErrFiscalNotFound is returned by directory backends for an unknown uid
var ErrFiscalNotFound = errors.New("fiscal not found")

// Account is a login account created by the fiscal import
type Account struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email        string    `gorm:"type:varchar(320);not null;uniqueIndex"`
	PasswordHash string    `gorm:"type:varchar(100);not null"`
	DisplayName  string    `gorm:"type:varchar(200)"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (Account) TableName() string {
	return "accounts"
}

// NewAccount carries the fields needed to create an account
type NewAccount struct {
	Email       string
	Password    string
	DisplayName string
}

// Fiscal is the per-school document keyed by the account uid.
// Field names follow the "fiscales" document shape.
type Fiscal struct {
	UID       string    `gorm:"column:uid;type:varchar(128);primaryKey" firestore:"-"`
	EscuelaID string    `gorm:"column:escuela_id;type:varchar(50);not null;index" firestore:"escuela_id"`
	DNI       string    `gorm:"column:dni;type:varchar(50);not null" firestore:"dni"`
	CreatedAt time.Time `gorm:"not null" firestore:"-"`
	UpdatedAt time.Time `gorm:"not null" firestore:"-"`
}

func (Fiscal) TableName() string {
	return "fiscales"
}

// ImportResult aggregates the outcome of one CSV import
type ImportResult struct {
	Message      string   `json:"message"`
	Details      []string `json:"details"`
	SuccessCount int      `json:"successCount"`
	ErrorCount   int      `json:"errorCount"`
}

// ImportReport is written next to the import prefix after a scheduled import
// processed a CSV blob. A complete report sets exactly one of Result and
// Error. A partial report sets both: the rows imported before the run was
// interrupted and the reason it stopped.
type ImportReport struct {
	Source      string        `json:"source"`
	ProcessedAt time.Time     `json:"processedAt"`
	Partial     bool          `json:"partial,omitempty"`
	Result      *ImportResult `json:"result,omitempty"`
	Error       string        `json:"error,omitempty"`
}
