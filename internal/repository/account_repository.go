package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sanisidro/fiscal-api/internal/domain"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AccountRepository stores login accounts with bcrypt password hashes
type AccountRepository struct {
	db   *gorm.DB
	cost int
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db, cost: bcrypt.DefaultCost}
}

// CreateAccount creates an account and returns its uid.
// Emails are compared case-insensitively.
func (r *AccountRepository) CreateAccount(ctx context.Context, in domain.NewAccount) (string, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Account{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return "", fmt.Errorf("failed to check account: %w", err)
	}
	if count > 0 {
		return "", domain.ErrAccountExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), r.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	account := &domain.Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  in.DisplayName,
	}
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", domain.ErrAccountExists
		}
		return "", fmt.Errorf("failed to create account: %w", err)
	}

	return account.ID.String(), nil
}

// GetAccountByEmail returns the uid of the account with the given email
func (r *AccountRepository) GetAccountByEmail(ctx context.Context, email string) (string, error) {
	var account domain.Account
	err := r.db.WithContext(ctx).First(&account, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return account.ID.String(), nil
}
