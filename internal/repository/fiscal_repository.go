package repository

import (
	"context"
	"errors"

	"github.com/sanisidro/fiscal-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("record not found")

type FiscalRepository struct {
	db *gorm.DB
}

func NewFiscalRepository(db *gorm.DB) *FiscalRepository {
	return &FiscalRepository{db: db}
}

// SetFiscal inserts or replaces the fiscal document for fiscal.UID
func (r *FiscalRepository) SetFiscal(ctx context.Context, fiscal *domain.Fiscal) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "uid"}},
			DoUpdates: clause.AssignmentColumns([]string{"escuela_id", "dni", "updated_at"}),
		}).
		Create(fiscal).Error
}

// GetFiscal returns the fiscal document for uid or domain.ErrFiscalNotFound
func (r *FiscalRepository) GetFiscal(ctx context.Context, uid string) (*domain.Fiscal, error) {
	var fiscal domain.Fiscal
	err := r.db.WithContext(ctx).First(&fiscal, "uid = ?", uid).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrFiscalNotFound
		}
		return nil, err
	}
	return &fiscal, nil
}

func (r *FiscalRepository) ListFiscales(ctx context.Context, limit int) ([]domain.Fiscal, error) {
	var fiscales []domain.Fiscal
	err := r.db.WithContext(ctx).
		Order("escuela_id ASC").
		Limit(limit).
		Find(&fiscales).Error
	return fiscales, err
}
