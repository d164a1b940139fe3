package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/sanisidro/fiscal-api/internal/config"
	"github.com/sanisidro/fiscal-api/internal/csvimport"
	"github.com/sanisidro/fiscal-api/internal/domain"
	"go.uber.org/zap"
)

// User-facing import messages
const (
	msgNoCSVData       = "No se proporcionaron datos CSV."
	msgTooFewLines     = "El CSV debe tener un encabezado y al menos una fila de datos."
	msgMissingColumns  = "El encabezado del CSV debe contener las columnas: escuela_id, dni."
	msgRowSkipped      = "Registro omitido: falta escuela_id o dni."
	msgAccountExists   = "El usuario %s ya existe."
	msgAccountFailed   = "Error creando usuario para escuela %s: %s"
	msgImportCompleted = "Proceso completado. %d usuarios creados, %d errores."
)

// AccountCreator creates login accounts. A duplicate email yields ErrAccountExists.
type AccountCreator interface {
	CreateAccount(ctx context.Context, in domain.NewAccount) (string, error)
	GetAccountByEmail(ctx context.Context, email string) (string, error)
}

// FiscalWriter stores one fiscal document per account uid. GetFiscal yields
// ErrFiscalNotFound for an unknown uid.
type FiscalWriter interface {
	SetFiscal(ctx context.Context, fiscal *domain.Fiscal) error
	GetFiscal(ctx context.Context, uid string) (*domain.Fiscal, error)
	ListFiscales(ctx context.Context, limit int) ([]domain.Fiscal, error)
}

// ImportService creates one account and one fiscal document per CSV row
type ImportService struct {
	accounts       AccountCreator
	fiscales       FiscalWriter
	emailDomain    string
	updateExisting bool
	validate       *validator.Validate
	logger         *zap.Logger
}

// NewImportService creates a new ImportService instance
func NewImportService(accounts AccountCreator, fiscales FiscalWriter, cfg *config.ImportConfig, logger *zap.Logger) *ImportService {
	emailDomain := cfg.EmailDomain
	if emailDomain == "" {
		emailDomain = "fiscal.app"
	}
	return &ImportService{
		accounts:       accounts,
		fiscales:       fiscales,
		emailDomain:    emailDomain,
		updateExisting: cfg.UpdateExisting,
		validate:       validator.New(),
		logger:         logger,
	}
}

// ImportCSV parses csvText and imports every record in order. Row failures
// are collected in the result; only unusable input returns an error. When ctx
// ends mid-import the records done so far are returned with the error.
func (s *ImportService) ImportCSV(ctx context.Context, csvText string) (*domain.ImportResult, error) {
	if csvText == "" {
		return nil, invalidArgument(msgNoCSVData)
	}

	records, err := csvimport.Parse(csvText)
	if err != nil {
		switch {
		case errors.Is(err, csvimport.ErrTooFewLines):
			return nil, invalidArgument(msgTooFewLines)
		case errors.Is(err, csvimport.ErrMissingColumns):
			return nil, invalidArgument(msgMissingColumns)
		default:
			return nil, fmt.Errorf("failed to parse csv: %w", err)
		}
	}

	result := &domain.ImportResult{Details: []string{}}
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			done := result.SuccessCount + result.ErrorCount
			result.Message = fmt.Sprintf(msgImportCompleted, result.SuccessCount, result.ErrorCount)
			s.logger.Warn("Fiscal import interrupted",
				zap.Int("success_count", result.SuccessCount),
				zap.Int("error_count", result.ErrorCount),
				zap.Int("remaining", len(records)-done),
			)
			return result, fmt.Errorf("import interrupted after %d of %d records: %w", done, len(records), err)
		}

		if msg := s.importRecord(ctx, rec); msg != "" {
			result.ErrorCount++
			result.Details = append(result.Details, msg)
			continue
		}
		result.SuccessCount++
	}

	result.Message = fmt.Sprintf(msgImportCompleted, result.SuccessCount, result.ErrorCount)

	if result.ErrorCount > 0 {
		s.logger.Warn("Errors during fiscal import",
			zap.Int("success_count", result.SuccessCount),
			zap.Int("error_count", result.ErrorCount),
			zap.Strings("errors", result.Details),
		)
	} else {
		s.logger.Info("Fiscal import completed",
			zap.Int("success_count", result.SuccessCount),
		)
	}

	return result, nil
}

// importRecord returns the error message for a failed record, or "" on success
func (s *ImportService) importRecord(ctx context.Context, rec csvimport.Record) string {
	if err := s.validate.Struct(rec); err != nil {
		return msgRowSkipped
	}

	email := fmt.Sprintf("escuela%s@%s", rec.EscuelaID, s.emailDomain)

	uid, err := s.accounts.CreateAccount(ctx, domain.NewAccount{
		Email:       email,
		Password:    rec.DNI,
		DisplayName: "Fiscal Escuela " + rec.EscuelaID,
	})
	if errors.Is(err, ErrAccountExists) && s.updateExisting {
		uid, err = s.accounts.GetAccountByEmail(ctx, email)
	}
	if err != nil {
		if errors.Is(err, ErrAccountExists) {
			return fmt.Sprintf(msgAccountExists, email)
		}
		return fmt.Sprintf(msgAccountFailed, rec.EscuelaID, err.Error())
	}

	if err := s.fiscales.SetFiscal(ctx, &domain.Fiscal{UID: uid, EscuelaID: rec.EscuelaID, DNI: rec.DNI}); err != nil {
		return fmt.Sprintf(msgAccountFailed, rec.EscuelaID, err.Error())
	}

	s.logger.Debug("Fiscal imported",
		zap.Int("line", rec.Line),
		zap.String("escuela_id", rec.EscuelaID),
		zap.String("uid", uid),
	)
	return ""
}

// GetFiscal returns one imported fiscal document
func (s *ImportService) GetFiscal(ctx context.Context, uid string) (*domain.Fiscal, error) {
	if uid == "" {
		return nil, invalidArgument("uid is required")
	}
	fiscal, err := s.fiscales.GetFiscal(ctx, uid)
	if err != nil {
		if errors.Is(err, ErrFiscalNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get fiscal: %w", err)
	}
	return fiscal, nil
}

// ListFiscales returns imported fiscal documents
func (s *ImportService) ListFiscales(ctx context.Context, limit int) ([]domain.Fiscal, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	fiscales, err := s.fiscales.ListFiscales(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list fiscales: %w", err)
	}
	return fiscales, nil
}
