package mapper

import (
	"time"

	"github.com/sanisidro/fiscal-api/internal/domain"
)

const isoLayout = "2006-01-02T15:04:05Z"

// ToFiscalDTO converts Fiscal to FiscalDTO
func ToFiscalDTO(fiscal *domain.Fiscal) domain.FiscalDTO {
	return domain.FiscalDTO{
		UID:       fiscal.UID,
		EscuelaID: fiscal.EscuelaID,
		DNI:       fiscal.DNI,
		CreatedAt: formatTime(fiscal.CreatedAt),
		UpdatedAt: formatTime(fiscal.UpdatedAt),
	}
}

// ToFiscalListResponse converts a slice of fiscales to the list response
func ToFiscalListResponse(fiscales []domain.Fiscal) domain.FiscalListResponse {
	data := make([]domain.FiscalDTO, len(fiscales))
	for i := range fiscales {
		data[i] = ToFiscalDTO(&fiscales[i])
	}
	return domain.FiscalListResponse{
		Data:  data,
		Count: len(data),
	}
}

// formatTime leaves zero times empty; Firestore documents written by the
// import carry no timestamps
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(isoLayout)
}
