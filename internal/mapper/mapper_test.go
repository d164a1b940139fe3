package mapper_test

import (
	"testing"
	"time"

	"github.com/sanisidro/fiscal-api/internal/domain"
	"github.com/sanisidro/fiscal-api/internal/mapper"
	"github.com/stretchr/testify/assert"
)

func TestToFiscalDTO(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)
	dto := mapper.ToFiscalDTO(&domain.Fiscal{
		UID:       "uid-1",
		EscuelaID: "101",
		DNI:       "30111222",
		CreatedAt: created,
		UpdatedAt: created,
	})

	assert.Equal(t, "uid-1", dto.UID)
	assert.Equal(t, "101", dto.EscuelaID)
	assert.Equal(t, "30111222", dto.DNI)
	assert.Equal(t, "2025-03-01T12:30:00Z", dto.CreatedAt)
	assert.Equal(t, "2025-03-01T12:30:00Z", dto.UpdatedAt)
}

func TestToFiscalDTO_ZeroTimes(t *testing.T) {
	dto := mapper.ToFiscalDTO(&domain.Fiscal{UID: "uid-2", EscuelaID: "7", DNI: "1"})

	assert.Empty(t, dto.CreatedAt)
	assert.Empty(t, dto.UpdatedAt)
}

func TestToFiscalListResponse(t *testing.T) {
	resp := mapper.ToFiscalListResponse([]domain.Fiscal{
		{UID: "a", EscuelaID: "1", DNI: "11"},
		{UID: "b", EscuelaID: "2", DNI: "22"},
	})

	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "a", resp.Data[0].UID)
	assert.Equal(t, "b", resp.Data[1].UID)

	empty := mapper.ToFiscalListResponse(nil)
	assert.NotNil(t, empty.Data)
	assert.Equal(t, 0, empty.Count)
}
