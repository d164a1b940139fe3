package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/sanisidro/fiscal-api/internal/config"
	"github.com/sanisidro/fiscal-api/internal/domain"
	"github.com/sanisidro/fiscal-api/internal/http/handler"
	"github.com/sanisidro/fiscal-api/internal/repository"
	"github.com/sanisidro/fiscal-api/internal/service"
	"github.com/sanisidro/fiscal-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestFiscalHandler(t *testing.T) *handler.FiscalHandler {
	t.Helper()
	return newTestFiscalHandlerWithLimit(t, 1<<20)
}

func newTestFiscalHandlerWithLimit(t *testing.T, maxBody int64) *handler.FiscalHandler {
	t.Helper()
	db := testutil.SetupTestDB(t)
	svc := service.NewImportService(
		repository.NewAccountRepository(db),
		repository.NewFiscalRepository(db),
		&config.ImportConfig{EmailDomain: "fiscal.app"},
		zap.NewNop(),
	)
	return handler.NewFiscalHandler(svc, maxBody, true, zap.NewNop())
}

func postImport(h *handler.FiscalHandler, csv string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(domain.ImportFiscalesRequest{CSV: csv})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/fiscales/import", strings.NewReader(string(body)))
	w := httptest.NewRecorder()
	h.Import(w, req)
	return w
}

func TestFiscalHandler_Import(t *testing.T) {
	h := newTestFiscalHandler(t)

	w := postImport(h, "escuela_id;dni\n101;30111222\n102;30111333\n;30111444\n101;30111555\n")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result domain.ImportResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 2, result.ErrorCount)
	assert.Equal(t, "Proceso completado. 2 usuarios creados, 2 errores.", result.Message)
	assert.Equal(t, []string{
		"Registro omitido: falta escuela_id o dni.",
		"El usuario escuela101@fiscal.app ya existe.",
	}, result.Details)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/fiscales", nil)
	w = httptest.NewRecorder()
	h.List(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var list domain.FiscalListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, 2, list.Count)
	assert.Equal(t, "101", list.Data[0].EscuelaID)
	assert.Equal(t, "30111222", list.Data[0].DNI)
	assert.NotEmpty(t, list.Data[0].UID)
}

func TestFiscalHandler_Import_InvalidInput(t *testing.T) {
	h := newTestFiscalHandler(t)

	tests := []struct {
		name   string
		csv    string
		detail string
	}{
		{"empty", "", "No se proporcionaron datos CSV."},
		{"header only", "escuela_id,dni\n", "El CSV debe tener un encabezado y al menos una fila de datos."},
		{"missing columns", "escuela,documento\n1,2\n", "El encabezado del CSV debe contener las columnas: escuela_id, dni."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postImport(h, tt.csv)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.detail, decodeAPIError(t, w).Detail)
		})
	}
}

func TestFiscalHandler_Import_InvalidJSON(t *testing.T) {
	h := newTestFiscalHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/fiscales/import", strings.NewReader("escuela_id,dni"))
	w := httptest.NewRecorder()
	h.Import(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFiscalHandler_Import_BodyTooLarge(t *testing.T) {
	h := newTestFiscalHandlerWithLimit(t, 64)

	w := postImport(h, "escuela_id,dni\n"+strings.Repeat("1,2\n", 100))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, domain.ErrorTypePayloadTooLarge, decodeAPIError(t, w).Type)
}

func TestFiscalHandler_Get(t *testing.T) {
	h := newTestFiscalHandler(t)
	r := chi.NewRouter()
	r.Get("/api/v1/fiscales/{uid}", h.Get)

	w := postImport(h, "escuela_id,dni\n101,30111222\n")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/fiscales", nil)
	w = httptest.NewRecorder()
	h.List(w, req)
	var list domain.FiscalListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, 1, list.Count)
	uid := list.Data[0].UID

	t.Run("found", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/fiscales/"+uid, nil))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var dto domain.FiscalDTO
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dto))
		assert.Equal(t, uid, dto.UID)
		assert.Equal(t, "101", dto.EscuelaID)
		assert.Equal(t, "30111222", dto.DNI)
	})

	t.Run("not found", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/fiscales/missing", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Fiscal not found", decodeAPIError(t, w).Detail)
	})
}
