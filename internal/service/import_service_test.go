package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sanisidro/fiscal-api/internal/config"
	"github.com/sanisidro/fiscal-api/internal/domain"
	"github.com/sanisidro/fiscal-api/internal/repository"
	"github.com/sanisidro/fiscal-api/internal/service"
	"github.com/sanisidro/fiscal-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// fakeDirectory is an in-memory AccountCreator and FiscalWriter
type fakeDirectory struct {
	accounts  map[string]string // email -> uid
	fiscales  map[string]domain.Fiscal
	failEmail map[string]error
	failSet   error
	afterSet  func()
	created   []domain.NewAccount
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		accounts:  map[string]string{},
		fiscales:  map[string]domain.Fiscal{},
		failEmail: map[string]error{},
	}
}

func (f *fakeDirectory) CreateAccount(_ context.Context, in domain.NewAccount) (string, error) {
	if err, ok := f.failEmail[in.Email]; ok {
		return "", err
	}
	if _, ok := f.accounts[in.Email]; ok {
		return "", domain.ErrAccountExists
	}
	uid := "uid-" + in.Email
	f.accounts[in.Email] = uid
	f.created = append(f.created, in)
	return uid, nil
}

func (f *fakeDirectory) GetAccountByEmail(_ context.Context, email string) (string, error) {
	uid, ok := f.accounts[email]
	if !ok {
		return "", errors.New("not found")
	}
	return uid, nil
}

func (f *fakeDirectory) SetFiscal(_ context.Context, fiscal *domain.Fiscal) error {
	if f.failSet != nil {
		return f.failSet
	}
	f.fiscales[fiscal.UID] = *fiscal
	if f.afterSet != nil {
		f.afterSet()
	}
	return nil
}

func (f *fakeDirectory) GetFiscal(_ context.Context, uid string) (*domain.Fiscal, error) {
	fiscal, ok := f.fiscales[uid]
	if !ok {
		return nil, domain.ErrFiscalNotFound
	}
	return &fiscal, nil
}

func (f *fakeDirectory) ListFiscales(_ context.Context, limit int) ([]domain.Fiscal, error) {
	out := make([]domain.Fiscal, 0, len(f.fiscales))
	for _, v := range f.fiscales {
		out = append(out, v)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func newImportService(dir *fakeDirectory, cfg config.ImportConfig) *service.ImportService {
	return service.NewImportService(dir, dir, &cfg, zap.NewNop())
}

func TestImportService_ImportCSV_Success(t *testing.T) {
	dir := newFakeDirectory()
	svc := newImportService(dir, config.ImportConfig{})

	result, err := svc.ImportCSV(context.Background(), "escuela_id,dni\n12,30111222\n13,30111333\n")
	require.NoError(t, err)

	assert.Equal(t, "Proceso completado. 2 usuarios creados, 0 errores.", result.Message)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 0, result.ErrorCount)
	assert.NotNil(t, result.Details)
	assert.Empty(t, result.Details)

	require.Len(t, dir.created, 2)
	assert.Equal(t, domain.NewAccount{
		Email:       "escuela12@fiscal.app",
		Password:    "30111222",
		DisplayName: "Fiscal Escuela 12",
	}, dir.created[0])

	fiscal := dir.fiscales["uid-escuela12@fiscal.app"]
	assert.Equal(t, "12", fiscal.EscuelaID)
	assert.Equal(t, "30111222", fiscal.DNI)
}

func TestImportService_ImportCSV_CustomEmailDomain(t *testing.T) {
	dir := newFakeDirectory()
	svc := newImportService(dir, config.ImportConfig{EmailDomain: "example.org"})

	_, err := svc.ImportCSV(context.Background(), "escuela_id,dni\n1,2")
	require.NoError(t, err)
	assert.Equal(t, "escuela1@example.org", dir.created[0].Email)
}

func TestImportService_ImportCSV_PartialFailures(t *testing.T) {
	dir := newFakeDirectory()
	dir.accounts["escuela2@fiscal.app"] = "uid-existing"
	dir.failEmail["escuela4@fiscal.app"] = errors.New("quota exceeded")
	svc := newImportService(dir, config.ImportConfig{})

	csv := "escuela_id,dni\n1,100\n2,200\n,300\n4,400\n5,"
	result, err := svc.ImportCSV(context.Background(), csv)
	require.NoError(t, err)

	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 4, result.ErrorCount)
	assert.Equal(t, "Proceso completado. 1 usuarios creados, 4 errores.", result.Message)
	assert.Equal(t, []string{
		"El usuario escuela2@fiscal.app ya existe.",
		"Registro omitido: falta escuela_id o dni.",
		"Error creando usuario para escuela 4: quota exceeded",
		"Registro omitido: falta escuela_id o dni.",
	}, result.Details)
}

func TestImportService_ImportCSV_DocumentWriteFails(t *testing.T) {
	dir := newFakeDirectory()
	dir.failSet = errors.New("permission denied")
	svc := newImportService(dir, config.ImportConfig{})

	result, err := svc.ImportCSV(context.Background(), "escuela_id,dni\n9,900")
	require.NoError(t, err)
	assert.Equal(t, 0, result.SuccessCount)
	assert.Equal(t, []string{"Error creando usuario para escuela 9: permission denied"}, result.Details)
}

func TestImportService_ImportCSV_UpdateExisting(t *testing.T) {
	dir := newFakeDirectory()
	dir.accounts["escuela2@fiscal.app"] = "uid-existing"
	svc := newImportService(dir, config.ImportConfig{UpdateExisting: true})

	result, err := svc.ImportCSV(context.Background(), "escuela_id,dni\n2,222")
	require.NoError(t, err)

	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 0, result.ErrorCount)
	assert.Equal(t, "222", dir.fiscales["uid-existing"].DNI)
}

func TestImportService_ImportCSV_InvalidInput(t *testing.T) {
	svc := newImportService(newFakeDirectory(), config.ImportConfig{})

	tests := []struct {
		name string
		csv  string
		want string
	}{
		{"empty", "", "No se proporcionaron datos CSV."},
		{"header only", "escuela_id,dni\n", "El CSV debe tener un encabezado y al menos una fila de datos."},
		{"missing columns", "escuela,documento\n1,2", "El encabezado del CSV debe contener las columnas: escuela_id, dni."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ImportCSV(context.Background(), tt.csv)
			require.Error(t, err)
			assert.ErrorIs(t, err, service.ErrInvalidArgument)
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestImportService_ImportCSV_Cancelled(t *testing.T) {
	svc := newImportService(newFakeDirectory(), config.ImportConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.ImportCSV(ctx, "escuela_id,dni\n1,2")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestImportService_ImportCSV_CancelledMidImport(t *testing.T) {
	dir := newFakeDirectory()
	svc := newImportService(dir, config.ImportConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dir.afterSet = cancel

	result, err := svc.ImportCSV(ctx, "escuela_id,dni\n1,100\n2,200\n3,300")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "after 1 of 3 records")
	require.NotNil(t, result)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Zero(t, result.ErrorCount)
	assert.Len(t, dir.fiscales, 1)
}

func TestImportService_GetFiscal(t *testing.T) {
	dir := newFakeDirectory()
	svc := newImportService(dir, config.ImportConfig{})
	ctx := context.Background()

	_, err := svc.ImportCSV(ctx, "escuela_id,dni\n5,500")
	require.NoError(t, err)

	got, err := svc.GetFiscal(ctx, "uid-escuela5@fiscal.app")
	require.NoError(t, err)
	assert.Equal(t, "5", got.EscuelaID)
	assert.Equal(t, "500", got.DNI)

	_, err = svc.GetFiscal(ctx, "missing")
	assert.ErrorIs(t, err, service.ErrFiscalNotFound)

	_, err = svc.GetFiscal(ctx, "")
	assert.ErrorIs(t, err, service.ErrInvalidArgument)
}

func TestImportService_WithSQLDirectory(t *testing.T) {
	db := testutil.SetupTestDB(t)
	accounts := repository.NewAccountRepository(db)
	fiscales := repository.NewFiscalRepository(db)
	svc := service.NewImportService(accounts, fiscales, &config.ImportConfig{EmailDomain: "fiscal.app"}, zap.NewNop())
	ctx := context.Background()

	result, err := svc.ImportCSV(ctx, "escuela_id;dni\n1;100\n2;200\n1;111")
	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, []string{"El usuario escuela1@fiscal.app ya existe."}, result.Details)

	list, err := svc.ListFiscales(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "1", list[0].EscuelaID)
	assert.Equal(t, "100", list[0].DNI)

	var account domain.Account
	require.NoError(t, db.First(&account, "email = ?", "escuela2@fiscal.app").Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte("200")))
}
