// Package firebase keeps imported accounts in Firebase Authentication and
// their fiscal documents in Firestore.
package firebase

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/sanisidro/fiscal-api/internal/config"
	"github.com/sanisidro/fiscal-api/internal/domain"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// ErrNotFound is returned when no account has the requested email
var ErrNotFound = errors.New("firebase account not found")

// Directory implements the import service's account and fiscal stores
type Directory struct {
	auth       *auth.Client
	firestore  *firestore.Client
	collection string
	logger     *zap.Logger
}

// NewDirectory initialises the Firebase Admin SDK for the configured project
func NewDirectory(ctx context.Context, cfg *config.DirectoryConfig, collection string, logger *zap.Logger) (*Directory, error) {
	var opts []option.ClientOption
	if cfg.FirebaseCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase auth: %w", err)
	}

	fs, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firestore: %w", err)
	}

	logger.Info("Firebase directory initialized",
		zap.String("project_id", cfg.FirebaseProjectID),
		zap.String("collection", collection),
	)

	return &Directory{
		auth:       authClient,
		firestore:  fs,
		collection: collection,
		logger:     logger,
	}, nil
}

// CreateAccount creates a Firebase Authentication user and returns its uid
func (d *Directory) CreateAccount(ctx context.Context, in domain.NewAccount) (string, error) {
	params := (&auth.UserToCreate{}).
		Email(in.Email).
		Password(in.Password).
		DisplayName(in.DisplayName)

	user, err := d.auth.CreateUser(ctx, params)
	if err != nil {
		if auth.IsEmailAlreadyExists(err) {
			return "", domain.ErrAccountExists
		}
		return "", err
	}
	return user.UID, nil
}

// GetAccountByEmail looks up a user's uid by email
func (d *Directory) GetAccountByEmail(ctx context.Context, email string) (string, error) {
	user, err := d.auth.GetUserByEmail(ctx, email)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return "", ErrNotFound
		}
		return "", err
	}
	return user.UID, nil
}

// GetFiscal reads the fiscal document keyed by uid
func (d *Directory) GetFiscal(ctx context.Context, uid string) (*domain.Fiscal, error) {
	snap, err := d.firestore.Collection(d.collection).Doc(uid).Get(ctx)
	// Get returns a snapshot that does not exist alongside the NotFound error
	if snap != nil && !snap.Exists() {
		return nil, domain.ErrFiscalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read fiscal document: %w", err)
	}

	var f domain.Fiscal
	if err := snap.DataTo(&f); err != nil {
		return nil, fmt.Errorf("failed to decode fiscal document: %w", err)
	}
	f.UID = snap.Ref.ID
	f.CreatedAt = snap.CreateTime
	f.UpdatedAt = snap.UpdateTime
	return &f, nil
}

// SetFiscal writes {escuela_id, dni} to the collection document keyed by uid
func (d *Directory) SetFiscal(ctx context.Context, fiscal *domain.Fiscal) error {
	_, err := d.firestore.Collection(d.collection).Doc(fiscal.UID).Set(ctx, fiscal)
	if err != nil {
		return fmt.Errorf("failed to write fiscal document: %w", err)
	}
	return nil
}

// ListFiscales returns up to limit documents ordered by escuela_id
func (d *Directory) ListFiscales(ctx context.Context, limit int) ([]domain.Fiscal, error) {
	snaps, err := d.firestore.Collection(d.collection).
		OrderBy("escuela_id", firestore.Asc).
		Limit(limit).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list fiscal documents: %w", err)
	}

	fiscales := make([]domain.Fiscal, 0, len(snaps))
	for _, snap := range snaps {
		var f domain.Fiscal
		if err := snap.DataTo(&f); err != nil {
			d.logger.Warn("Skipping unreadable fiscal document",
				zap.String("uid", snap.Ref.ID),
				zap.Error(err),
			)
			continue
		}
		f.UID = snap.Ref.ID
		f.CreatedAt = snap.CreateTime
		f.UpdatedAt = snap.UpdateTime
		fiscales = append(fiscales, f)
	}
	return fiscales, nil
}

// Close releases the Firestore client
func (d *Directory) Close() error {
	return d.firestore.Close()
}
