package session

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// credentialRecord is the persisted credential set. The table holds at most
// one row: the client instance owns a single logical session.
type credentialRecord struct {
	bun.BaseModel `bun:"table:session_credentials,alias:sc"`
	ID            int64     `bun:"id,pk"`
	AccessToken   string    `bun:"access_token,notnull"`
	RefreshToken  string    `bun:"refresh_token,notnull"`
	IDToken       string    `bun:"id_token,notnull"`
	ExpiresAt     time.Time `bun:"expires_at,notnull"`
}

const credentialRecordID = 1

// BunTokenStore is a durable TokenStore on a bun-managed database. It is the
// process analog of the browser's persistent key-value storage: credentials
// survive restarts until cleared.
type BunTokenStore struct {
	db *bun.DB
}

// Verify interface compliance
var _ TokenStore = (*BunTokenStore)(nil)

// NewBunTokenStore creates a store over an existing bun handle
func NewBunTokenStore(db *bun.DB) *BunTokenStore {
	return &BunTokenStore{db: db}
}

// OpenSQLiteTokenStore opens (or creates) a sqlite-backed store at dsn, e.g.
// "file:session.db" or "file::memory:?cache=shared".
func OpenSQLiteTokenStore(ctx context.Context, dsn string) (*BunTokenStore, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to open credential database").
			WithCode(errors.CodeInternal)
	}

	store := NewBunTokenStore(bun.NewDB(sqldb, sqlitedialect.New()))
	if err := store.Init(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// Init creates the credentials table if needed
func (s *BunTokenStore) Init(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*credentialRecord)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to create credentials table").
			WithCode(errors.CodeInternal)
	}
	return nil
}

// Save atomically replaces the stored credential set
func (s *BunTokenStore) Save(ctx context.Context, creds *CredentialSet) error {
	if creds == nil {
		return s.Clear(ctx)
	}

	record := &credentialRecord{
		ID:           credentialRecordID,
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		IDToken:      creds.IDToken,
		ExpiresAt:    creds.ExpiresAt,
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*credentialRecord)(nil)).
			Where("id = ?", credentialRecordID).
			Exec(ctx); err != nil {
			return err
		}

		_, err := tx.NewInsert().Model(record).Exec(ctx)
		return err
	})
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to persist credentials").
			WithCode(errors.CodeInternal)
	}

	return nil
}

// Load returns the stored credential set, treating a missing or incomplete
// row as no session
func (s *BunTokenStore) Load(ctx context.Context) (*CredentialSet, error) {
	record := &credentialRecord{}

	err := s.db.NewSelect().
		Model(record).
		Where("id = ?", credentialRecordID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to load credentials").
			WithCode(errors.CodeInternal)
	}

	creds := &CredentialSet{
		AccessToken:  record.AccessToken,
		RefreshToken: record.RefreshToken,
		IDToken:      record.IDToken,
		ExpiresAt:    record.ExpiresAt,
	}

	if !creds.Complete() {
		return nil, nil
	}

	return creds, nil
}

// Clear removes the stored credential set
func (s *BunTokenStore) Clear(ctx context.Context) error {
	_, err := s.db.NewDelete().
		Model((*credentialRecord)(nil)).
		Where("id = ?", credentialRecordID).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to clear credentials").
			WithCode(errors.CodeInternal)
	}
	return nil
}
