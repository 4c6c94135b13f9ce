package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-session-auth"
)

// Account is a login allowed to request session tokens
type Account struct {
	bun.BaseModel  `bun:"table:accounts,alias:acc"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Login          string     `bun:"login,notnull,unique" json:"login"`
	CredentialHash string     `bun:"credential_hash,notnull" json:"-"`
	DisplayName    string     `bun:"display_name,notnull" json:"name"`
	Admin          bool       `bun:"is_admin,notnull,default:false" json:"admin"`
	Deactivated    bool       `bun:"deactivated,notnull,default:false" json:"deactivated"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// NewAccountInput is what Create needs to store an account
type NewAccountInput struct {
	Login       string
	Credential  string
	DisplayName string
	Admin       bool
}

// Accounts reads and writes accounts and verifies credentials against them.
type Accounts struct {
	db     bun.IDB
	hasher *Hasher
	logger auth.Logger
}

var _ auth.CredentialVerifier = (*Accounts)(nil)

type AccountsOption func(*Accounts)

// WithHasher replaces the default bcrypt hasher
func WithHasher(h *Hasher) AccountsOption {
	return func(a *Accounts) {
		if h != nil {
			a.hasher = h
		}
	}
}

// WithAccountsLogger sets the logger
func WithAccountsLogger(logger auth.Logger) AccountsOption {
	return func(a *Accounts) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func NewAccounts(db bun.IDB, opts ...AccountsOption) *Accounts {
	a := &Accounts{
		db:     db,
		hasher: NewHasher(hashCost()),
		logger: nopLogger{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// CreateTable creates the accounts table if needed
func (a *Accounts) CreateTable(ctx context.Context) error {
	_, err := a.db.NewCreateTable().
		Model((*Account)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

// Create hashes the credential and stores a new account
func (a *Accounts) Create(ctx context.Context, in NewAccountInput) (*Account, error) {
	login := strings.TrimSpace(in.Login)
	if login == "" {
		return nil, ErrEmptyLogin
	}

	hash, err := a.hasher.Hash(in.Credential)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.DisplayName)
	if name == "" {
		name = login
	}

	record := &Account{
		ID:             uuid.New(),
		Login:          login,
		CredentialHash: hash,
		DisplayName:    name,
		Admin:          in.Admin,
	}

	if _, err := a.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, err
	}

	return record, nil
}

// Seed creates the account unless the login already exists
func (a *Accounts) Seed(ctx context.Context, in NewAccountInput) (*Account, error) {
	existing, err := a.GetByLogin(ctx, in.Login)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, auth.ErrCredentialNotFound) {
		return nil, err
	}
	return a.Create(ctx, in)
}

// GetByLogin returns the account for login, active or not
func (a *Accounts) GetByLogin(ctx context.Context, login string) (*Account, error) {
	record := new(Account)
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.login = ?", login).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrCredentialNotFound
		}
		return nil, err
	}
	return record, nil
}

// SetDeactivated flips the deactivated flag of login
func (a *Accounts) SetDeactivated(ctx context.Context, login string, deactivated bool) error {
	res, err := a.db.NewUpdate().
		Model((*Account)(nil)).
		Set("deactivated = ?", deactivated).
		Set("updated_at = ?", time.Now()).
		Where("login = ?", login).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return auth.ErrCredentialNotFound
	}
	return nil
}

// VerifyCredentials implements auth.CredentialVerifier. Unknown logins still
// pay for a hash comparison so response time does not reveal them.
func (a *Accounts) VerifyCredentials(ctx context.Context, login, credential string) (*auth.UserInfo, error) {
	record, err := a.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, auth.ErrCredentialNotFound) {
			a.hasher.CompareDummy(credential)
			return nil, auth.ErrCredentialNotFound
		}
		a.logger.Error("accounts lookup for %s failed: %v", login, err)
		return nil, err
	}

	if err := a.hasher.Compare(credential, record.CredentialHash); err != nil {
		if errors.Is(err, ErrMismatchedCredential) {
			return nil, auth.ErrCredentialNotFound
		}
		return nil, err
	}

	if record.Deactivated {
		return nil, auth.ErrAccountInactive
	}

	return &auth.UserInfo{
		DisplayName: record.DisplayName,
		Admin:       record.Admin,
	}, nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
