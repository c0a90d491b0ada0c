package store

import (
	"context"
	"errors"
	"time"

	"github.com/aula-cl/lectura/internal/domain"
	"github.com/aula-cl/lectura/pkg/idx"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrConflict reports a conditional update that matched no row, e.g.
	// consuming a grant that is no longer ACTIVE.
	ErrConflict = errors.New("store: conflicting state")
)

// Store is the root data access interface. Concrete drivers (sqlite)
// implement it. Sub-repositories keep concerns tidy and testable.
type Store interface {
	Accounts() Accounts
	SubUsers() SubUsers
	InvitationCodes() InvitationCodes
	Licenses() Licenses
	LoginAttempts() LoginAttempts
	Texts() Texts
	Questions() Questions
	ReadingAttempts() ReadingAttempts

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, rolling back when fn errors
	// and committing otherwise. Use it for the multi-step operations that
	// must be atomic (grant consumption + expiry extension).
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Accounts interface {
	// CreateAccount inserts a new account (id provided by the app via ULID).
	CreateAccount(ctx context.Context, a domain.Account) error

	GetAccountByID(ctx context.Context, id idx.ID) (domain.Account, error)

	// GetAccountByHandle is used during the password grant.
	GetAccountByHandle(ctx context.Context, handle string) (domain.Account, error)

	// GetAccountByEmail is used during password reset.
	GetAccountByEmail(ctx context.Context, email string) (domain.Account, error)

	UpdatePasswordHash(ctx context.Context, id idx.ID, newHash string) error

	// UpdateAccessExpiry sets the premium window end. Only grant redemption
	// calls this.
	UpdateAccessExpiry(ctx context.Context, id idx.ID, expiresAt time.Time) error
}

type SubUsers interface {
	CreateSubUser(ctx context.Context, su domain.SubUser) error

	GetSubUserByID(ctx context.Context, id idx.ID) (domain.SubUser, error)

	// GetSubUserByCodeIndex is the O(1) login-code lookup path.
	GetSubUserByCodeIndex(ctx context.Context, index string) (domain.SubUser, error)

	ListSubUsersByAccount(ctx context.Context, accountID idx.ID) ([]domain.SubUser, error)

	UpdateSubUserName(ctx context.Context, id idx.ID, name string) error

	// UpdateSubUserLicense atomically writes the new expiry and the code
	// triplet produced by license activation.
	UpdateSubUserLicense(ctx context.Context, id idx.ID, expiresAt time.Time, codeHash, codeIndex, codeDisplay string) error

	DeleteSubUser(ctx context.Context, id idx.ID) error
}

type InvitationCodes interface {
	CreateInvitationCode(ctx context.Context, c domain.InvitationCode) error

	// GetInvitationCodeByCode looks up by exact code match.
	GetInvitationCodeByCode(ctx context.Context, code string) (domain.InvitationCode, error)

	// ConsumeInvitationCode flips ACTIVE -> USED with a conditional update.
	// Returns ErrConflict when the row was not ACTIVE, so concurrent
	// redemptions have exactly one winner.
	ConsumeInvitationCode(ctx context.Context, id idx.ID, accountID idx.ID, usedAt time.Time) error

	ListInvitationCodes(ctx context.Context) ([]domain.InvitationCode, error)
}

type Licenses interface {
	CreateLicense(ctx context.Context, l domain.License) error

	GetLicenseByKey(ctx context.Context, key string) (domain.License, error)

	// ConsumeLicense flips ACTIVE -> USED conditionally, stamping the
	// activating sub-user and time. Returns ErrConflict when not ACTIVE.
	ConsumeLicense(ctx context.Context, id idx.ID, subUserID idx.ID, activatedAt time.Time) error

	// DetachLicensesFromSubUser clears the sub-user back-reference without
	// touching status, preserving license history across sub-user deletion.
	DetachLicensesFromSubUser(ctx context.Context, subUserID idx.ID) error

	ListLicenses(ctx context.Context) ([]domain.License, error)
}

type LoginAttempts interface {
	// RecordLoginAttempt appends one attempt. Records are never updated.
	RecordLoginAttempt(ctx context.Context, a domain.LoginAttempt) error

	// CountRecentFailures counts failed attempts for a code index since the
	// cutoff. This is the rate limiter's only state.
	CountRecentFailures(ctx context.Context, codeIndex string, since time.Time) (int, error)

	// DeleteLoginAttemptsBefore prunes the audit log (retention housekeeping).
	DeleteLoginAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type Texts interface {
	CreateText(ctx context.Context, t domain.Text) error
	GetTextByID(ctx context.Context, id idx.ID) (domain.Text, error)
	ListTextsByCourseLevel(ctx context.Context, courseLevel string) ([]domain.Text, error)
	UpdateText(ctx context.Context, t domain.Text) error
	DeleteText(ctx context.Context, id idx.ID) error
}

type Questions interface {
	CreateQuestion(ctx context.Context, q domain.Question) error
	ListQuestionsByText(ctx context.Context, textID idx.ID) ([]domain.Question, error)
	DeleteQuestionsByText(ctx context.Context, textID idx.ID) error
}

type ReadingAttempts interface {
	CreateReadingAttempt(ctx context.Context, a domain.ReadingAttempt) error

	// ListReadingAttemptsBySubject returns attempts oldest-first.
	ListReadingAttemptsBySubject(ctx context.Context, subjectKind, subjectID string) ([]domain.ReadingAttempt, error)
}
