package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/aula-cl/lectura/internal/domain"
	"github.com/aula-cl/lectura/internal/store"
	"github.com/aula-cl/lectura/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func TestAccountsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	acc := domain.Account{
		ID:           idx.New(),
		Handle:       "alice",
		Email:        "alice@example.com",
		PasswordHash: "hash",
		CourseLevel:  "3eso",
	}
	require.NoError(t, s.Accounts().CreateAccount(ctx, acc))

	got, err := s.Accounts().GetAccountByHandle(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, acc.ID, got.ID)
	require.Nil(t, got.AccessExpiresAt)

	got, err = s.Accounts().GetAccountByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, acc.ID, got.ID)

	_, err = s.Accounts().GetAccountByHandle(ctx, "nobody")
	require.ErrorIs(t, err, store.ErrNotFound)

	t.Run("duplicate handle", func(t *testing.T) {
		dup := acc
		dup.ID = idx.New()
		dup.Email = "other@example.com"
		require.ErrorIs(t, s.Accounts().CreateAccount(ctx, dup), store.ErrAlreadyExists)
	})

	t.Run("expiry update survives round trip", func(t *testing.T) {
		expiry := time.Now().Add(365 * 24 * time.Hour).UTC().Truncate(time.Second)
		require.NoError(t, s.Accounts().UpdateAccessExpiry(ctx, acc.ID, expiry))

		got, err := s.Accounts().GetAccountByID(ctx, acc.ID)
		require.NoError(t, err)
		require.NotNil(t, got.AccessExpiresAt)
		require.WithinDuration(t, expiry, *got.AccessExpiresAt, time.Second)
	})

	t.Run("update of missing row reports not found", func(t *testing.T) {
		err := s.Accounts().UpdatePasswordHash(ctx, idx.New(), "new-hash")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestSubUserCodeIndexLookup(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	acc := domain.Account{ID: idx.New(), Handle: "owner", PasswordHash: "hash"}
	require.NoError(t, s.Accounts().CreateAccount(ctx, acc))

	su := domain.SubUser{
		ID:        idx.New(),
		AccountID: acc.ID,
		Name:      "Pablo",
		Active:    true,
	}
	require.NoError(t, s.SubUsers().CreateSubUser(ctx, su))

	// Without a code the sub-user must not be reachable via the empty index.
	_, err := s.SubUsers().GetSubUserByCodeIndex(ctx, "")
	require.ErrorIs(t, err, store.ErrNotFound)

	expiry := time.Now().Add(30 * 24 * time.Hour).UTC()
	require.NoError(t, s.SubUsers().UpdateSubUserLicense(ctx, su.ID, expiry, "code-hash", "code-index", "CL123456ABC"))

	got, err := s.SubUsers().GetSubUserByCodeIndex(ctx, "code-index")
	require.NoError(t, err)
	require.Equal(t, su.ID, got.ID)
	require.Equal(t, "CL123456ABC", got.LoginCodeDisplay)
	require.NotNil(t, got.AccessExpiresAt)

	t.Run("code index collision maps to already exists", func(t *testing.T) {
		other := domain.SubUser{ID: idx.New(), AccountID: acc.ID, Name: "Marta", Active: true}
		require.NoError(t, s.SubUsers().CreateSubUser(ctx, other))

		err := s.SubUsers().UpdateSubUserLicense(ctx, other.ID, expiry, "other-hash", "code-index", "CL999999XYZ")
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})
}

func TestConsumeInvitationCodeSingleWinner(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	acc := domain.Account{ID: idx.New(), Handle: "alice", PasswordHash: "hash"}
	require.NoError(t, s.Accounts().CreateAccount(ctx, acc))

	code := domain.InvitationCode{
		ID:           idx.New(),
		Code:         "1234ABCD",
		Status:       domain.GrantActive,
		DurationDays: 365,
	}
	require.NoError(t, s.InvitationCodes().CreateInvitationCode(ctx, code))

	now := time.Now().UTC()
	require.NoError(t, s.InvitationCodes().ConsumeInvitationCode(ctx, code.ID, acc.ID, now))

	// Second consumption must lose: the row is no longer ACTIVE.
	err := s.InvitationCodes().ConsumeInvitationCode(ctx, code.ID, acc.ID, now)
	require.ErrorIs(t, err, store.ErrConflict)

	got, err := s.InvitationCodes().GetInvitationCodeByCode(ctx, "1234ABCD")
	require.NoError(t, err)
	require.Equal(t, domain.GrantUsed, got.Status)
	require.Equal(t, acc.ID, got.UsedByAccountID)
	require.NotNil(t, got.UsedAt)
}

func TestConsumeRevokedLicense(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	lic := domain.License{
		ID:           idx.New(),
		Key:          "123456789",
		Status:       domain.GrantRevoked,
		DurationDays: 180,
	}
	require.NoError(t, s.Licenses().CreateLicense(ctx, lic))

	err := s.Licenses().ConsumeLicense(ctx, lic.ID, idx.New(), time.Now().UTC())
	require.ErrorIs(t, err, store.ErrConflict)
}

func TestDetachLicensesOnSubUserDeletion(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	acc := domain.Account{ID: idx.New(), Handle: "owner", PasswordHash: "hash"}
	require.NoError(t, s.Accounts().CreateAccount(ctx, acc))

	su := domain.SubUser{ID: idx.New(), AccountID: acc.ID, Name: "Pablo", Active: true}
	require.NoError(t, s.SubUsers().CreateSubUser(ctx, su))

	lic := domain.License{ID: idx.New(), Key: "987654321", Status: domain.GrantActive, DurationDays: 90}
	require.NoError(t, s.Licenses().CreateLicense(ctx, lic))
	require.NoError(t, s.Licenses().ConsumeLicense(ctx, lic.ID, su.ID, time.Now().UTC()))

	require.NoError(t, s.Licenses().DetachLicensesFromSubUser(ctx, su.ID))
	require.NoError(t, s.SubUsers().DeleteSubUser(ctx, su.ID))

	got, err := s.Licenses().GetLicenseByKey(ctx, "987654321")
	require.NoError(t, err)
	require.Equal(t, domain.GrantUsed, got.Status)
	require.True(t, got.SubUserID.IsZero())
	require.NotNil(t, got.ActivatedAt)
}

func TestLoginAttemptWindowCounting(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	now := time.Now().UTC()
	record := func(index string, success bool, at time.Time) {
		t.Helper()
		err := s.LoginAttempts().RecordLoginAttempt(ctx, domain.LoginAttempt{
			IPAddress: "203.0.113.7",
			CodeIndex: index,
			Success:   success,
			CreatedAt: at,
		})
		require.NoError(t, err)
	}

	record("idx-a", false, now.Add(-10*time.Minute)) // outside window
	record("idx-a", false, now.Add(-4*time.Minute))
	record("idx-a", false, now.Add(-1*time.Minute))
	record("idx-a", true, now.Add(-30*time.Second)) // successes never count
	record("idx-b", false, now.Add(-1*time.Minute)) // other code

	n, err := s.LoginAttempts().CountRecentFailures(ctx, "idx-a", now.Add(-5*time.Minute))
	require.NoError(t, err)
	require.Equal(t, 2, n)

	t.Run("retention prune removes only old rows", func(t *testing.T) {
		deleted, err := s.LoginAttempts().DeleteLoginAttemptsBefore(ctx, now.Add(-5*time.Minute))
		require.NoError(t, err)
		require.EqualValues(t, 1, deleted)

		n, err := s.LoginAttempts().CountRecentFailures(ctx, "idx-a", now.Add(-15*time.Minute))
		require.NoError(t, err)
		require.Equal(t, 2, n)
	})
}

func TestQuestionsOptionsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	text := domain.Text{
		ID:          idx.New(),
		Title:       "El bosque",
		CourseLevel: "3eso",
		Language:    "es",
		Content:     "Había una vez...",
		Free:        true,
	}
	require.NoError(t, s.Texts().CreateText(ctx, text))

	q := domain.Question{
		ID:            idx.New(),
		TextID:        text.ID,
		Prompt:        "¿Dónde transcurre la historia?",
		Options:       []string{"En el bosque", "En la ciudad", "En la playa", "En la montaña"},
		CorrectOption: 0,
	}
	require.NoError(t, s.Questions().CreateQuestion(ctx, q))

	qs, err := s.Questions().ListQuestionsByText(ctx, text.ID)
	require.NoError(t, err)
	require.Len(t, qs, 1)
	require.Equal(t, q.Options, qs[0].Options)
	require.Equal(t, 0, qs[0].CorrectOption)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	boom := domain.Account{ID: idx.New(), Handle: "bob", PasswordHash: "hash"}
	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Accounts().CreateAccount(ctx, boom); err != nil {
			return err
		}
		return context.Canceled
	})
	require.ErrorIs(t, err, context.Canceled)

	_, err = s.Accounts().GetAccountByHandle(ctx, "bob")
	require.ErrorIs(t, err, store.ErrNotFound)
}
