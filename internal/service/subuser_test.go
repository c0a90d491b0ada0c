package service

import (
	"context"
	"testing"
	"time"

	"github.com/aula-cl/lectura/internal/domain"
	"github.com/aula-cl/lectura/pkg/codes"
	"github.com/aula-cl/lectura/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestSubUserLifecycle(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &SubUserService{Store: st}

	owner := domain.Account{ID: idx.New(), Handle: "owner", PasswordHash: "x"}
	require.NoError(t, st.Accounts().CreateAccount(ctx, owner))
	stranger := domain.Account{ID: idx.New(), Handle: "stranger", PasswordHash: "x"}
	require.NoError(t, st.Accounts().CreateAccount(ctx, stranger))

	su, err := svc.Create(ctx, owner.ID, "  Pablo ")
	require.NoError(t, err)
	require.Equal(t, "Pablo", su.Name)
	require.True(t, su.Active)
	require.Nil(t, su.AccessExpiresAt)

	t.Run("blank name rejected", func(t *testing.T) {
		_, err := svc.Create(ctx, owner.ID, "   ")
		require.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("list is owner scoped", func(t *testing.T) {
		mine, err := svc.List(ctx, owner.ID)
		require.NoError(t, err)
		require.Len(t, mine, 1)

		theirs, err := svc.List(ctx, stranger.ID)
		require.NoError(t, err)
		require.Empty(t, theirs)
	})

	t.Run("rename by stranger looks missing", func(t *testing.T) {
		_, err := svc.Rename(ctx, stranger.ID, su.ID, "Hacked")
		require.ErrorIs(t, err, ErrNotFound)
	})

	renamed, err := svc.Rename(ctx, owner.ID, su.ID, "Marta")
	require.NoError(t, err)
	require.Equal(t, "Marta", renamed.Name)

	t.Run("delete detaches licenses", func(t *testing.T) {
		lic := domain.License{ID: idx.New(), Key: "555666777", Status: domain.GrantActive, DurationDays: 30}
		require.NoError(t, st.Licenses().CreateLicense(ctx, lic))
		require.NoError(t, st.Licenses().ConsumeLicense(ctx, lic.ID, su.ID, time.Now().UTC()))

		require.NoError(t, svc.Delete(ctx, owner.ID, su.ID))

		_, err := st.SubUsers().GetSubUserByID(ctx, su.ID)
		require.Error(t, err)

		kept, err := st.Licenses().GetLicenseByKey(ctx, "555666777")
		require.NoError(t, err)
		require.Equal(t, domain.GrantUsed, kept.Status)
		require.True(t, kept.SubUserID.IsZero())
	})
}

func TestMintGrants(t *testing.T) {
	ctx := context.Background()
	svc := &GrantService{
		Store: newTestStore(t),
		Codes: codes.New([]byte("test-secret")),
	}

	invs, err := svc.MintInvitations(ctx, 3, 0)
	require.NoError(t, err)
	require.Len(t, invs, 3)

	seen := map[string]bool{}
	for _, inv := range invs {
		require.Regexp(t, `^[0-9A-Z]{8}$`, inv.Code)
		require.Equal(t, domain.GrantActive, inv.Status)
		require.Equal(t, DefaultGrantDurationDays, inv.DurationDays)
		require.False(t, seen[inv.Code])
		seen[inv.Code] = true
	}

	lics, err := svc.MintLicenses(ctx, 2, 90)
	require.NoError(t, err)
	require.Len(t, lics, 2)
	for _, lic := range lics {
		require.Regexp(t, `^[0-9A-HJKMNP-Z]{9}$`, lic.Key)
		require.Equal(t, 90, lic.DurationDays)
	}

	t.Run("listings include mints", func(t *testing.T) {
		gotInvs, err := svc.ListInvitations(ctx)
		require.NoError(t, err)
		require.Len(t, gotInvs, 3)

		gotLics, err := svc.ListLicenses(ctx)
		require.NoError(t, err)
		require.Len(t, gotLics, 2)
	})

	t.Run("oversized mint rejected", func(t *testing.T) {
		_, err := svc.MintInvitations(ctx, MaxMintCount+1, 0)
		require.ErrorIs(t, err, ErrInvalidRequest)
	})
}
