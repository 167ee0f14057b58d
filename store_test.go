package session_test

import (
	"context"
	"testing"
	"time"

	session "github.com/goliatone/go-session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTokenStore(t *testing.T) {
	ctx := context.Background()

	t.Run("empty store loads no session", func(t *testing.T) {
		store := session.NewMemoryTokenStore()
		creds, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, creds)
	})

	t.Run("save then load round trips", func(t *testing.T) {
		store := session.NewMemoryTokenStore()
		saved := validCredentials(t, time.Hour)

		require.NoError(t, store.Save(ctx, saved))

		loaded, err := store.Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, saved.AccessToken, loaded.AccessToken)
		assert.Equal(t, saved.RefreshToken, loaded.RefreshToken)
		assert.Equal(t, saved.IDToken, loaded.IDToken)
		assert.True(t, saved.ExpiresAt.Equal(loaded.ExpiresAt))
	})

	t.Run("load returns a copy, not the stored value", func(t *testing.T) {
		store := session.NewMemoryTokenStore()
		require.NoError(t, store.Save(ctx, validCredentials(t, time.Hour)))

		first, err := store.Load(ctx)
		require.NoError(t, err)
		first.AccessToken = "mutated"

		second, err := store.Load(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, "mutated", second.AccessToken)
	})

	t.Run("partial credential set resolves to no session", func(t *testing.T) {
		store := session.NewMemoryTokenStore()
		require.NoError(t, store.Save(ctx, &session.CredentialSet{
			AccessToken: "a",
			IDToken:     "i",
			ExpiresAt:   time.Now().Add(time.Hour),
		}))

		creds, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, creds)
	})

	t.Run("clear removes the session", func(t *testing.T) {
		store := session.NewMemoryTokenStore()
		require.NoError(t, store.Save(ctx, validCredentials(t, time.Hour)))
		require.NoError(t, store.Clear(ctx))

		creds, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, creds)
	})
}
