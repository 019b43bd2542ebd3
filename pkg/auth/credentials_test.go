package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestKeyringStoreRoundTrip(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	require.NoError(t, err)

	creds := &Credentials{Username: "Bot@geo", Password: "botsecret"}
	require.NoError(t, store.Save(creds))
	assert.True(t, store.Exists("Bot@geo"))

	got, err := store.Retrieve("Bot@geo")
	require.NoError(t, err)
	assert.Equal(t, creds, got)

	require.NoError(t, store.Delete("Bot@geo"))
	assert.False(t, store.Exists("Bot@geo"))

	_, err = store.Retrieve("Bot@geo")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestKeyringStoreRejectsInvalid(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	require.NoError(t, err)

	assert.ErrorIs(t, store.Save(nil), ErrInvalidCredentials)
	assert.ErrorIs(t, store.Save(&Credentials{Username: "x"}), ErrInvalidCredentials)
	assert.ErrorIs(t, store.Delete(""), ErrInvalidCredentials)

	_, err = store.Retrieve("")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestEnvironmentStore(t *testing.T) {
	store := NewEnvironmentStore()

	t.Run("unset", func(t *testing.T) {
		t.Setenv("COMMONS_USER", "")
		t.Setenv("COMMONS_PASS", "")

		assert.False(t, store.Exists(""))
		_, err := store.Retrieve("")
		assert.ErrorIs(t, err, ErrCredentialsNotFound)
	})

	t.Run("set", func(t *testing.T) {
		t.Setenv("COMMONS_USER", "EnvBot@geo")
		t.Setenv("COMMONS_PASS", "envsecret")

		assert.True(t, store.Exists(""))

		creds, err := store.Retrieve("")
		require.NoError(t, err)
		assert.Equal(t, "EnvBot@geo", creds.Username)
		assert.Equal(t, "envsecret", creds.Password)

		// A different username does not match the environment account
		_, err = store.Retrieve("OtherBot")
		assert.ErrorIs(t, err, ErrCredentialsNotFound)
	})

	t.Run("read only", func(t *testing.T) {
		assert.ErrorIs(t, store.Save(&Credentials{Username: "x", Password: "y"}), ErrStoreUnavailable)
		assert.ErrorIs(t, store.Delete("x"), ErrStoreUnavailable)
	})
}

func TestResolverPrecedence(t *testing.T) {
	keyring.MockInit()

	keyringStore, err := NewKeyringStore()
	require.NoError(t, err)
	require.NoError(t, keyringStore.Save(&Credentials{Username: "Bot@geo", Password: "from-keyring"}))

	t.Run("environment wins", func(t *testing.T) {
		t.Setenv("COMMONS_USER", "Bot@geo")
		t.Setenv("COMMONS_PASS", "from-env")

		resolver := NewResolverWith(NewEnvironmentStore(), keyringStore)
		creds, err := resolver.Resolve("Bot@geo")
		require.NoError(t, err)
		assert.Equal(t, "from-env", creds.Password)
	})

	t.Run("falls back to keyring", func(t *testing.T) {
		t.Setenv("COMMONS_USER", "")
		t.Setenv("COMMONS_PASS", "")

		resolver := NewResolverWith(NewEnvironmentStore(), keyringStore)
		creds, err := resolver.Resolve("Bot@geo")
		require.NoError(t, err)
		assert.Equal(t, "from-keyring", creds.Password)
	})

	t.Run("nothing found", func(t *testing.T) {
		t.Setenv("COMMONS_USER", "")
		t.Setenv("COMMONS_PASS", "")

		resolver := NewResolverWith(NewEnvironmentStore())
		_, err := resolver.Resolve("Nobody")
		assert.Error(t, err)
	})
}

func TestMaskPassword(t *testing.T) {
	assert.Equal(t, "********", MaskPassword("short"))
	assert.Equal(t, "lo...rd", MaskPassword("longpassword"))
}
