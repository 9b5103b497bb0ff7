package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintVerify_RoundTrip(t *testing.T) {
	tokens, err := NewTokens("secret", time.Hour)
	require.NoError(t, err)

	raw, err := tokens.Mint(Identity{DiscordID: 42, Username: "gozmit", Admin: true})
	require.NoError(t, err)

	id, err := tokens.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id.DiscordID)
	assert.Equal(t, "gozmit", id.Username)
	assert.True(t, id.Admin)
}

func TestVerify_RejectsGarbage(t *testing.T) {
	tokens, err := NewTokens("secret", time.Hour)
	require.NoError(t, err)

	_, err = tokens.Verify("not-a-token")
	assert.Error(t, err)
}

func TestVerify_RejectsWrongSecret(t *testing.T) {
	minter, err := NewTokens("secret-a", time.Hour)
	require.NoError(t, err)
	verifier, err := NewTokens("secret-b", time.Hour)
	require.NoError(t, err)

	raw, err := minter.Mint(Identity{DiscordID: 1, Username: "x"})
	require.NoError(t, err)

	_, err = verifier.Verify(raw)
	assert.Error(t, err)
}

func TestVerify_RejectsExpired(t *testing.T) {
	tokens, err := NewTokens("secret", time.Nanosecond)
	require.NoError(t, err)

	raw, err := tokens.Mint(Identity{DiscordID: 1, Username: "x"})
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	_, err = tokens.Verify(raw)
	assert.Error(t, err)
}

func TestNewTokens_RequiresSecret(t *testing.T) {
	_, err := NewTokens("", time.Hour)
	assert.Error(t, err)
}

func TestCanEdit(t *testing.T) {
	assert.False(t, CanEdit(nil, 1), "anonymous cannot edit")
	assert.True(t, CanEdit(&Identity{DiscordID: 1}, 1), "author can edit own")
	assert.False(t, CanEdit(&Identity{DiscordID: 2}, 1), "others cannot edit")
	assert.True(t, CanEdit(&Identity{DiscordID: 2, Admin: true}, 1), "admin can edit any")
}
