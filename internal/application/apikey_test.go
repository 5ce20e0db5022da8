package application

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastParams = Argon2idParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}

func TestCreateAndVerifyKey(t *testing.T) {
	hash, err := CreateKeyHash("s3cret", fastParams)
	require.NoError(t, err)

	assert.NoError(t, VerifyKey(hash, "s3cret"))
	assert.ErrorIs(t, VerifyKey(hash, "wrong"), ErrInvalidCredentials)
	assert.ErrorIs(t, VerifyKey("$bcrypt$xx", "s3cret"), ErrInvalidKeyHash)
	assert.ErrorIs(t, VerifyKey("$argon2id$v=1$m=1,t=1,p=1$AA$AA", "s3cret"), ErrIncompatibleKeyVersion)
}

func TestKeyRingAuthenticate(t *testing.T) {
	hash, err := CreateKeyHash("s3cret", fastParams)
	require.NoError(t, err)
	outsider, err := CreateKeyHash("other", fastParams)
	require.NoError(t, err)

	ring := NewKeyRing(map[string]string{
		"alice@example.com": hash,
		"eve@elsewhere.org": outsider,
	}, "@example.com")

	principal, err := ring.Authenticate("alice@example.com:s3cret")
	require.NoError(t, err)
	assert.Equal(t, Principal{OwnerID: "alice@example.com", Email: "alice@example.com"}, principal)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"wrong secret", "alice@example.com:nope", ErrInvalidCredentials},
		{"unknown owner", "bob@example.com:s3cret", ErrInvalidCredentials},
		{"missing separator", "alice@example.com", ErrInvalidCredentials},
		{"outside domain", "eve@elsewhere.org:other", ErrDomainNotAllowed},
	}
	for _, tt := range tests {
		_, err := ring.Authenticate(tt.token)
		if !errors.Is(err, tt.want) {
			t.Fatalf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
	}
}
