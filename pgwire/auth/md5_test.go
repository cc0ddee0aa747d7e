package auth_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/elefant-sync/elefant/pgwire/auth"
)

func TestEncodeMD5PasswordKnownVector(t *testing.T) {
	salt := [4]byte{0x01, 0x02, 0x03, 0x04}
	got := auth.EncodeMD5Password("postgres", "secret", salt)
	require.Equal(t, "md5bb41a296aab6baccb36ff243a562abff", got)
}

func TestEncodeMD5PasswordVariesWithSalt(t *testing.T) {
	a := auth.EncodeMD5Password("postgres", "secret", [4]byte{0, 0, 0, 0})
	b := auth.EncodeMD5Password("postgres", "secret", [4]byte{1, 0, 0, 0})
	require.NotEqual(t, a, b)
}

func TestEncodeMD5PasswordVariesWithUsername(t *testing.T) {
	salt := [4]byte{9, 9, 9, 9}
	a := auth.EncodeMD5Password("alice", "secret", salt)
	b := auth.EncodeMD5Password("bob", "secret", salt)
	require.NotEqual(t, a, b)
}
