package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashPassword_Format(t *testing.T) {
	h, err := HashPassword("p")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(h, "$argon2id$v=19$m=65536,t=1,p=4$"), "unexpected PHC prefix: %s", h)
}

func TestVerifyPassword_Match(t *testing.T) {
	h, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.True(t, VerifyPassword("correct horse battery staple", h))
}

func TestVerifyPassword_Mismatch(t *testing.T) {
	h, err := HashPassword("p")
	require.NoError(t, err)
	require.False(t, VerifyPassword("q", h))
}

func TestVerifyPassword_SaltsDiffer(t *testing.T) {
	a, err := HashPassword("p")
	require.NoError(t, err)
	b, err := HashPassword("p")
	require.NoError(t, err)
	require.NotEqual(t, a, b, "two hashes of the same password must use distinct salts")
	require.True(t, VerifyPassword("p", a))
	require.True(t, VerifyPassword("p", b))
}

func TestVerifyPassword_Malformed(t *testing.T) {
	cases := []string{
		"",
		"plainhash",
		"$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=1,p=4$!!!$aGFzaA",
		"$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$!!!",
		"$argon2id$v=19$bogus$c2FsdA$aGFzaA",
	}
	for _, c := range cases {
		require.False(t, VerifyPassword("p", c), "hash %q must not verify", c)
	}
}
