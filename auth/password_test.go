package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashPassword_Verifies_And_Salts(t *testing.T) {
	req := require.New(t)

	hash, err := HashPassword("Str0ng&Secret12")
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	ok, err := ComparePassword("Str0ng&Secret12", hash)
	req.NoError(err)
	req.True(ok)

	ok, err = ComparePassword("Wr0ng&Secret123", hash)
	req.NoError(err)
	req.False(ok)

	// Each hash carries a fresh salt
	second, err := HashPassword("Str0ng&Secret12")
	req.NoError(err)
	req.NotEqual(hash, second)
}

func TestComparePassword_Malformed_Hash(t *testing.T) {
	req := require.New(t)

	_, err := ComparePassword("anything", "not-an-argon2-hash")
	req.Error(err)
}

func TestValidateRegister(t *testing.T) {
	req := require.New(t)

	valid := RegisterRequest{
		Name:     "Alice Liddell",
		Email:    "alice@example.com",
		Username: "alice42",
		Mobile:   "+33612345678",
		Password: "Str0ng&Secret12",
	}
	req.NoError(ValidateRegister(valid))

	bad := valid
	bad.Email = "not-an-email"
	req.Error(ValidateRegister(bad))

	bad = valid
	bad.Mobile = "0612345678"
	req.Error(ValidateRegister(bad))

	bad = valid
	bad.Username = "a"
	req.Error(ValidateRegister(bad))

	bad = valid
	bad.Password = "NoSpecials12345"
	req.Error(ValidateRegister(bad))
}

func TestValidateUsername(t *testing.T) {
	req := require.New(t)

	req.NoError(ValidateUsername("alice42"))
	req.Error(ValidateUsername("ab"))
	req.Error(ValidateUsername("has spaces"))
	req.Error(ValidateUsername("dash-ed"))
}
