package account

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/redmonkez12/account-service/internal/apperr"
)

func TestValidateUsername(t *testing.T) {
	valid := []string{
		strings.Repeat("a", 8),
		strings.Repeat("b", 30),
		"longusername",
		"User2024Name",
	}
	for _, u := range valid {
		assert.NoError(t, ValidateUsername(u), u)
	}

	invalid := []string{
		"",
		strings.Repeat("a", 7),
		strings.Repeat("a", 31),
		"long username",
		"longusername!",
		"long_username",
		"-longusername",
		"lóngusername",
	}
	for _, u := range invalid {
		err := ValidateUsername(u)
		assert.ErrorIs(t, err, ErrInvalidUsername, u)
		assert.ErrorIs(t, err, apperr.ErrValidation, u)
	}
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleStandard.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("root").Valid())
	assert.False(t, Role("").Valid())
}

func TestAccount_Details(t *testing.T) {
	a := &Account{Username: "longusername", Email: "a@x.com", PasswordHash: "h", Disabled: true, Role: RoleAdmin}

	assert.Equal(t, Details{Username: "longusername", Email: "a@x.com", Disabled: true, Role: RoleAdmin}, a.Details())
}

func TestUpdate_IsEmpty(t *testing.T) {
	assert.True(t, Update{}.IsEmpty())
	disabled := true
	assert.False(t, Update{Disabled: &disabled}.IsEmpty())
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@x.com", NormalizeEmail("  A@X.com "))
}
