// internal/utils/validator_test.go
package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	valid := []string{
		"user@example.com",
		"first.last@example.co.uk",
		"user+tag@example.io",
	}
	for _, email := range valid {
		assert.True(t, IsValidEmail(email), email)
	}

	invalid := []string{
		"",
		"plainaddress",
		"@example.com",
		"user@",
		"user@example",
		"user name@example.com",
		"user@exa mple.com",
	}
	for _, email := range invalid {
		assert.False(t, IsValidEmail(email), email)
	}
}

func TestValidateStructReportsFieldErrors(t *testing.T) {
	type checkout struct {
		Email string `validate:"required,order_email"`
		Name  string `validate:"required,min=2"`
	}

	err := ValidateStruct(&checkout{Email: "not-an-email", Name: "x"})
	assert.Error(t, err)

	errs := GetValidationErrors(err)
	assert.Len(t, errs, 2)

	fields := map[string]string{}
	for _, e := range errs {
		fields[e.Field] = e.Message
	}
	assert.Equal(t, "Invalid email format", fields["email"])
	assert.Contains(t, fields["name"], "at least")
}

func TestValidateStructPasses(t *testing.T) {
	type checkout struct {
		Email string `validate:"required,order_email"`
	}
	assert.NoError(t, ValidateStruct(&checkout{Email: "user@example.com"}))
}
