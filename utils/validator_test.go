package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"teamhub/apperr"
)

type signupForm struct {
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required,min=8"`
	Password2 string  `json:"password2" validate:"required,eqfield=Password"`
	Name      *string `json:"name" validate:"omitempty,min=2,max=5"`
	Role      string  `json:"role" validate:"omitempty,oneof=admin member"`
}

func TestValidateStructAggregatesByJSONField(t *testing.T) {
	short := "x"
	err := ValidateStruct(signupForm{
		Email:     "nope",
		Password:  "short",
		Password2: "different",
		Name:      &short,
		Role:      "owner",
	})
	require.Error(t, err)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindValidation, appErr.Kind)
	assert.Equal(t, []string{"Enter a valid email address."}, appErr.Fields["email"])
	assert.Contains(t, appErr.Fields["password"], "Ensure this field has at least 8 characters.")
	assert.Contains(t, appErr.Fields["password"], "Password fields didn't match.")
	assert.Equal(t, []string{"Ensure this field has at least 2 characters."}, appErr.Fields["name"])
	assert.Equal(t, []string{"Must be one of: admin, member."}, appErr.Fields["role"])
}

func TestValidateStructPass(t *testing.T) {
	assert.NoError(t, ValidateStruct(signupForm{
		Email:     "a@example.com",
		Password:  "password1",
		Password2: "password1",
	}))
}
