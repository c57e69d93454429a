package validation

import (
	"strings"
	"testing"

	"shareit/internal/domain"

	"github.com/stretchr/testify/assert"
)

type account struct {
	Name  string `json:"name" validate:"required,max=10"`
	Email string `json:"email" validate:"required,email"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		in      account
		wantErr string
	}{
		{name: "Valid", in: account{Name: "Ann", Email: "ann@example.com"}},
		{name: "MissingName", in: account{Email: "ann@example.com"}, wantErr: "name is required"},
		{name: "BadEmail", in: account{Name: "Ann", Email: "not-an-email"}, wantErr: "email must be a valid email address"},
		{name: "DisplayNameEmail", in: account{Name: "Bob", Email: "Bob Smith <bob@example.com>"}, wantErr: "email must be a valid email address"},
		{name: "TooLong", in: account{Name: strings.Repeat("a", 11), Email: "ann@example.com"}, wantErr: "name must be at most 10 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStruct_ReportsAllFields(t *testing.T) {
	err := Struct(account{})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "name is required")
	assert.Contains(t, err.Error(), "email is required")
}
