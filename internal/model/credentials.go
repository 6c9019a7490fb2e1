package model

import (
	"fmt"
	"strings"
)

// DefaultTestCode is the verification code used by test accounts when none is configured.
const DefaultTestCode = "424242"

// Credentials are the test account credentials used by the sign-in flow.
type Credentials struct {
	Email string
	Code  string
}

// NewCredentials returns trimmed credentials with the code defaulted.
func NewCredentials(email, code string) Credentials {
	code = strings.TrimSpace(code)
	if code == "" {
		code = DefaultTestCode
	}
	return Credentials{
		Email: strings.TrimSpace(email),
		Code:  code,
	}
}

// Validate checks the credentials can be used to sign in.
func (c Credentials) Validate() error {
	if c.Email == "" {
		return fmt.Errorf("missing test email, set SBXSMOKE_TEST_EMAIL before running: %w", ErrNotValid)
	}
	if c.Code == "" {
		return fmt.Errorf("missing test code: %w", ErrNotValid)
	}
	return nil
}
