package session

import (
	"errors"
	"testing"
)

func TestValidateRegistration(t *testing.T) {
	tests := []struct {
		name      string
		email     string
		password  string
		confirm   string
		fullName  string
		wantField string
	}{
		{"ok", "a@b.c", "Passw0rd", "Passw0rd", "Ann", ""},
		{"missing name", "a@b.c", "Passw0rd", "Passw0rd", " ", "full_name"},
		{"bad email", "ab.c", "Passw0rd", "Passw0rd", "Ann", "email"},
		{"short password", "a@b.c", "Pa0", "Pa0", "Ann", "password"},
		{"no digit", "a@b.c", "Password", "Password", "Ann", "password"},
		{"no upper", "a@b.c", "passw0rd", "passw0rd", "Ann", "password"},
		{"mismatch", "a@b.c", "Passw0rd", "Passw0rD", "Ann", "confirm_password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegistration(tt.email, tt.password, tt.confirm, tt.fullName)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("ValidateRegistration returned %v, want nil", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.wantField {
				t.Fatalf("ValidateRegistration = %v, want field %s", err, tt.wantField)
			}
		})
	}
}

func TestValidateCredentials(t *testing.T) {
	if err := ValidateCredentials("a@b.c", "x"); err != nil {
		t.Fatalf("ValidateCredentials returned %v", err)
	}
	if err := ValidateCredentials("", "x"); err == nil {
		t.Fatalf("empty email accepted")
	}
	if err := ValidateCredentials("a@b.c", ""); err == nil {
		t.Fatalf("empty password accepted")
	}
	if err := ValidateCredentials("a@", "x"); err == nil {
		t.Fatalf("email without domain accepted")
	}
}

func TestTokenExpiry(t *testing.T) {
	if !tokenExpiry("opaque-token").IsZero() {
		t.Fatalf("opaque token should have no expiry")
	}
	if !tokenExpiry("a.%%%.c").IsZero() {
		t.Fatalf("undecodable payload should have no expiry")
	}
}
