package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-for-jwt-signing-0123456789"

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken("desktop", RoleOperator, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	if token == "" {
		t.Fatal("GenerateToken() returned empty token")
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}

	if claims.Subject != "desktop" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "desktop")
	}

	if claims.Role != RoleOperator {
		t.Errorf("Role = %q, want %q", claims.Role, RoleOperator)
	}

	if claims.ID == "" {
		t.Error("JTI (ID) should not be empty")
	}

	if claims.Issuer != issuer {
		t.Errorf("Issuer = %q, want %q", claims.Issuer, issuer)
	}
}

func TestGenerateToken_UniqueIDs(t *testing.T) {
	a, err := GenerateToken("x", RoleViewer, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	b, err := GenerateToken("x", RoleViewer, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	ca, _ := ParseToken(a, testSecret)
	cb, _ := ParseToken(b, testSecret)
	if ca.ID == cb.ID {
		t.Error("two tokens should have distinct ids")
	}
}

func TestGenerateToken_Validation(t *testing.T) {
	if _, err := GenerateToken("x", RoleViewer, "", time.Hour); !errors.Is(err, ErrMissingSecret) {
		t.Errorf("empty secret: error = %v, want ErrMissingSecret", err)
	}

	if _, err := GenerateToken("x", Role("root"), testSecret, time.Hour); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("bad role: error = %v, want ErrInvalidRole", err)
	}
}

func TestGenerateToken_DefaultTTL(t *testing.T) {
	token, err := GenerateToken("x", RoleViewer, testSecret, 0)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}

	expectedExpiry := time.Now().Add(DefaultTokenTTL)
	diff := claims.ExpiresAt.Time.Sub(expectedExpiry)
	if diff < -time.Minute || diff > time.Minute {
		t.Errorf("default TTL mismatch, got expiry diff of %v", diff)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, err := GenerateToken("x", RoleViewer, "correct-secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	_, err = ParseToken(token, "wrong-secret")
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("ParseToken() error = %v, want ErrTokenInvalid", err)
	}
}

func TestParseToken_Expired(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	claims := CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "x",
			IssuedAt:  jwt.NewNumericDate(past),
			ExpiresAt: jwt.NewNumericDate(past.Add(time.Hour)),
		},
		Role: RoleViewer,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	_, err = ParseToken(token, testSecret)
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("ParseToken() error = %v, want ErrTokenExpired", err)
	}
}

func TestParseToken_RejectsForeignClaims(t *testing.T) {
	tests := []struct {
		name   string
		claims CustomClaims
	}{
		{
			name: "wrong issuer",
			claims: CustomClaims{
				RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else", Subject: "x"},
				Role:             RoleViewer,
			},
		},
		{
			name: "missing subject",
			claims: CustomClaims{
				RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer},
				Role:             RoleViewer,
			},
		},
		{
			name: "unknown role",
			claims: CustomClaims{
				RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer, Subject: "x"},
				Role:             Role("root"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tt.claims).SignedString([]byte(testSecret))
			if err != nil {
				t.Fatalf("signing: %v", err)
			}
			if _, err := ParseToken(token, testSecret); !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("ParseToken() error = %v, want ErrTokenInvalid", err)
			}
		})
	}
}

func TestParseToken_Malformed(t *testing.T) {
	for _, in := range []string{"", "abc.def", "not-a-valid-jwt", strings.Repeat("a.", 3)} {
		if _, err := ParseToken(in, testSecret); err == nil {
			t.Errorf("ParseToken(%q) should fail", in)
		}
	}

	if _, err := ParseToken("x", ""); !errors.Is(err, ErrMissingSecret) {
		t.Errorf("empty secret: error = %v, want ErrMissingSecret", err)
	}
}
