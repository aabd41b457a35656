package utils

import (
	"errors"
	"testing"

	"github.com/fileapp/backend/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func testUser() *models.User {
	return &models.User{
		BaseModel: models.BaseModel{ID: uuid.New()},
		Email:     "jwt@test.com",
	}
}

func TestTokenRoundTrip(t *testing.T) {
	ConfigureJWT("jwt-test-secret", 1)

	user := testUser()
	token, err := GenerateToken(user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("unexpected error validating token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("expected user id %s, got %s", user.ID, claims.UserID)
	}
	if claims.Email != user.Email {
		t.Fatalf("expected email %s, got %s", user.Email, claims.Email)
	}
}

func TestExpiredTokenIsDetected(t *testing.T) {
	ConfigureJWT("jwt-test-secret", 1)

	token, err := GenerateExpiredToken(testUser())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := ValidateToken(token); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected jwt.ErrTokenExpired, got %v", err)
	}
}

func TestTamperedTokenIsRejected(t *testing.T) {
	ConfigureJWT("jwt-test-secret", 1)

	token, err := GenerateToken(testUser())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := ValidateToken(token + "x"); err == nil {
		t.Fatal("expected tampered token to be rejected")
	}
	if _, err := ValidateToken("not.a.token"); err == nil {
		t.Fatal("expected malformed token to be rejected")
	}
}
