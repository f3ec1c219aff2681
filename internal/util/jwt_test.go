package util

import (
	"career_coach_backend/internal/model"
	"testing"
	"time"
)

func TestJWTRoundTrip(t *testing.T) {
	user := &model.User{Email: "a@b.com", Role: model.RoleUser}
	user.ID = 42

	token, err := GenerateJWT(user, "secret-for-tests", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	claims, err := ParseJWT(token, "secret-for-tests")
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if claims.UserID != 42 || claims.Email != "a@b.com" || claims.Role != model.RoleUser {
		t.Fatalf("claims do not round-trip: %+v", claims)
	}
}

func TestParseJWTWrongSecret(t *testing.T) {
	user := &model.User{Email: "a@b.com"}
	user.ID = 1

	token, err := GenerateJWT(user, "right-secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	if _, err := ParseJWT(token, "wrong-secret"); err == nil {
		t.Fatal("token signed with another secret must not parse")
	}
}

func TestParseJWTExpired(t *testing.T) {
	user := &model.User{}
	user.ID = 1

	token, err := GenerateJWT(user, "secret", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	if _, err := ParseJWT(token, "secret"); err == nil {
		t.Fatal("expired token must not parse")
	}
}
