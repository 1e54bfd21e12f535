package security

import (
	"errors"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, "s3cret!") {
		t.Fatalf("expected password to match")
	}
	if CheckPassword(hash, "S3cret!") {
		t.Fatalf("expected case-different password to fail")
	}
	if _, errEmpty := HashPassword(""); errEmpty == nil {
		t.Fatalf("expected error for empty password")
	}
}

func TestDownloadTokenRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	token, expiresAt, err := IssueDownloadToken("secret", 7, 42, now, 5*time.Minute)
	if err != nil {
		t.Fatalf("IssueDownloadToken: %v", err)
	}
	if !expiresAt.Equal(now.Add(5 * time.Minute)) {
		t.Fatalf("unexpected expiry %s", expiresAt)
	}

	claims, err := ParseDownloadToken("secret", token, 42, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("ParseDownloadToken: %v", err)
	}
	if claims.UserID != 7 {
		t.Fatalf("expected user 7, got %d", claims.UserID)
	}

	if _, errOther := ParseDownloadToken("secret", token, 43, now); !errors.Is(errOther, ErrInvalidDownloadToken) {
		t.Fatalf("expected mismatch error, got %v", errOther)
	}
	if _, errExpired := ParseDownloadToken("secret", token, 42, now.Add(10*time.Minute)); !errors.Is(errExpired, ErrInvalidDownloadToken) {
		t.Fatalf("expected expiry error, got %v", errExpired)
	}
	if _, errKey := ParseDownloadToken("other", token, 42, now); !errors.Is(errKey, ErrInvalidDownloadToken) {
		t.Fatalf("expected signature error, got %v", errKey)
	}
}

func TestValidateTOTP(t *testing.T) {
	key, err := GenerateTOTP("CTF", "admin")
	if err != nil {
		t.Fatalf("GenerateTOTP: %v", err)
	}
	now := time.Now().UTC()
	code, err := totp.GenerateCode(key.Secret, now)
	if err != nil {
		t.Fatalf("GenerateCode: %v", err)
	}
	if !ValidateTOTP(key.Secret, code, now) {
		t.Fatalf("expected code to validate")
	}
	if ValidateTOTP(key.Secret, "000000x", now) {
		t.Fatalf("expected malformed code to fail")
	}
	if ValidateTOTP("", code, now) {
		t.Fatalf("expected empty secret to fail")
	}
}
