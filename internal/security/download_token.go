package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidDownloadToken is returned for malformed, expired or mismatched tokens.
var ErrInvalidDownloadToken = errors.New("security: invalid download token")

const downloadTokenAudience = "challenge-download"

// DownloadClaims binds a download link to a user and challenge.
type DownloadClaims struct {
	UserID      uint64 `json:"uid"`
	ChallengeID uint64 `json:"cid"`
	jwt.RegisteredClaims
}

// IssueDownloadToken signs a short-lived download token.
func IssueDownloadToken(secret string, userID, challengeID uint64, now time.Time, ttl time.Duration) (string, time.Time, error) {
	if secret == "" {
		return "", time.Time{}, errors.New("security: empty download secret")
	}
	expiresAt := now.Add(ttl).UTC()
	claims := DownloadClaims{
		UserID:      userID,
		ChallengeID: challengeID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			Audience:  jwt.ClaimStrings{downloadTokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("security: sign download token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseDownloadToken validates a token for the given challenge at time now.
func ParseDownloadToken(secret, raw string, challengeID uint64, now time.Time) (*DownloadClaims, error) {
	if secret == "" || raw == "" {
		return nil, ErrInvalidDownloadToken
	}
	claims := &DownloadClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(downloadTokenAudience),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDownloadToken, err)
	}
	if claims.ChallengeID != challengeID || claims.UserID == 0 {
		return nil, ErrInvalidDownloadToken
	}
	return claims, nil
}
