package verification

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verification and reset tokens are signed with a key separate from the
// access-token secret, so neither kind can stand in for the other two.
const (
	VerificationTokenTTL = 48 * time.Hour
	ResetTokenTTL        = time.Hour

	purposeVerify = "verify"
	purposeReset  = "reset"
)

var ErrWrongPurpose = errors.New("token issued for a different purpose")

// NewVerificationToken signs a registration-verification token bound to the
// user's email address.
func NewVerificationToken(email string, signingKey []byte) (string, error) {
	return newPurposeToken(email, purposeVerify, VerificationTokenTTL, signingKey)
}

// NewResetToken signs a password-reset token bound to the user's email
// address.
func NewResetToken(email string, signingKey []byte) (string, error) {
	return newPurposeToken(email, purposeReset, ResetTokenTTL, signingKey)
}

func newPurposeToken(email, purpose string, ttl time.Duration, signingKey []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":     email,
		"purpose": purpose,
		"exp":     time.Now().Add(ttl).Unix(),
	})
	return token.SignedString(signingKey)
}

func parsePurposeToken(tokenString, purpose string, signingKey []byte) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return signingKey, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token claims")
	}
	if got, _ := claims["purpose"].(string); got != purpose {
		return "", ErrWrongPurpose
	}
	email, ok := claims["sub"].(string)
	if !ok || email == "" {
		return "", errors.New("missing email in token")
	}
	return email, nil
}

// ParseVerificationToken returns the email a verification token was issued for.
func ParseVerificationToken(tokenString string, signingKey []byte) (string, error) {
	return parsePurposeToken(tokenString, purposeVerify, signingKey)
}

// ParseResetToken returns the email a password-reset token was issued for.
func ParseResetToken(tokenString string, signingKey []byte) (string, error) {
	return parsePurposeToken(tokenString, purposeReset, signingKey)
}
