package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/asavelyev/notesync/models"
	"github.com/golang-jwt/jwt/v5"
)

// GenerateJWTToken creates a signed HMAC-SHA256 JWT for a device.
//
// The token carries the standard claims:
//   - Issuer    (iss): the service that issued the token
//   - Subject   (sub): the device identifier
//   - IssuedAt  (iat): now
//   - ExpiresAt (exp): now + tokenDuration
//
// All parameters are required; returns an error if any are empty or zero.
func GenerateJWTToken(issuer, deviceID string, tokenDuration time.Duration, signKey string) (models.Token, error) {
	if issuer == "" || deviceID == "" || tokenDuration == 0 || signKey == "" {
		return models.Token{}, errors.New("invalid params for generating JWT token")
	}

	now := time.Now()
	claims := &jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   deviceID,
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenDuration)),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(signKey))
	if err != nil {
		return models.Token{}, fmt.Errorf("error signing JWT token: %w", err)
	}

	return models.Token{Token: token, SignedString: tokenString, DeviceID: deviceID}, nil
}

// ValidateAndParseJWTToken verifies the signature, issuer and expiry of the
// given compact token and extracts the device identifier from its subject
// claim.
func ValidateAndParseJWTToken(tokenString, tokenSignKey, tokenIssuer string) (models.Token, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.Token{}, func(token *jwt.Token) (any, error) {
		return []byte(tokenSignKey), nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return models.Token{}, fmt.Errorf("error validating and parsing token: %w", err)
	}

	deviceID, err := token.Claims.GetSubject()
	if err != nil {
		return models.Token{}, fmt.Errorf("error getting subject from token: %w", err)
	}
	if deviceID == "" {
		return models.Token{}, errors.New("empty subject claim")
	}

	return models.Token{Token: token, DeviceID: deviceID}, nil
}

// ParseBearerToken extracts the token string from an Authorization header
// value of the form "Bearer <token>".
func ParseBearerToken(authorizationHeader string) (string, error) {
	parts := strings.Split(strings.TrimSpace(authorizationHeader), " ")
	if len(parts) != 2 || parts[1] == "" {
		return "", errors.New("invalid authorization header")
	}
	return parts[1], nil
}

// TokenExpired reports whether the compact token's exp claim has passed.
// The signature is not verified; this is the client-side pre-flight check
// that turns a doomed sync attempt into an immediate authentication error.
func TokenExpired(tokenString string) bool {
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return true
	}

	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return exp.Before(time.Now())
}
