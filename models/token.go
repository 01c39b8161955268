package models

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Token wraps a JWT bearer token used to authenticate a device against the
// remote object store.
//
// It embeds [jwt.Token] for low-level operations and [jwt.RegisteredClaims]
// for standard claim access. SignedString holds the compact serialized form
// ready for the Authorization header; DeviceID caches the parsed "sub" claim.
type Token struct {
	*jwt.Token `json:"-"`
	jwt.RegisteredClaims

	// SignedString is the compact JWS representation of the token.
	SignedString string `json:"-"`

	// DeviceID is the device identifier extracted from the "sub" claim.
	DeviceID string `json:"-"`
}

// GetDeviceID extracts and caches the device identifier from the token's
// "sub" claim. Returns an error if the claim is missing or empty.
func (t *Token) GetDeviceID() (string, error) {
	sub, err := t.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", errors.New("empty subject claim")
	}
	t.DeviceID = sub
	return sub, nil
}

// String returns the compact JWS serialization. Implements [fmt.Stringer].
func (t *Token) String() string {
	return t.SignedString
}
