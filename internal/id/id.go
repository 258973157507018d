// Package id generates identifiers for saved sprite animation entities and
// imported game configuration records.
package id

import (
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewID returns a v4 UUID encoded as 26 lowercase base32 characters.
func NewID() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return strings.ToLower(encoding.EncodeToString(u[:])), nil
}

// Must is NewID for callers that cannot handle an entropy failure.
func Must() string {
	v, err := NewID()
	if err != nil {
		panic(err)
	}
	return v
}
