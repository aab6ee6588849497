package idgen

import (
	"strings"

	"github.com/google/uuid"
)

// NewFunc returns a new globally unique identifier as string. It is a
// variable so tests can stub it.
var NewFunc = func() string { return uuid.New().String() }

// New returns a new identifier.
func New() string { return NewFunc() }

// AccessCodeFunc produces opaque inspection access codes.
var AccessCodeFunc = func() string {
	id := uuid.New()
	return strings.ReplaceAll(id.String(), "-", "")[:16]
}

// AccessCode returns a new opaque access code.
func AccessCode() string { return AccessCodeFunc() }
