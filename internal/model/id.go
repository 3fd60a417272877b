package model

import (
	"regexp"

	"github.com/oklog/ulid/v2"
)

// maxRequestIDLen bounds request identifiers so they stay usable as file names.
const maxRequestIDLen = 128

var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// NewID generates a new ULID string for use as a request identifier.
func NewID() string {
	return ulid.Make().String()
}

// ValidRequestID reports whether id is safe to use as a storage key and file name.
func ValidRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen || id == "." || id == ".." {
		return false
	}
	return requestIDPattern.MatchString(id)
}
