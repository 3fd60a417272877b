package model

import (
	"fmt"
	"strings"
)

// ResultURIPrefix is the resource URI prefix under which search results are published.
const ResultURIPrefix = "resource://search_results/"

// ResultURI returns the retrieval handle for a request ID.
func ResultURI(requestID string) string {
	return ResultURIPrefix + requestID
}

// ParseResultURI extracts the request ID from a result resource URI.
func ParseResultURI(uri string) (string, error) {
	id, ok := strings.CutPrefix(uri, ResultURIPrefix)
	if !ok {
		return "", fmt.Errorf("unsupported resource uri %q", uri)
	}
	if !ValidRequestID(id) {
		return "", fmt.Errorf("invalid request id in resource uri %q", uri)
	}
	return id, nil
}
