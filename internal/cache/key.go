package cache

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidKey is returned when a cache key cannot be derived from a request.
var ErrInvalidKey = errors.New("invalid cache key")

// KeyScope selects which request attributes identify a cacheable response.
type KeyScope string

const (
	// ScopePath keys on the URL path only. Requests that differ only in
	// method or query string share an entry.
	ScopePath KeyScope = "path"
	// ScopePathQuery keys on path and raw query.
	ScopePathQuery KeyScope = "path_query"
	// ScopeMethodPathQuery keys on method, path and raw query.
	ScopeMethodPathQuery KeyScope = "method_path_query"
)

// ParseKeyScope converts a config value into a KeyScope.
func ParseKeyScope(s string) (KeyScope, error) {
	switch KeyScope(strings.ToLower(s)) {
	case ScopePath, "":
		return ScopePath, nil
	case ScopePathQuery:
		return ScopePathQuery, nil
	case ScopeMethodPathQuery:
		return ScopeMethodPathQuery, nil
	}
	return "", fmt.Errorf("unknown cache key scope %q", s)
}

// Key derives the cache key for a request under the given scope.
//
// Examples:
//
//	ScopePath:            /a
//	ScopePathQuery:       /a?x=1
//	ScopeMethodPathQuery: GET /a?x=1
func (s KeyScope) Key(method, path, rawQuery string) (string, error) {
	if path == "" || path[0] != '/' {
		return "", fmt.Errorf("%w: path %q is not absolute", ErrInvalidKey, path)
	}

	switch s {
	case ScopePath, "":
		return path, nil
	case ScopePathQuery:
		return withQuery(path, rawQuery), nil
	case ScopeMethodPathQuery:
		if method == "" {
			return "", fmt.Errorf("%w: empty method", ErrInvalidKey)
		}
		return method + " " + withQuery(path, rawQuery), nil
	}
	return "", fmt.Errorf("%w: unknown scope %q", ErrInvalidKey, string(s))
}

func withQuery(path, rawQuery string) string {
	if rawQuery == "" {
		return path
	}
	return path + "?" + rawQuery
}
