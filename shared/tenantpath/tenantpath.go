// Package tenantpath maps between tenant slugs plus tenant-relative
// paths and the global routing paths the gateway dispatches on.
// All functions are total: malformed input degrades to the "not a
// tenant path" or root-path case instead of failing, so routing
// middleware never has an error branch here.
package tenantpath

import "strings"

// Segment is the fixed path component that marks tenant-scoped routes.
// It is shared between this resolver and the gateway router.
const Segment = "org"

// DefaultAuthPath is the tenant-relative path used when no explicit
// auth sub-path is requested.
const DefaultAuthPath = "/auth/login"

// Match holds the result of parsing a global path.
type Match struct {
	// Slug is the canonical tenant slug embedded in the path.
	Slug string
	// Path is the tenant-relative path, always starting with "/",
	// with any query/fragment suffix re-appended verbatim.
	Path string
}

// CanonicalizeSlug normalizes a user-supplied tenant identifier:
// surrounding whitespace is trimmed and the result is lowercased.
// Idempotent; performs no character-set validation.
func CanonicalizeSlug(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// splitSuffix splits a value into its pathname portion and the
// trailing query/fragment suffix (first '?' or '#' and everything
// after it, preserved verbatim).
func splitSuffix(value string) (pathname, suffix string) {
	if i := strings.IndexAny(value, "?#"); i >= 0 {
		return value[:i], value[i:]
	}
	return value, ""
}

// normalizePath trims a raw sub-path and normalizes its pathname to a
// single leading slash. Empty and "/" pathnames collapse to "".
func normalizePath(value string) (pathname, suffix string) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" || trimmed == "/" {
		return "", ""
	}
	pathname, suffix = splitSuffix(trimmed)
	if pathname == "" || pathname == "/" {
		return "", suffix
	}
	if !strings.HasPrefix(pathname, "/") {
		pathname = "/" + pathname
	}
	return pathname, suffix
}

func ensureLeadingSlash(value string) string {
	if strings.HasPrefix(value, "/") {
		return value
	}
	return "/" + value
}

// Path builds the global routing path for a tenant slug and an
// optional tenant-relative sub-path. An empty or "/" sub-path yields
// the bare tenant base with no trailing slash.
func Path(slug, path string) string {
	base := "/" + Segment + "/" + CanonicalizeSlug(slug)
	pathname, suffix := normalizePath(path)
	if pathname != "" {
		base += pathname
	}
	return base + suffix
}

// AuthPath builds a tenant path under the /auth namespace. An empty
// sub-path resolves to the tenant login page; sub-paths already under
// /auth pass through unchanged; anything else is prefixed with /auth.
func AuthPath(slug, path string) string {
	pathname, suffix := normalizePath(path)
	switch {
	case pathname == "":
		pathname = DefaultAuthPath
	case strings.HasPrefix(pathname, "/auth"):
	default:
		pathname = "/auth" + pathname
	}
	return Path(slug, pathname+suffix)
}

// AbsoluteURL joins a base URL and a tenant path, dropping a single
// trailing slash on the base so the result has exactly one separator.
func AbsoluteURL(baseURL, slug, path string) string {
	return strings.TrimSuffix(baseURL, "/") + Path(slug, path)
}

// MatchPath parses a global path. It reports no match when the first
// segment is not the tenant segment token or no slug segment follows.
func MatchPath(pathname string) (Match, bool) {
	if pathname == "" {
		pathname = "/"
	}
	sanitized := ensureLeadingSlash(pathname)
	normalized, suffix := normalizePath(sanitized)
	if normalized == "" {
		normalized = "/"
	}

	segments := splitSegments(normalized)
	if len(segments) < 2 || segments[0] != Segment {
		return Match{}, false
	}

	remainder := "/"
	if len(segments) > 2 {
		remainder = "/" + strings.Join(segments[2:], "/")
	}
	return Match{
		Slug: CanonicalizeSlug(segments[1]),
		Path: remainder + suffix,
	}, true
}

// StripPrefix removes the tenant prefix from a global path, returning
// the tenant-relative path. Non-tenant paths are returned with a
// leading slash guaranteed.
func StripPrefix(pathname string) string {
	if match, ok := MatchPath(pathname); ok {
		return match.Path
	}
	return ensureLeadingSlash(pathname)
}

// IsTenantPath reports whether the path carries a tenant prefix.
func IsTenantPath(pathname string) bool {
	_, ok := MatchPath(pathname)
	return ok
}

// splitSegments splits a path on "/" and drops empty segments.
func splitSegments(path string) []string {
	parts := strings.Split(path, "/")
	segments := parts[:0]
	for _, part := range parts {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}
