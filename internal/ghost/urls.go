package ghost

import "strings"

// MakeAbsoluteURL joins relativePath onto baseURL with exactly one slash
// between them. Paths that are already absolute or protocol-relative are
// returned unchanged.
func MakeAbsoluteURL(baseURL, relativePath string) string {
	if strings.HasPrefix(relativePath, "http://") ||
		strings.HasPrefix(relativePath, "https://") ||
		strings.HasPrefix(relativePath, "//") {
		return relativePath
	}

	baseSlash := strings.HasSuffix(baseURL, "/")
	relSlash := strings.HasPrefix(relativePath, "/")

	switch {
	case baseSlash && relSlash:
		return baseURL + relativePath[1:]
	case baseSlash != relSlash:
		return baseURL + relativePath
	default:
		return baseURL + "/" + relativePath
	}
}

// MakeAssetURL resolves an image or asset reference found in post content
// to a fetchable URL. Protocol-relative results take the scheme of
// baseURL, defaulting to http.
func MakeAssetURL(baseURL, ref string) string {
	abs := MakeAbsoluteURL(baseURL, ref)

	scheme := "http"
	if strings.HasPrefix(baseURL, "https") {
		scheme = "https"
	}

	return ResolveProtocolRelative(scheme, abs)
}

// ResolveProtocolRelative prefixes a "//host/path" URL with scheme.
// Other URLs are returned as-is.
func ResolveProtocolRelative(scheme, u string) string {
	if !strings.HasPrefix(u, "//") {
		return u
	}

	return scheme + ":" + u
}
