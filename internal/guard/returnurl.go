package guard

import (
	"net/http"
	"net/url"
	"strings"
)

// ReturnURLParam is the query parameter carrying the original destination to the login screen.
const ReturnURLParam = "returnUrl"

// EncodeReturnURL encodes a path and its query string ("" or "?a=b") for use
// as the returnUrl parameter value.
func EncodeReturnURL(path, search string) string {
	return url.QueryEscape(path + search)
}

// DecodeReturnURL reverses EncodeReturnURL.
func DecodeReturnURL(encoded string) (string, error) {
	return url.QueryUnescape(encoded)
}

// RequestTarget returns the escaped path and the "?query" part of r, the
// destination to come back to after login.
func RequestTarget(r *http.Request) (path, search string) {
	path = r.URL.EscapedPath()
	if path == "" {
		path = "/"
	}
	if r.URL.RawQuery != "" {
		search = "?" + r.URL.RawQuery
	}
	return path, search
}

// LoginRedirect builds "<loginPath>?returnUrl=<encoded path+search>".
func LoginRedirect(loginPath, path, search string) string {
	sep := "?"
	if strings.Contains(loginPath, "?") {
		sep = "&"
	}
	return loginPath + sep + ReturnURLParam + "=" + EncodeReturnURL(path, search)
}

// ReturnURLFromRequest extracts the decoded returnUrl parameter from r's query.
func ReturnURLFromRequest(r *http.Request) string {
	return r.URL.Query().Get(ReturnURLParam)
}

// SafeReturnURL returns target when it is a local absolute path, otherwise fallback.
// Scheme-relative ("//host") and absolute URLs are rejected.
func SafeReturnURL(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") {
		return fallback
	}
	if strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return fallback
	}
	u, err := url.Parse(target)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}
	return target
}
