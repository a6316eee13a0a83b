package http

import (
	"net/http"
	"strings"
)

// HeaderUserID names the caller. Authentication happens upstream.
const HeaderUserID = "X-User-ID"

const maxUserIDLen = 128

// userID returns the caller's id or writes 401 and returns false.
func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := sanitizeInput(r.Header.Get(HeaderUserID))
	if id == "" || len(id) > maxUserIDLen {
		UnauthorizedError("missing or invalid " + HeaderUserID + " header").Write(w)
		return "", false
	}
	return id, true
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, then trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
