package http

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"xpdash/internal/log"
)

// maxIdentifierLen bounds the login field; platform logins and emails are short.
const maxIdentifierLen = 254

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to encode JSON response", log.FieldError, err)
	}
}

func writeJSONError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// redirectToLogin sends the browser to the login page with an optional
// error code from loginErrorMessages.
func redirectToLogin(w http.ResponseWriter, r *http.Request, code string) {
	target := "/login"
	if code != "" {
		target += "?" + url.Values{"error": {code}}.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
