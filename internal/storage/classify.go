package storage

import "strings"

// AuthFailureMarkers are the lower-case fragments that identify a credential
// failure in the text of a backend or accounts-service error. The platform
// reports auth problems only through message text.
var AuthFailureMarkers = []string{
	"unauthorized",
	"authentication",
	"401",
	"403",
	"forbidden",
	"invalid password",
	"invalid email",
	"login failed",
	"invalid credentials",
	"access denied",
	"invalidaccesskeyid",
	"signaturedoesnotmatch",
}

// IsAuthFailure reports whether err looks like a permanent credential failure.
// Everything else is treated as transient.
func IsAuthFailure(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range AuthFailureMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
