package auth

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// Class buckets a Google API failure by how the caller should react.
type Class int

const (
	ClassUnknown Class = iota
	// ClassTransient covers 429s, 5xx responses and network failures;
	// retry with backoff.
	ClassTransient
	// ClassAuthExpired covers 401s and invalid_grant; the session needs a
	// refresh or a fresh interactive flow.
	ClassAuthExpired
	// ClassQuotaExhausted means the daily quota is burned; stop calling
	// until the quota resets.
	ClassQuotaExhausted
	// ClassForbidden is a 403 for anything other than quota.
	ClassForbidden
	ClassNotFound
	// ClassInvalid is a 400: the request itself is wrong.
	ClassInvalid
)

func (c Class) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassAuthExpired:
		return "auth_expired"
	case ClassQuotaExhausted:
		return "quota_exhausted"
	case ClassForbidden:
		return "forbidden"
	case ClassNotFound:
		return "not_found"
	case ClassInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// quota reasons the Analytics and Data APIs return inside 403 bodies.
var quotaReasons = map[string]bool{
	"quotaExceeded":         true,
	"dailyLimitExceeded":    true,
	"userRateLimitExceeded": true,
	"rateLimitExceeded":     true,
}

// Classify maps an error from the Google API client (or the oauth2 layer
// underneath it) to a Class.
func Classify(err error) Class {
	if err == nil {
		return ClassUnknown
	}

	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		// invalid_grant means the refresh token itself is dead; the only
		// fix is a fresh interactive flow.
		if rerr.ErrorCode == "invalid_grant" || strings.Contains(string(rerr.Body), "invalid_grant") {
			return ClassAuthExpired
		}
		if rerr.Response != nil && rerr.Response.StatusCode >= 500 {
			return ClassTransient
		}
		return ClassAuthExpired
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized:
			return ClassAuthExpired
		case http.StatusForbidden:
			for _, e := range gerr.Errors {
				if quotaReasons[e.Reason] {
					return ClassQuotaExhausted
				}
			}
			return ClassForbidden
		case http.StatusNotFound:
			return ClassNotFound
		case http.StatusBadRequest:
			return ClassInvalid
		case http.StatusTooManyRequests:
			return ClassTransient
		}
		if gerr.Code >= 500 {
			return ClassTransient
		}
		return ClassUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient
	}

	var uerr *url.Error
	if errors.As(err, &uerr) {
		return ClassTransient
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return ClassTransient
	}

	return ClassUnknown
}

// Retryable reports whether a backoff retry can reasonably succeed.
// Short rate-limit trips are retryable; a burned daily quota is not.
func Retryable(err error) bool {
	switch Classify(err) {
	case ClassTransient:
		return true
	case ClassQuotaExhausted:
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			for _, e := range gerr.Errors {
				if e.Reason == "rateLimitExceeded" || e.Reason == "userRateLimitExceeded" {
					return true
				}
			}
		}
		return false
	default:
		return false
	}
}
