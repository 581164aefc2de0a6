package core

import (
	"strings"
	"time"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// NowFunc returns the current UTC time. Tests may override it.
var NowFunc = func() time.Time { return time.Now().UTC() }

// Today returns the current UTC date formatted as YYYY-MM-DD.
func Today() string {
	return NowFunc().Format(DateLayout)
}

func BoolPtr(b bool) *bool { return &b }

func StringPtr(s string) *string { return &s }
