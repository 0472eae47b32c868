// Package domain contains entity without logic, just meta-data
package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxIdentityLen    = 64
	MaxDisplayNameLen = 50
)

// Identity is the opaque id bound to one live connection.
type Identity string

type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusOnline, StatusOffline:
		return Status(s), nil
	}
	return "", Errorf(CodeValidation, "unknown status %q", s)
}

// PresenceRecord is the public view of a registered identity.
type PresenceRecord struct {
	ID          Identity  `json:"id"`
	DisplayName string    `json:"displayName"`
	Status      Status    `json:"status"`
	LastSeen    time.Time `json:"lastSeen"`
	Typing      bool      `json:"typing"`
}

// NormalizeDisplayName trims the name and enforces length limits.
func NormalizeDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrDisplayNameEmpty
	}
	if utf8.RuneCountInString(name) > MaxDisplayNameLen {
		return "", ErrDisplayNameTooLong
	}
	return name, nil
}

func ValidateIdentity(id string) (Identity, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrIdentityEmpty
	}
	if len(id) > MaxIdentityLen {
		return "", ErrIdentityTooLong
	}
	return Identity(id), nil
}
