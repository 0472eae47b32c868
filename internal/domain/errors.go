package domain

import (
	"errors"
	"fmt"
)

// Code is the stable error code sent to clients.
type Code string

const (
	CodeValidation     Code = "validation_error"
	CodeBadPayload     Code = "bad_payload"
	CodeUnknownEvent   Code = "unknown_event"
	CodeNotFound       Code = "not_found"
	CodeTargetNotFound Code = "target_not_found"
	CodeAuth           Code = "auth_error"
	CodeNotRegistered  Code = "not_registered"
	CodeRateLimited    Code = "rate_limited"
	CodeState          Code = "state_error"
	CodeAlreadyInCall  Code = "already_in_call"
	CodeTargetBusy     Code = "target_busy"
	CodeInvalidSession Code = "invalid_session"
	CodeNotInCall      Code = "not_in_call"
	CodeNotMember      Code = "not_member"
	CodeInternal       Code = "internal_error"
)

type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches any *Error with the same code, so Errorf results compare
// equal to the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrDisplayNameEmpty   = &Error{CodeValidation, "display name empty"}
	ErrDisplayNameTooLong = &Error{CodeValidation, "display name too long"}
	ErrIdentityEmpty      = &Error{CodeAuth, "identity required"}
	ErrIdentityTooLong    = &Error{CodeValidation, "identity too long"}
	ErrIdentityInUse      = &Error{CodeAuth, "identity already connected"}
	ErrRoomNameEmpty      = &Error{CodeValidation, "room name empty"}
	ErrRoomNameTooLong    = &Error{CodeValidation, "room name too long"}
	ErrSelfCall           = &Error{CodeValidation, "cannot call yourself"}
	ErrChatEmpty          = &Error{CodeValidation, "message empty"}
	ErrChatTooLong        = &Error{CodeValidation, "message too long"}
	ErrMissingTarget      = &Error{CodeValidation, "targetId or roomId required"}
	ErrSignalTooLarge     = &Error{CodeValidation, "signal payload too large"}

	ErrNotRegistered  = &Error{CodeNotRegistered, "register first"}
	ErrRateLimited    = &Error{CodeRateLimited, "too many requests"}
	ErrUserNotFound   = &Error{CodeNotFound, "user not found"}
	ErrRoomNotFound   = &Error{CodeNotFound, "room not found"}
	ErrTargetNotFound = &Error{CodeTargetNotFound, "target user not found"}
	ErrNotMember      = &Error{CodeNotMember, "not a member of this room"}

	ErrAlreadyInCall  = &Error{CodeAlreadyInCall, "already in a call"}
	ErrTargetBusy     = &Error{CodeTargetBusy, "target is in another call"}
	ErrInvalidSession = &Error{CodeInvalidSession, "no matching ringing call"}
	ErrNotInCall      = &Error{CodeNotInCall, "no call with this peer"}
)

// CodeOf extracts the client-facing code; non-domain errors are internal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
