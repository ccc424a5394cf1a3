package service

import "github.com/jwsummers/techmetrix/internal/authz"

type ErrorCode string

const (
	ErrorCodeUnauthenticated    ErrorCode = "UNAUTHENTICATED"
	ErrorCodeForbidden          ErrorCode = "FORBIDDEN"
	ErrorCodeDemoRestricted     ErrorCode = "DEMO_RESTRICTED"
	ErrorCodeUserExists         ErrorCode = "USER_EXISTS"
	ErrorCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrorCodeInvalidBody        ErrorCode = "INVALID_BODY"
	ErrorCodeUnspecified        ErrorCode = "UNSPECIFIED"
)

type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

func (e *Error) Error() string {
	return e.Message
}

// errorFromDecision translates a guard DENY into the service error the
// transport layer maps onto a status code. ALLOW translates to nil.
func errorFromDecision(d authz.Decision) *Error {
	if d.Allowed {
		return nil
	}
	switch d.Kind {
	case authz.DenyUnauthenticated:
		return NewError(ErrorCodeUnauthenticated, "authentication required")
	case authz.DenyDemoRestricted:
		return NewError(ErrorCodeDemoRestricted, "demo account cannot modify team membership")
	default:
		return NewError(ErrorCodeForbidden, "not authorized")
	}
}
