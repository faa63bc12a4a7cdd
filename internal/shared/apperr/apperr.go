package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	Invalid      Kind = "invalid"
	NotFound     Kind = "not_found"
	Unauthorized Kind = "unauthorized"
	Forbidden    Kind = "forbidden"
	Conflict     Kind = "conflict"
	Internal     Kind = "internal"
)

// Machine-readable codes carried in the {code,msg} response envelope.
// "20001" (missing parameter) and "LOCAL_ERROR" are the literal codes the
// vendor integration contract already uses; keep them stable.
const (
	CodeMissingParam = "20001"
	CodePayInvalid   = "PAY_INVALID"
	CodeSignInvalid  = "SIGN_INVALID"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeLocalError   = "LOCAL_ERROR"
)

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *AppError) Unwrap() error { return e.Err }

// Constructors (PublicMsg must be short and safe to expose)
func InvalidErr(publicMsg string, fields map[string]string) *AppError {
	return &AppError{Kind: Invalid, Code: CodeMissingParam, PublicMsg: publicMsg, Fields: fields}
}
func PayInvalidErr(publicMsg string) *AppError {
	return &AppError{Kind: Invalid, Code: CodePayInvalid, PublicMsg: publicMsg}
}
func SignInvalidErr(publicMsg string) *AppError {
	return &AppError{Kind: Unauthorized, Code: CodeSignInvalid, PublicMsg: publicMsg}
}
func NotFoundErr(publicMsg string) *AppError {
	return &AppError{Kind: NotFound, Code: CodeNotFound, PublicMsg: publicMsg}
}
func ConflictErr(publicMsg string) *AppError {
	return &AppError{Kind: Conflict, Code: CodeConflict, PublicMsg: publicMsg}
}

// WithCode overrides the envelope code, e.g. to pass a vendor business code
// through to the caller untouched.
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// Wrap hides an internal error behind the generic envelope (default 500).
func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Kind: Internal, Code: CodeLocalError, PublicMsg: "unexpected error", Err: err}
}

func As(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

func HTTPStatus(err error) int {
	if ae, ok := As(err); ok {
		switch ae.Kind {
		case Invalid:
			return http.StatusBadRequest
		case Unauthorized:
			return http.StatusUnauthorized
		case Forbidden:
			return http.StatusForbidden
		case NotFound:
			return http.StatusNotFound
		case Conflict:
			return http.StatusConflict
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}

func PublicCode(err error) string {
	if ae, ok := As(err); ok && ae.Code != "" {
		return ae.Code
	}
	return CodeLocalError
}

func PublicMessage(err error) string {
	if ae, ok := As(err); ok && ae.PublicMsg != "" {
		return ae.PublicMsg
	}
	return "unexpected error"
}
