package reservation

import "errors"

var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNotFound      = errors.New("not found")
	ErrBadRequest    = errors.New("bad request")
	ErrConflict      = errors.New("slot already taken")
	ErrBlocked       = errors.New("slot is blocked")
	ErrPast          = errors.New("slot is in the past")
	ErrPhoneRequired = errors.New("phone number required")
)

func IsErrUnauthorized(err error) bool  { return errors.Is(err, ErrUnauthorized) }
func IsErrNotFound(err error) bool      { return errors.Is(err, ErrNotFound) }
func IsErrBadRequest(err error) bool    { return errors.Is(err, ErrBadRequest) }
func IsErrConflict(err error) bool      { return errors.Is(err, ErrConflict) }
func IsErrBlocked(err error) bool       { return errors.Is(err, ErrBlocked) }
func IsErrPast(err error) bool          { return errors.Is(err, ErrPast) }
func IsErrPhoneRequired(err error) bool { return errors.Is(err, ErrPhoneRequired) }
