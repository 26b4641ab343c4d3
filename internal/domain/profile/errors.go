package profile

import "errors"

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrBadRequest   = errors.New("bad request")
	// ErrSetupFailed means the profile could not be loaded after sign-in.
	// The user's session has been revoked and must start over.
	ErrSetupFailed = errors.New("account setup failed")
)

func IsErrUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

func IsErrNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsErrBadRequest(err error) bool {
	return errors.Is(err, ErrBadRequest)
}

func IsErrSetupFailed(err error) bool {
	return errors.Is(err, ErrSetupFailed)
}
