package models

import "errors"

// Error kinds shared by the gateway, the upload policy and the HTTP layer.
// Components wrap them with fmt.Errorf("%w: ...") and callers classify with errors.Is.
var (
	ErrNotFound             = errors.New("not found")
	ErrValidation           = errors.New("validation failed")
	ErrBadRequest           = errors.New("bad request")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrPayloadTooLarge      = errors.New("payload too large")
	ErrTooManyFiles         = errors.New("too many files")
	ErrUpstream             = errors.New("upstream failure")
)
