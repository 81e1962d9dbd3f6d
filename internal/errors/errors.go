package errors

import "errors"

// Client errors.
var (
	ErrURLNotFound         = errors.New("blog not found at this address")
	ErrInvalidCredentials  = errors.New("invalid email, password or auth code")
	ErrCredentialsExpired  = errors.New("stored credentials expired, log in again")
	ErrNoCredentials       = errors.New("no stored credentials for this blog")
	ErrUnsupportedDocument = errors.New("this is a Koenig editor post and therefore currently unsupported")
	ErrPostNotFound        = errors.New("post not found")
	ErrConflict            = errors.New("post changed remotely and could not be merged")
	ErrStatePassphrase     = errors.New("state passphrase does not match this database")
)

// Server/transport errors.
var (
	ErrAPIRequest  = errors.New("API request failed")
	ErrAPIResponse = errors.New("unexpected API response")
)
