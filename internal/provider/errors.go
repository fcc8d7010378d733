package provider

import "errors"

// ErrUnsupported is returned when a backend doesn't support a given operation.
var ErrUnsupported = errors.New("operation not supported by this backend")

// ErrProviderUnavailable indicates the backend's CLI is missing or not
// authenticated. Callers may fall back to another backend.
var ErrProviderUnavailable = errors.New("provider CLI unavailable")

// ErrNoProviderAvailable indicates no registered backend could serve a
// repository: nothing matched its remote and nothing usable remained as a
// fallback.
var ErrNoProviderAvailable = errors.New("no provider available for repository")

// ErrInvalidConfiguration indicates a provider override or setting names a
// backend that does not exist.
var ErrInvalidConfiguration = errors.New("invalid provider configuration")

// ErrInvalidResponse indicates the CLI exited successfully but its output
// could not be parsed into the expected shape.
var ErrInvalidResponse = errors.New("malformed provider response")
