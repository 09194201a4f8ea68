package errors

import "errors"

// IsAuthError reports whether the provider rejected the credentials.
func IsAuthError(err error) bool {
	return Classify(err) == KindAuth
}

// IsPermissionError reports whether the credentials lack a scope.
func IsPermissionError(err error) bool {
	return Classify(err) == KindPermission
}

// IsRateLimited reports whether the provider throttled the request.
func IsRateLimited(err error) bool {
	return Classify(err) == KindRateLimited
}

// IsConnectionError reports whether the API could not be reached,
// including TLS failures and timeouts.
func IsConnectionError(err error) bool {
	return Classify(err).connection()
}

// IsConfigurationError reports whether err is one of the fatal setup
// errors: an unknown provider, a missing capability or a missing
// credential.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrUnknownProvider) ||
		errors.Is(err, ErrMissingCapability) ||
		errors.Is(err, ErrMissingCredential)
}
