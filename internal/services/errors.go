package services

import "errors"

// Standard service errors grouped by the failure surface they belong to
var (
	// Page fetch errors: the cached sequence is left unchanged
	ErrFetchFailed = errors.New("thread page fetch failed")

	// Read-state mutation errors: local state is left unchanged
	ErrMutationFailed = errors.New("read state mutation failed")

	// Prefetch errors: logged only, never user-visible
	ErrPrefetchFailed = errors.New("thread prefetch failed")

	// Identity errors
	ErrNoIdentity = errors.New("no active identity")

	// Network and connectivity errors
	ErrNetworkUnavailable = errors.New("network unavailable")
	ErrTimeout            = errors.New("operation timed out")
	ErrUnauthorized       = errors.New("unauthorized access")

	// Data errors
	ErrNotFound      = errors.New("resource not found")
	ErrInvalidInput  = errors.New("invalid input provided")
	ErrInvalidThread = errors.New("invalid thread ID")

	// Cache errors
	ErrCacheUnavailable = errors.New("cache unavailable")
	ErrCacheMiss        = errors.New("cache miss")

	// Service errors
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrRateLimited        = errors.New("rate limited")
)

// IsRetryableError determines if an error should be retried
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrNetworkUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrRateLimited)
}

// IsPermanentError determines if an error is permanent and should not be retried
func IsPermanentError(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidThread)
}
