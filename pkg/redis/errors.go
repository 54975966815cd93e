package redis

import "errors"

var (
	// ErrEmptyConnectionURL is returned by Connect without a URL.
	ErrEmptyConnectionURL = errors.New("redis: empty connection URL")

	// ErrFailedToParseRedisConnString is returned for a URL the client rejects.
	ErrFailedToParseRedisConnString = errors.New("redis: invalid connection URL")

	// ErrRedisNotReady is returned when no ping succeeded before the retries ran out.
	ErrRedisNotReady = errors.New("redis: server not ready")

	// ErrHealthcheckFailed wraps ping failures.
	ErrHealthcheckFailed = errors.New("redis: healthcheck failed")
)
