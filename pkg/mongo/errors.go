package mongo

import "errors"

var (
	ErrFailedToConnectToMongo = errors.New("failed to connect to mongo")
	ErrEmptyConnectionURL     = errors.New("empty mongo connection URL")
	ErrInvalidConnectionURL   = errors.New("invalid mongo connection URL")
	ErrMissingDatabase        = errors.New("mongo connection URL names no database")
	ErrHealthcheckFailed      = errors.New("mongo healthcheck failed")
)
