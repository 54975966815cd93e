package postgres

import "errors"

var (
	ErrQueryFailed  = errors.New("postgres: query failed")
	ErrCommitFailed = errors.New("postgres: commit failed")
	ErrClosed       = errors.New("postgres: connector closed")
)
