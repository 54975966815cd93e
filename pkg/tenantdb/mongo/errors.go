package mongo

import "errors"

var (
	ErrQueryFailed  = errors.New("mongo: query failed")
	ErrCommitFailed = errors.New("mongo: commit failed")
	ErrClosed       = errors.New("mongo: connector closed")
)
