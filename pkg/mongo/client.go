package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/x/mongo/driver/connstring"
)

// New creates a new mongo client and pings it, retrying up to
// cfg.RetryAttempts times. Waiting between attempts stops when ctx is done.
func New(ctx context.Context, cfg Config) (*mongo.Client, error) {
	if cfg.ConnectionURL == "" {
		return nil, ErrEmptyConnectionURL
	}

	opts := options.Client().
		ApplyURI(cfg.ConnectionURL).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize).
		SetRetryWrites(cfg.RetryWrites).
		SetRetryReads(cfg.RetryReads)
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
	}
	if cfg.MaxConnIdleTime > 0 {
		opts.SetMaxConnIdleTime(cfg.MaxConnIdleTime)
	}

	attempts := max(cfg.RetryAttempts, 1)
	var lastErr error
	for i := range attempts {
		client, err := mongo.Connect(opts)
		if err == nil {
			if err = client.Ping(ctx, nil); err == nil {
				return client, nil
			}
			_ = client.Disconnect(context.WithoutCancel(ctx))
		}
		lastErr = err

		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrFailedToConnectToMongo, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}

	return nil, errors.Join(ErrFailedToConnectToMongo, lastErr)
}

// NewWithDatabase creates a new mongo client and returns the database named
// in cfg.ConnectionURL.
func NewWithDatabase(ctx context.Context, cfg Config) (*mongo.Database, error) {
	name, err := DatabaseName(cfg.ConnectionURL)
	if err != nil {
		return nil, err
	}
	client, err := New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return client.Database(name), nil
}

// DatabaseName returns the database path component of a mongo connection URL,
// e.g. "tenant_42" for "mongodb://localhost:27017/tenant_42".
func DatabaseName(url string) (string, error) {
	if url == "" {
		return "", ErrEmptyConnectionURL
	}
	cs, err := connstring.ParseAndValidate(url)
	if err != nil {
		return "", errors.Join(ErrInvalidConnectionURL, err)
	}
	if cs.Database == "" {
		return "", ErrMissingDatabase
	}
	return cs.Database, nil
}
