package tenantdb

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/tenantkit/pkg/logger"
)

// UnitOfWork commits a session's pending changes as one atomic batch.
type UnitOfWork struct {
	session *Session
	logger  *slog.Logger
}

// NewUnitOfWork wraps s.
func NewUnitOfWork(s *Session) *UnitOfWork {
	log := s.logger
	if log == nil {
		log = slog.Default()
	}
	return &UnitOfWork{session: s, logger: log}
}

// Session returns the underlying session.
func (u *UnitOfWork) Session() *Session {
	return u.session
}

// SaveChanges commits all pending changes and returns the number of
// affected rows. ErrTenantMismatch and ErrMissingTenantContext are returned
// as produced by validation, before anything reaches the store.
func (u *UnitOfWork) SaveChanges(ctx context.Context) (int, error) {
	n, err := u.session.SaveChanges(ctx)
	if err != nil {
		if errors.Is(err, ErrTenantMismatch) || errors.Is(err, ErrMissingTenantContext) {
			u.logger.WarnContext(ctx, "commit rejected by tenant validation",
				logger.Connection(u.session.Connection()),
				slog.String("reason", rejectionReason(err)),
				logger.Error(err),
			)
		} else {
			u.logger.ErrorContext(ctx, "commit failed",
				logger.Connection(u.session.Connection()),
				logger.Error(err),
			)
		}
		return 0, err
	}

	if n > 0 {
		u.logger.DebugContext(ctx, "changes committed",
			logger.Connection(u.session.Connection()),
			logger.AffectedRows(n),
		)
	}
	return n, nil
}
