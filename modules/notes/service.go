package notes

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/messaging"
	"github.com/dmitrymomot/tenantkit/pkg/requestid"
	"github.com/dmitrymomot/tenantkit/pkg/tenantdb"
)

// Service implements the notes use cases. Every call runs in its own unit
// of work, scoped to the ambient tenant of ctx.
type Service struct {
	factory   *tenantdb.Factory
	publisher *messaging.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithPublisher sets the publisher used for note events.
func WithPublisher(p *messaging.Publisher) ServiceOption {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a service. Without WithPublisher events are dropped.
func NewService(factory *tenantdb.Factory, opts ...ServiceOption) *Service {
	s := &Service{
		factory:   factory,
		publisher: messaging.NewPublisher(nil),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateNoteInput holds the fields of a new note.
type CreateNoteInput struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Category string `json:"category"`
}

// CreateNote stores a note for the ambient tenant and publishes
// TopicNoteCreated once it is committed.
func (s *Service) CreateNote(ctx context.Context, in CreateNoteInput) (*Note, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	note := &Note{
		ID:        uuid.NewString(),
		Title:     title,
		Body:      in.Body,
		Category:  in.Category,
		CreatedAt: s.now().UTC(),
	}

	_, err := s.factory.Run(ctx, func(ctx context.Context, uow *tenantdb.UnitOfWork) error {
		if note.Category != "" {
			categories := tenantdb.MustSet[*Category](uow.Session(), CategoryType)
			if _, err := categories.Find(ctx, note.Category); err != nil {
				if errors.Is(err, tenantdb.ErrNotFound) {
					return ErrUnknownCategory
				}
				return err
			}
		}
		return tenantdb.MustSet[*Note](uow.Session(), NoteType).Add(note)
	})
	if err != nil {
		return nil, err
	}

	// The note is committed; a lost event must not fail the request.
	if err := s.publisher.Publish(ctx, TopicNoteCreated,
		NoteCreated{NoteID: note.ID, Title: note.Title}, requestid.Headers(ctx)); err != nil {
		s.logger.WarnContext(ctx, "note event not published",
			logger.Topic(TopicNoteCreated),
			logger.Error(err),
		)
	}
	return note, nil
}

// GetNote returns one note of the ambient tenant.
func (s *Service) GetNote(ctx context.Context, id string) (*Note, error) {
	var note *Note
	_, err := s.factory.Run(ctx, func(ctx context.Context, uow *tenantdb.UnitOfWork) error {
		var err error
		note, err = tenantdb.MustSet[*Note](uow.Session(), NoteType).Find(ctx, id)
		return err
	})
	return note, err
}

// ListNotes returns the notes of the ambient tenant ordered by id.
func (s *Service) ListNotes(ctx context.Context) ([]*Note, error) {
	var list []*Note
	_, err := s.factory.Run(ctx, func(ctx context.Context, uow *tenantdb.UnitOfWork) error {
		var err error
		list, err = tenantdb.MustSet[*Note](uow.Session(), NoteType).List(ctx)
		return err
	})
	return list, err
}

// DeleteNote removes a note of the ambient tenant together with its activity.
func (s *Service) DeleteNote(ctx context.Context, id string) error {
	_, err := s.factory.Run(ctx, func(ctx context.Context, uow *tenantdb.UnitOfWork) error {
		notes := tenantdb.MustSet[*Note](uow.Session(), NoteType)
		note, err := notes.Find(ctx, id)
		if err != nil {
			return err
		}
		if err := notes.Remove(note); err != nil {
			return err
		}

		activity := tenantdb.MustSet[*Activity](uow.Session(), ActivityType)
		related, err := activity.Where(ctx, func(a *Activity) bool { return a.NoteID == id })
		if err != nil {
			return err
		}
		for _, a := range related {
			if err := activity.Remove(a); err != nil {
				return err
			}
		}
		return nil
	})
	return err
}

// RecordActivity stores an activity entry for the ambient tenant.
func (s *Service) RecordActivity(ctx context.Context, noteID, action string) error {
	_, err := s.factory.Run(ctx, func(_ context.Context, uow *tenantdb.UnitOfWork) error {
		return tenantdb.MustSet[*Activity](uow.Session(), ActivityType).Add(&Activity{
			ID:     uuid.NewString(),
			NoteID: noteID,
			Action: action,
			At:     s.now().UTC(),
		})
	})
	return err
}

// ListActivity returns the activity of the ambient tenant.
func (s *Service) ListActivity(ctx context.Context) ([]*Activity, error) {
	var list []*Activity
	_, err := s.factory.Run(ctx, func(ctx context.Context, uow *tenantdb.UnitOfWork) error {
		var err error
		list, err = tenantdb.MustSet[*Activity](uow.Session(), ActivityType).List(ctx)
		return err
	})
	return list, err
}

// CreateCategory stores a shared category. It does not need a tenant.
func (s *Service) CreateCategory(ctx context.Context, c Category) (*Category, error) {
	c.Slug = strings.TrimSpace(c.Slug)
	c.Name = strings.TrimSpace(c.Name)
	if c.Slug == "" || c.Name == "" {
		return nil, ErrInvalidCategory
	}

	_, err := s.factory.Run(ctx, func(_ context.Context, uow *tenantdb.UnitOfWork) error {
		return tenantdb.MustSet[*Category](uow.Session(), CategoryType).Add(&c)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCategories returns every shared category.
func (s *Service) ListCategories(ctx context.Context) ([]*Category, error) {
	var list []*Category
	_, err := s.factory.Run(ctx, func(ctx context.Context, uow *tenantdb.UnitOfWork) error {
		var err error
		list, err = tenantdb.MustSet[*Category](uow.Session(), CategoryType).List(ctx)
		return err
	})
	return list, err
}
