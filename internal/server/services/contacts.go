package services

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/dmitrijs2005/contactbook/internal/logging"
	"github.com/dmitrijs2005/contactbook/internal/server/models"
	"github.com/dmitrijs2005/contactbook/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const (
	DefaultContactsLimit = 10
	MaxContactsLimit     = 100
	BirthdayWindowDays   = 7
)

// ContactService is the owner-scoped contact book. A contact that does not
// exist and a contact of another user are indistinguishable: both yield
// common.ErrorNotFound.
type ContactService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	now         func() time.Time
}

// NewContactService returns a ContactService over db.
func NewContactService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *ContactService {
	return &ContactService{
		db:          db,
		repomanager: m,
		logger:      logger.With("module", "contacts"),
		now:         time.Now,
	}
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Create validates in and stores a new contact for userID.
func (s *ContactService) Create(ctx context.Context, userID string, in *models.ContactInput) (*models.Contact, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	c, err := s.repomanager.Contacts(s.db).Create(ctx, userID, in)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "contact created", "contact_id", c.ID, "user_id", userID)
	return c, nil
}

// List pages through the user's contacts. A non-positive limit means the
// default; limits above MaxContactsLimit are capped.
func (s *ContactService) List(ctx context.Context, userID string, skip, limit int) ([]*models.Contact, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = DefaultContactsLimit
	}
	if limit > MaxContactsLimit {
		limit = MaxContactsLimit
	}

	return s.repomanager.Contacts(s.db).List(ctx, userID, skip, limit)
}

// Get returns a contact of userID by id.
func (s *ContactService) Get(ctx context.Context, userID, id string) (*models.Contact, error) {
	if !validID(id) {
		return nil, common.ErrorNotFound
	}
	return s.repomanager.Contacts(s.db).Get(ctx, userID, id)
}

// Update replaces every field of the contact.
func (s *ContactService) Update(ctx context.Context, userID, id string, in *models.ContactInput) (*models.Contact, error) {
	if !validID(id) {
		return nil, common.ErrorNotFound
	}

	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	c, err := s.repomanager.Contacts(s.db).Update(ctx, userID, id, in)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "contact updated", "contact_id", id, "user_id", userID)
	return c, nil
}

// Delete removes the contact and returns it as it was.
func (s *ContactService) Delete(ctx context.Context, userID, id string) (*models.Contact, error) {
	if !validID(id) {
		return nil, common.ErrorNotFound
	}

	c, err := s.repomanager.Contacts(s.db).Delete(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "contact deleted", "contact_id", id, "user_id", userID)
	return c, nil
}

// Search matches name against first or last name and email against the
// email, case-insensitively. Empty filters are ignored.
func (s *ContactService) Search(ctx context.Context, userID, name, email string) ([]*models.Contact, error) {
	return s.repomanager.Contacts(s.db).Search(ctx, userID, strings.TrimSpace(name), strings.TrimSpace(email))
}

// UpcomingBirthdays lists contacts whose birthday falls within the next
// days days, today included.
func (s *ContactService) UpcomingBirthdays(ctx context.Context, userID string, days int) ([]*models.Contact, error) {
	all, err := s.repomanager.Contacts(s.db).ListAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	return UpcomingBirthdays(all, s.now(), days), nil
}
