// Package contacts stores address-book entries. Every operation is scoped
// to the owning user; rows of other users behave as if they did not exist.
package contacts

import (
	"context"

	"github.com/dmitrijs2005/contactbook/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, userID string, in *models.ContactInput) (*models.Contact, error)
	List(ctx context.Context, userID string, skip, limit int) ([]*models.Contact, error)
	ListAll(ctx context.Context, userID string) ([]*models.Contact, error)
	Get(ctx context.Context, userID, id string) (*models.Contact, error)
	Update(ctx context.Context, userID, id string, in *models.ContactInput) (*models.Contact, error)
	Delete(ctx context.Context, userID, id string) (*models.Contact, error)
	Search(ctx context.Context, userID, name, email string) ([]*models.Contact, error)
}
