package users

import (
	"context"

	"github.com/dmitrijs2005/contactbook/internal/server/models"
)

// Repository is the credential store. Lookups return common.ErrorNotFound
// for absent rows; Create returns common.ErrorConflict when the email is
// already registered.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	SetVerified(ctx context.Context, email string) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id string, hash string) error
	UpdateAvatar(ctx context.Context, id string, avatarURL string) (*models.User, error)
}
