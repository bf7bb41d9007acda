// Package refreshtokens declares the server-side repository contract for
// refresh tokens.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/server/models"
)

// Repository defines operations for issuing, redeeming and revoking refresh tokens.
type Repository interface {
	// Create stores a new refresh token for userID expiring at now+validity.
	Create(ctx context.Context, userID string, token string, validity time.Duration) error

	// Consume removes the token and returns what it was bound to, so a token
	// can be redeemed once. Absent tokens yield common.ErrorNotFound.
	Consume(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete revokes a token. Deleting a non-existent token is not an error.
	Delete(ctx context.Context, token string) error
}
