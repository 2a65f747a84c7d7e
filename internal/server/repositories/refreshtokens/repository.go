// Package refreshtokens provides the repository for the single live refresh
// token kept per user. Storing the token server-side is what makes logout
// and session replacement actually revoke credentials.
package refreshtokens

import "context"

type Repository interface {
	// Upsert stores token as the user's only live refresh token,
	// overwriting any previous value.
	Upsert(ctx context.Context, userID string, token string) error
	// Get returns the stored token for userID, or common.ErrorNotFound.
	Get(ctx context.Context, userID string) (string, error)
	// Delete removes the stored token. Deleting a missing row is not an error.
	Delete(ctx context.Context, userID string) error
}
