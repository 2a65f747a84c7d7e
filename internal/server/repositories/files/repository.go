// Package files provides the repository for file metadata records. Every
// query is owner-scoped: a record owned by someone else is indistinguishable
// from a missing one.
package files

import (
	"context"

	"github.com/dmitrijs2005/filevault/internal/server/models"
)

// ListFilter narrows a listing. Empty fields mean "no filter".
type ListFilter struct {
	Folder   string
	FileType string
}

type Repository interface {
	Create(ctx context.Context, file *models.File) (*models.File, error)
	GetByID(ctx context.Context, ownerID, id string) (*models.File, error)
	// ListPage returns one page of matching records plus the total match
	// count, taken from a consistent snapshot.
	ListPage(ctx context.Context, ownerID string, filter ListFilter, limit, offset int) ([]*models.File, int, error)
	Delete(ctx context.Context, ownerID, id string) error
	Folders(ctx context.Context, ownerID string) ([]string, error)
}
