package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/server/models"
)

// PostgresRepository implements Repository. Unlike the other repositories it
// holds the concrete *sql.DB because ListPage opens its own read-only
// transaction.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, file *models.File) (*models.File, error) {

	query :=
		`INSERT INTO files (filename, original_name, size, blob_key, content_type, file_type, folder, owner_id, upload_time)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		file.Filename, file.OriginalName, file.Size, file.BlobKey,
		file.ContentType, file.FileType, file.Folder, file.OwnerID, file.UploadTime).
		Scan(&file.ID, &file.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return file, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, ownerID, id string) (*models.File, error) {
	query :=
		`SELECT id, filename, original_name, size, blob_key, content_type, file_type, folder, owner_id, upload_time, created_at
		 FROM files
		 WHERE owner_id = $1 AND id = $2
		 `

	file := &models.File{}
	err := r.db.QueryRowContext(ctx, query, ownerID, id).Scan(
		&file.ID, &file.Filename, &file.OriginalName, &file.Size, &file.BlobKey,
		&file.ContentType, &file.FileType, &file.Folder, &file.OwnerID,
		&file.UploadTime, &file.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return file, nil
}

// filterClause builds the WHERE tail and args for an owner-scoped query.
// Args start at $1 (owner id); filters are appended only when set.
func filterClause(ownerID string, filter ListFilter) (string, []any) {
	where := `WHERE owner_id = $1`
	args := []any{ownerID}

	if filter.Folder != "" {
		args = append(args, filter.Folder)
		where += fmt.Sprintf(` AND folder = $%d`, len(args))
	}
	if filter.FileType != "" {
		args = append(args, filter.FileType)
		where += fmt.Sprintf(` AND file_type = $%d`, len(args))
	}

	return where, args
}

// ListPage runs the count and the page select inside one read-only
// transaction, so the pagination totals match the returned rows even when
// uploads land concurrently.
func (r *PostgresRepository) ListPage(ctx context.Context, ownerID string, filter ListFilter, limit, offset int) ([]*models.File, int, error) {
	var (
		result []*models.File
		total  int
	)

	err := dbx.WithTx(ctx, r.db, &sql.TxOptions{ReadOnly: true}, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		if total, err = countFiles(ctx, tx, ownerID, filter); err != nil {
			return err
		}
		result, err = listFiles(ctx, tx, ownerID, filter, limit, offset)
		return err
	})
	if err != nil {
		return nil, 0, err
	}

	return result, total, nil
}

func countFiles(ctx context.Context, db dbx.DBTX, ownerID string, filter ListFilter) (int, error) {
	where, args := filterClause(ownerID, filter)

	query := fmt.Sprintf(`SELECT COUNT(*) FROM files %s`, where)

	var count int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return count, nil
}

func listFiles(ctx context.Context, db dbx.DBTX, ownerID string, filter ListFilter, limit, offset int) ([]*models.File, error) {
	where, args := filterClause(ownerID, filter)
	args = append(args, limit, offset)

	query := fmt.Sprintf(
		`SELECT id, filename, original_name, size, blob_key, content_type, file_type, folder, owner_id, upload_time, created_at
		 FROM files
		 %s
		 ORDER BY upload_time DESC
		 LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.File
	for rows.Next() {
		file := &models.File{}
		if err := rows.Scan(
			&file.ID, &file.Filename, &file.OriginalName, &file.Size, &file.BlobKey,
			&file.ContentType, &file.FileType, &file.Folder, &file.OwnerID,
			&file.UploadTime, &file.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, ownerID, id string) error {
	query := `
		DELETE FROM files
		WHERE owner_id = $1 AND id = $2
	`
	res, err := r.db.ExecContext(ctx, query, ownerID, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}

	return nil
}

func (r *PostgresRepository) Folders(ctx context.Context, ownerID string) ([]string, error) {
	query := `
		SELECT DISTINCT folder
		FROM files
		WHERE owner_id = $1
		ORDER BY folder
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var folders []string
	for rows.Next() {
		var folder string
		if err := rows.Scan(&folder); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		folders = append(folders, folder)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return folders, nil
}
