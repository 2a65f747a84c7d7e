package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/blob"
	"github.com/dmitrijs2005/filevault/internal/server/config"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/files"
)

// MaxUploadFileSize bounds a single uploaded file. Oversized files fail
// individually without sinking the batch.
const MaxUploadFileSize = 100 << 20

// UploadFile is one incoming file of a batch upload.
type UploadFile struct {
	OriginalName string
	ContentType  string
	Size         int64
	Content      io.Reader
}

// UploadFailure records why one file of a batch was skipped.
type UploadFailure struct {
	OriginalName string
	Reason       string
}

// UploadResult is the per-item outcome of a batch upload. The caller decides
// the aggregate status from whether Created is empty.
type UploadResult struct {
	Created []*models.File
	Failed  []UploadFailure
}

// ListResult is one page of a file listing.
type ListResult struct {
	Files      []*models.File
	Pagination Pagination
}

// Pagination echoes the page parameters with totals computed from the
// filtered count.
type Pagination struct {
	Page       int
	Limit      int
	TotalFiles int
	TotalPages int
	HasNext    bool
	HasPrev    bool
}

// FileService is the file custody orchestrator: it keeps each metadata
// record paired with exactly one blob object across upload, listing,
// download, and deletion. Writes go blob-first; deletes tolerate a failed
// blob removal.
type FileService struct {
	files                        files.Repository
	blob                         blob.Store
	logger                       logging.Logger
	downloadLinkValidityDuration time.Duration
}

func NewFileService(repo files.Repository, store blob.Store, logger logging.Logger, cfg *config.Config) *FileService {
	return &FileService{
		files:                        repo,
		blob:                         store,
		logger:                       logger,
		downloadLinkValidityDuration: cfg.DownloadLinkValidityDuration,
	}
}

// sanitizeFolder strips path separators from both ends; an empty result is
// the root folder "/".
func sanitizeFolder(folder string) string {
	folder = strings.Trim(strings.TrimSpace(folder), "/")
	if folder == "" {
		return "/"
	}
	return folder
}

// blobKey derives the deterministic storage key for a generated filename.
func blobKey(ownerID, folder, filename string) string {
	parts := []string{"users", ownerID}
	if folder != "/" {
		parts = append(parts, folder)
	}
	parts = append(parts, filename)
	return strings.Join(parts, "/")
}

// Upload stores each file of the batch independently: blob write first,
// metadata record only after the blob write succeeded. A per-file failure
// is logged and skipped; the operation fails as a whole only when every
// file failed.
func (s *FileService) Upload(ctx context.Context, ownerID, folder string, uploads []UploadFile) (*UploadResult, error) {

	if len(uploads) == 0 {
		return nil, fmt.Errorf("%w: at least one file is required", common.ErrorValidation)
	}

	folder = sanitizeFolder(folder)
	result := &UploadResult{}

	for _, f := range uploads {

		if f.Size > MaxUploadFileSize {
			s.logger.Warn(ctx, "skipping oversized file", "name", f.OriginalName, "size", f.Size)
			result.Failed = append(result.Failed, UploadFailure{OriginalName: f.OriginalName, Reason: "file exceeds maximum size"})
			continue
		}

		filename := uuid.New().String() + strings.ToLower(filepath.Ext(f.OriginalName))
		key := blobKey(ownerID, folder, filename)

		if err := s.blob.Put(ctx, key, f.ContentType, f.Content); err != nil {
			s.logger.Error(ctx, "blob upload failed", "name", f.OriginalName, "key", key, "error", err)
			result.Failed = append(result.Failed, UploadFailure{OriginalName: f.OriginalName, Reason: "storage write failed"})
			continue
		}

		record := &models.File{
			Filename:     filename,
			OriginalName: f.OriginalName,
			Size:         f.Size,
			BlobKey:      key,
			ContentType:  f.ContentType,
			FileType:     models.DetectFileType(f.ContentType),
			Folder:       folder,
			OwnerID:      ownerID,
			UploadTime:   time.Now(),
		}

		s.logger.Debug(ctx, "blob stored", "key", key, "size", f.Size)

		created, err := s.files.Create(ctx, record)
		if err != nil {
			// The blob exists but the record does not; an accepted
			// inconsistency window, see Delete for the converse.
			s.logger.Error(ctx, "metadata write failed after blob upload", "name", f.OriginalName, "key", key, "error", err)
			result.Failed = append(result.Failed, UploadFailure{OriginalName: f.OriginalName, Reason: "metadata write failed"})
			continue
		}

		result.Created = append(result.Created, created)
	}

	if len(result.Created) == 0 {
		return nil, fmt.Errorf("%w: no file could be uploaded", common.ErrorInternal)
	}

	return result, nil
}

// List returns one page of the caller's files, newest uploads first. Empty
// filter fields mean no filter.
func (s *FileService) List(ctx context.Context, ownerID string, filter files.ListFilter, page, limit int) (*ListResult, error) {

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	// records store the sanitized folder form, so the filter must be
	// normalized the same way or "photos/" would never match "photos"
	if filter.Folder != "" {
		filter.Folder = sanitizeFolder(filter.Folder)
	}

	items, total, err := s.files.ListPage(ctx, ownerID, filter, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}

	totalPages := (total + limit - 1) / limit

	return &ListResult{
		Files: items,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			TotalFiles: total,
			TotalPages: totalPages,
			HasNext:    page*limit < total,
			HasPrev:    page > 1,
		},
	}, nil
}

// Get returns one record. Ownership and existence are checked together, so
// a record owned by someone else is a plain not-found.
func (s *FileService) Get(ctx context.Context, ownerID, fileID string) (*models.File, error) {
	return s.files.GetByID(ctx, ownerID, fileID)
}

// DownloadLink returns a presigned URL for the record's blob, valid for the
// configured duration, forcing a download under the original name.
func (s *FileService) DownloadLink(ctx context.Context, ownerID, fileID string) (string, time.Duration, error) {

	file, err := s.files.GetByID(ctx, ownerID, fileID)
	if err != nil {
		return "", 0, err
	}

	url, err := s.blob.PresignDownload(ctx, file.BlobKey, file.OriginalName, s.downloadLinkValidityDuration)
	if err != nil {
		return "", 0, err
	}

	return url, s.downloadLinkValidityDuration, nil
}

// Delete removes the blob and then the metadata record. Metadata deletion
// is the user-visible contract: a failed blob removal is logged and does
// not block it. Returns the deleted record's display name.
func (s *FileService) Delete(ctx context.Context, ownerID, fileID string) (string, error) {

	file, err := s.files.GetByID(ctx, ownerID, fileID)
	if err != nil {
		return "", err
	}

	if err := s.blob.Delete(ctx, file.BlobKey); err != nil {
		s.logger.Error(ctx, "blob delete failed, removing metadata anyway", "key", file.BlobKey, "error", err)
	}

	if err := s.files.Delete(ctx, ownerID, fileID); err != nil {
		return "", err
	}

	return file.OriginalName, nil
}

// Folders returns the caller's distinct folder names, sorted.
func (s *FileService) Folders(ctx context.Context, ownerID string) ([]string, error) {
	return s.files.Folders(ctx, ownerID)
}
