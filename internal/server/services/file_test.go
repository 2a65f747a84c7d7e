package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/config"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/files"
)

// --- fakes ---

type fakeBlobStore struct {
	objects   map[string]bool
	putFailFn func(key string) error
	deleteErr error
	deleted   []string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: map[string]bool{}}
}

func (f *fakeBlobStore) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	if f.putFailFn != nil {
		if err := f.putFailFn(key); err != nil {
			return err
		}
	}
	f.objects[key] = true
	return nil
}

func (f *fakeBlobStore) PresignDownload(ctx context.Context, key, downloadName string, validity time.Duration) (string, error) {
	return fmt.Sprintf("https://signed.example/%s?name=%s&ttl=%s", key, downloadName, validity), nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, key)
	delete(f.objects, key)
	return nil
}

type fakeFilesRepo struct {
	records   []*models.File
	nextID    int
	createErr error
	// createHook runs before a record is stored, e.g. to assert the blob
	// already exists.
	createHook func(f *models.File)
}

func (r *fakeFilesRepo) matches(f *models.File, ownerID string, filter files.ListFilter) bool {
	if f.OwnerID != ownerID {
		return false
	}
	if filter.Folder != "" && f.Folder != filter.Folder {
		return false
	}
	if filter.FileType != "" && f.FileType != filter.FileType {
		return false
	}
	return true
}

func (r *fakeFilesRepo) Create(ctx context.Context, f *models.File) (*models.File, error) {
	if r.createHook != nil {
		r.createHook(f)
	}
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.nextID++
	f.ID = fmt.Sprintf("f-%d", r.nextID)
	f.CreatedAt = time.Now()
	r.records = append(r.records, f)
	return f, nil
}

func (r *fakeFilesRepo) GetByID(ctx context.Context, ownerID, id string) (*models.File, error) {
	for _, f := range r.records {
		if f.ID == id && f.OwnerID == ownerID {
			return f, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeFilesRepo) ListPage(ctx context.Context, ownerID string, filter files.ListFilter, limit, offset int) ([]*models.File, int, error) {
	var matched []*models.File
	for _, f := range r.records {
		if r.matches(f, ownerID, filter) {
			matched = append(matched, f)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].UploadTime.After(matched[j].UploadTime) })

	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (r *fakeFilesRepo) Delete(ctx context.Context, ownerID, id string) error {
	for i, f := range r.records {
		if f.ID == id && f.OwnerID == ownerID {
			r.records = append(r.records[:i], r.records[i+1:]...)
			return nil
		}
	}
	return common.ErrorNotFound
}

func (r *fakeFilesRepo) Folders(ctx context.Context, ownerID string) ([]string, error) {
	seen := map[string]bool{}
	var folders []string
	for _, f := range r.records {
		if f.OwnerID == ownerID && !seen[f.Folder] {
			seen[f.Folder] = true
			folders = append(folders, f.Folder)
		}
	}
	sort.Strings(folders)
	return folders, nil
}

// --- helpers ---

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestFileService(t *testing.T) (*FileService, *fakeFilesRepo, *fakeBlobStore) {
	t.Helper()
	repo := &fakeFilesRepo{}
	store := newFakeBlobStore()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	return NewFileService(repo, store, discardLogger(), cfg), repo, store
}

func upload(name, contentType, content string) UploadFile {
	return UploadFile{
		OriginalName: name,
		ContentType:  contentType,
		Size:         int64(len(content)),
		Content:      strings.NewReader(content),
	}
}

// --- tests ---

func TestUpload_Success(t *testing.T) {
	svc, repo, store := newTestFileService(t)

	// the invariant: metadata is only written once the blob exists
	repo.createHook = func(f *models.File) {
		require.True(t, store.objects[f.BlobKey], "metadata created before blob write for %s", f.BlobKey)
	}

	result, err := svc.Upload(context.Background(), "u1", "docs", []UploadFile{
		upload("report.PDF", "application/pdf", "0123456789"),
	})
	require.NoError(t, err)
	require.Len(t, result.Created, 1)
	assert.Empty(t, result.Failed)

	f := result.Created[0]
	assert.Equal(t, "report.PDF", f.OriginalName)
	assert.Equal(t, int64(10), f.Size)
	assert.Equal(t, models.FileTypeDocument, f.FileType)
	assert.Equal(t, "docs", f.Folder)
	assert.Equal(t, "u1", f.OwnerID)
	assert.True(t, strings.HasSuffix(f.Filename, ".pdf"), "generated name keeps the extension: %s", f.Filename)
	assert.NotContains(t, f.Filename, "report", "generated name must not reuse the untrusted original")
	assert.Equal(t, "users/u1/docs/"+f.Filename, f.BlobKey)
	assert.False(t, f.UploadTime.IsZero())
}

func TestUpload_FolderSanitized(t *testing.T) {
	svc, _, _ := newTestFileService(t)

	result, err := svc.Upload(context.Background(), "u1", "/photos/", []UploadFile{
		upload("a.png", "image/png", "x"),
	})
	require.NoError(t, err)
	assert.Equal(t, "photos", result.Created[0].Folder)

	result, err = svc.Upload(context.Background(), "u1", "", []UploadFile{
		upload("b.png", "image/png", "x"),
	})
	require.NoError(t, err)
	f := result.Created[0]
	assert.Equal(t, "/", f.Folder)
	assert.Equal(t, "users/u1/"+f.Filename, f.BlobKey)
}

func TestUpload_NoFiles(t *testing.T) {
	svc, _, _ := newTestFileService(t)

	_, err := svc.Upload(context.Background(), "u1", "", nil)
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestUpload_PartialFailureContinues(t *testing.T) {
	svc, _, store := newTestFileService(t)

	calls := 0
	store.putFailFn = func(key string) error {
		calls++
		if calls == 2 {
			return errors.New("backend hiccup")
		}
		return nil
	}

	result, err := svc.Upload(context.Background(), "u1", "", []UploadFile{
		upload("one.txt", "text/plain", "1"),
		upload("two.txt", "text/plain", "2"),
		upload("three.txt", "text/plain", "3"),
	})
	require.NoError(t, err)

	require.Len(t, result.Created, 2)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "two.txt", result.Failed[0].OriginalName)
	for _, f := range result.Created {
		assert.NotEqual(t, "two.txt", f.OriginalName)
	}
}

func TestUpload_OversizedFileSkipped(t *testing.T) {
	svc, _, store := newTestFileService(t)

	result, err := svc.Upload(context.Background(), "u1", "", []UploadFile{
		upload("ok.txt", "text/plain", "fine"),
		{OriginalName: "huge.bin", ContentType: "application/octet-stream", Size: MaxUploadFileSize + 1, Content: strings.NewReader("")},
	})
	require.NoError(t, err)

	require.Len(t, result.Created, 1)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "huge.bin", result.Failed[0].OriginalName)
	assert.Len(t, store.objects, 1, "no blob write may happen for an oversized file")
}

func TestUpload_AllFailed(t *testing.T) {
	svc, _, store := newTestFileService(t)

	store.putFailFn = func(string) error { return errors.New("backend down") }

	_, err := svc.Upload(context.Background(), "u1", "", []UploadFile{
		upload("one.txt", "text/plain", "1"),
		upload("two.txt", "text/plain", "2"),
	})
	assert.ErrorIs(t, err, common.ErrorInternal)
}

func TestUpload_MetadataFailureAfterBlobWrite(t *testing.T) {
	svc, repo, _ := newTestFileService(t)

	repo.createErr = errors.New("db down")

	_, err := svc.Upload(context.Background(), "u1", "", []UploadFile{
		upload("one.txt", "text/plain", "1"),
	})
	assert.ErrorIs(t, err, common.ErrorInternal)
}

func seedFiles(t *testing.T, svc *FileService, ownerID string, n int) []*models.File {
	t.Helper()
	var created []*models.File
	for i := 0; i < n; i++ {
		result, err := svc.Upload(context.Background(), ownerID, "", []UploadFile{
			upload(fmt.Sprintf("file-%02d.txt", i), "text/plain", "x"),
		})
		require.NoError(t, err)
		// distinct upload times so the sort order is deterministic
		result.Created[0].UploadTime = time.Now().Add(time.Duration(i) * time.Second)
		created = append(created, result.Created[0])
	}
	return created
}

func TestList_Pagination(t *testing.T) {
	svc, _, _ := newTestFileService(t)
	seedFiles(t, svc, "u1", 25)
	ctx := context.Background()

	page1, err := svc.List(ctx, "u1", files.ListFilter{}, 1, 10)
	require.NoError(t, err)
	assert.Len(t, page1.Files, 10)
	assert.Equal(t, 25, page1.Pagination.TotalFiles)
	assert.Equal(t, 3, page1.Pagination.TotalPages)
	assert.True(t, page1.Pagination.HasNext)
	assert.False(t, page1.Pagination.HasPrev)

	page3, err := svc.List(ctx, "u1", files.ListFilter{}, 3, 10)
	require.NoError(t, err)
	assert.Len(t, page3.Files, 5)
	assert.False(t, page3.Pagination.HasNext)
	assert.True(t, page3.Pagination.HasPrev)

	// newest first
	assert.Equal(t, "file-24.txt", page1.Files[0].OriginalName)
}

func TestList_EmptyFilterEqualsNoFilter(t *testing.T) {
	svc, _, _ := newTestFileService(t)
	seedFiles(t, svc, "u1", 5)
	ctx := context.Background()

	all, err := svc.List(ctx, "u1", files.ListFilter{}, 1, 50)
	require.NoError(t, err)

	empty, err := svc.List(ctx, "u1", files.ListFilter{Folder: "", FileType: ""}, 1, 50)
	require.NoError(t, err)

	assert.Equal(t, all.Pagination.TotalFiles, empty.Pagination.TotalFiles)
	assert.Equal(t, len(all.Files), len(empty.Files))
}

func TestList_FilterByFolderAndType(t *testing.T) {
	svc, _, _ := newTestFileService(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "u1", "docs", []UploadFile{upload("a.pdf", "application/pdf", "x")})
	require.NoError(t, err)
	_, err = svc.Upload(ctx, "u1", "pics", []UploadFile{upload("b.png", "image/png", "x")})
	require.NoError(t, err)

	byFolder, err := svc.List(ctx, "u1", files.ListFilter{Folder: "docs"}, 1, 10)
	require.NoError(t, err)
	require.Len(t, byFolder.Files, 1)
	assert.Equal(t, "a.pdf", byFolder.Files[0].OriginalName)

	byType, err := svc.List(ctx, "u1", files.ListFilter{FileType: models.FileTypeImage}, 1, 10)
	require.NoError(t, err)
	require.Len(t, byType.Files, 1)
	assert.Equal(t, "b.png", byType.Files[0].OriginalName)
}

func TestList_FolderFilterSanitizedLikeUpload(t *testing.T) {
	svc, _, _ := newTestFileService(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "u1", "photos/", []UploadFile{upload("a.png", "image/png", "x")})
	require.NoError(t, err)

	// the stored folder is "photos"; filters with stray separators must
	// still match it
	for _, folder := range []string{"photos", "photos/", "/photos", "/photos/"} {
		got, err := svc.List(ctx, "u1", files.ListFilter{Folder: folder}, 1, 10)
		require.NoError(t, err)
		require.Len(t, got.Files, 1, "folder filter %q", folder)
		assert.Equal(t, "a.png", got.Files[0].OriginalName)
	}
}

func TestGet_OwnershipScoped(t *testing.T) {
	svc, _, _ := newTestFileService(t)
	ctx := context.Background()

	result, err := svc.Upload(ctx, "u1", "", []UploadFile{upload("a.txt", "text/plain", "x")})
	require.NoError(t, err)
	id := result.Created[0].ID

	got, err := svc.Get(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)

	// another user sees not-found, not a permission error
	_, err = svc.Get(ctx, "u2", id)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDownloadLink(t *testing.T) {
	svc, _, _ := newTestFileService(t)
	ctx := context.Background()

	result, err := svc.Upload(ctx, "u1", "", []UploadFile{upload("photo.png", "image/png", "x")})
	require.NoError(t, err)
	f := result.Created[0]

	url, validity, err := svc.DownloadLink(ctx, "u1", f.ID)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, validity)
	assert.Contains(t, url, f.BlobKey)
	assert.Contains(t, url, "photo.png")

	_, _, err = svc.DownloadLink(ctx, "u2", f.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDelete_RemovesBlobAndRecord(t *testing.T) {
	svc, _, store := newTestFileService(t)
	ctx := context.Background()

	result, err := svc.Upload(ctx, "u1", "", []UploadFile{upload("a.txt", "text/plain", "x")})
	require.NoError(t, err)
	f := result.Created[0]

	name, err := svc.Delete(ctx, "u1", f.ID)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", name)
	assert.Contains(t, store.deleted, f.BlobKey)

	_, err = svc.Get(ctx, "u1", f.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDelete_BlobFailureDoesNotBlockMetadataDelete(t *testing.T) {
	svc, _, store := newTestFileService(t)
	ctx := context.Background()

	result, err := svc.Upload(ctx, "u1", "", []UploadFile{upload("a.txt", "text/plain", "x")})
	require.NoError(t, err)
	f := result.Created[0]

	store.deleteErr = errors.New("backend down")

	name, err := svc.Delete(ctx, "u1", f.ID)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", name)

	// the record is gone even though the blob survived
	listing, err := svc.List(ctx, "u1", files.ListFilter{}, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, listing.Files)
}

func TestDelete_NotOwned(t *testing.T) {
	svc, _, _ := newTestFileService(t)
	ctx := context.Background()

	result, err := svc.Upload(ctx, "u1", "", []UploadFile{upload("a.txt", "text/plain", "x")})
	require.NoError(t, err)

	_, err = svc.Delete(ctx, "u2", result.Created[0].ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestFolders_SortedAndScoped(t *testing.T) {
	svc, _, _ := newTestFileService(t)
	ctx := context.Background()

	for _, folder := range []string{"zeta", "alpha", "docs"} {
		_, err := svc.Upload(ctx, "u1", folder, []UploadFile{upload("a.txt", "text/plain", "x")})
		require.NoError(t, err)
	}
	_, err := svc.Upload(ctx, "u2", "private", []UploadFile{upload("b.txt", "text/plain", "x")})
	require.NoError(t, err)

	folders, err := svc.Folders(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "docs", "zeta"}, folders)
}
