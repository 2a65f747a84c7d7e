// Package httpapi exposes the gateway's REST surface: authentication and
// private file management over JSON, with bearer-token protected routes.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/config"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/files"
	"github.com/dmitrijs2005/filevault/internal/server/services"
)

// maxUploadFiles bounds a single multipart batch.
const maxUploadFiles = 10

// multipartMemoryLimit is how much of a parsed form stays in memory before
// spilling to temp files.
const multipartMemoryLimit = 32 << 20

// AuthService is the authentication surface the handler depends on.
type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.TokenPair, *models.User, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, userID string) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
}

// FileService is the file management surface the handler depends on.
type FileService interface {
	Upload(ctx context.Context, ownerID, folder string, uploads []services.UploadFile) (*services.UploadResult, error)
	List(ctx context.Context, ownerID string, filter files.ListFilter, page, limit int) (*services.ListResult, error)
	Get(ctx context.Context, ownerID, fileID string) (*models.File, error)
	DownloadLink(ctx context.Context, ownerID, fileID string) (string, time.Duration, error)
	Delete(ctx context.Context, ownerID, fileID string) (string, error)
	Folders(ctx context.Context, ownerID string) ([]string, error)
}

// Handler wires the REST routes to the services.
type Handler struct {
	auth         AuthService
	files        FileService
	logger       logging.Logger
	validate     *validator.Validate
	accessSecret []byte
	corsOrigins  []string
	devMode      bool
}

func NewHandler(auth AuthService, fileSvc FileService, logger logging.Logger, cfg *config.Config) *Handler {
	return &Handler{
		auth:         auth,
		files:        fileSvc,
		logger:       logger,
		validate:     validator.New(),
		accessSecret: []byte(cfg.AccessTokenSecret),
		corsOrigins:  cfg.CORSAllowedOrigins,
		devMode:      cfg.IsDevelopment(),
	}
}

// Router assembles the route tree. Auth issuance routes are public, the rest
// of the API sits behind the bearer-token middleware.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.requestLogger)

	if len(h.corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.corsOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", h.handleHealth)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.handleRegister)
		r.Post("/login", h.handleLogin)
		r.Post("/refresh", h.handleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware)
			r.Post("/logout", h.handleLogout)
			r.Get("/me", h.handleMe)
		})
	})

	r.Route("/files", func(r chi.Router) {
		r.Use(h.authMiddleware)
		r.Post("/upload", h.handleUpload)
		r.Get("/", h.handleList)
		r.Get("/folders/list", h.handleFolders)
		r.Get("/{id}", h.handleGet)
		r.Get("/{id}/download", h.handleDownload)
		r.Delete("/{id}", h.handleDelete)
	})

	return r
}

// --- DTOs ---

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

type fileResponse struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"contentType"`
	FileType     string    `json:"fileType"`
	Folder       string    `json:"folder"`
	UploadTime   time.Time `json:"uploadTime"`
}

type uploadFailureResponse struct {
	OriginalName string `json:"originalName"`
	Reason       string `json:"reason"`
}

type paginationResponse struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalFiles int  `json:"totalFiles"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Email: u.Email, CreatedAt: u.CreatedAt}
}

func toFileResponse(f *models.File) fileResponse {
	return fileResponse{
		ID:           f.ID,
		Filename:     f.Filename,
		OriginalName: f.OriginalName,
		Size:         f.Size,
		ContentType:  f.ContentType,
		FileType:     f.FileType,
		Folder:       f.Folder,
		UploadTime:   f.UploadTime,
	}
}

func toFileResponses(fs []*models.File) []fileResponse {
	out := make([]fileResponse, 0, len(fs))
	for _, f := range fs {
		out = append(out, toFileResponse(f))
	}
	return out
}

// decodeAndValidate decodes a JSON body into dst and runs struct validation.
func (h *Handler) decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body", common.ErrorValidation)
	}
	if err := h.validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %s", common.ErrorValidation, err.Error())
	}
	return nil
}

// --- auth handlers ---

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.HandleError(w, r, err)
		return
	}

	user, err := h.auth.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	_ = WriteJSON(w, http.StatusCreated, map[string]any{
		"message": "user registered",
		"user":    toUserResponse(user),
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.HandleError(w, r, err)
		return
	}

	pair, user, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, map[string]any{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"user":         toUserResponse(user),
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.HandleError(w, r, err)
		return
	}

	access, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		// A rejected refresh token is a forbidden session, not a plain 401.
		if errors.Is(err, common.ErrInvalidToken) {
			WriteError(w, http.StatusForbidden, "forbidden", "invalid refresh token")
			return
		}
		h.HandleError(w, r, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, map[string]any{"accessToken": access})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		h.HandleError(w, r, common.ErrorMissingToken)
		return
	}

	if err := h.auth.Logout(r.Context(), claims.UserID); err != nil {
		h.HandleError(w, r, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, map[string]any{"message": "logged out"})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		h.HandleError(w, r, common.ErrorMissingToken)
		return
	}

	user, err := h.auth.GetUser(r.Context(), claims.UserID)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, map[string]any{"user": toUserResponse(user)})
}

// --- file handlers ---

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		h.HandleError(w, r, common.ErrorMissingToken)
		return
	}

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "invalid multipart form")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		WriteError(w, http.StatusBadRequest, "validation_error", "at least one file is required")
		return
	}
	if len(headers) > maxUploadFiles {
		WriteError(w, http.StatusBadRequest, "validation_error",
			fmt.Sprintf("too many files: at most %d per request", maxUploadFiles))
		return
	}

	uploads := make([]services.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			h.HandleError(w, r, fmt.Errorf("opening multipart file %q: %w", fh.Filename, err))
			return
		}
		defer f.Close()

		uploads = append(uploads, services.UploadFile{
			OriginalName: fh.Filename,
			ContentType:  fh.Header.Get("Content-Type"),
			Size:         fh.Size,
			Content:      f,
		})
	}

	result, err := h.files.Upload(r.Context(), claims.UserID, r.FormValue("folder"), uploads)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	resp := map[string]any{
		"message": fmt.Sprintf("%d file(s) uploaded", len(result.Created)),
		"files":   toFileResponses(result.Created),
	}
	if len(result.Failed) > 0 {
		failed := make([]uploadFailureResponse, 0, len(result.Failed))
		for _, f := range result.Failed {
			failed = append(failed, uploadFailureResponse{OriginalName: f.OriginalName, Reason: f.Reason})
		}
		resp["failed"] = failed
	}

	_ = WriteJSON(w, http.StatusCreated, resp)
}

// queryInt parses an integer query parameter, falling back on absence or
// garbage. Range normalization happens in the service.
func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		h.HandleError(w, r, common.ErrorMissingToken)
		return
	}

	filter := files.ListFilter{
		Folder:   r.URL.Query().Get("folder"),
		FileType: r.URL.Query().Get("fileType"),
	}

	result, err := h.files.List(r.Context(), claims.UserID, filter, queryInt(r, "page", 1), queryInt(r, "limit", 10))
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, map[string]any{
		"files": toFileResponses(result.Files),
		"pagination": paginationResponse{
			Page:       result.Pagination.Page,
			Limit:      result.Pagination.Limit,
			TotalFiles: result.Pagination.TotalFiles,
			TotalPages: result.Pagination.TotalPages,
			HasNext:    result.Pagination.HasNext,
			HasPrev:    result.Pagination.HasPrev,
		},
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		h.HandleError(w, r, common.ErrorMissingToken)
		return
	}

	file, err := h.files.Get(r.Context(), claims.UserID, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, map[string]any{"file": toFileResponse(file)})
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		h.HandleError(w, r, common.ErrorMissingToken)
		return
	}

	url, validity, err := h.files.DownloadLink(r.Context(), claims.UserID, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, map[string]any{
		"downloadUrl": url,
		"expiresIn":   int(validity.Seconds()),
	})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		h.HandleError(w, r, common.ErrorMissingToken)
		return
	}

	name, err := h.files.Delete(r.Context(), claims.UserID, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, map[string]any{
		"message":      "file deleted",
		"originalName": name,
	})
}

func (h *Handler) handleFolders(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		h.HandleError(w, r, common.ErrorMissingToken)
		return
	}

	folders, err := h.files.Folders(r.Context(), claims.UserID)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, map[string]any{"folders": folders})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
