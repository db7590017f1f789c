package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/shelf/internal/library"
)

const maxUploadBytes = 50 << 20 // 50 MB

// FileHandler serves stored blobs and accepts image uploads.
type FileHandler struct {
	lib *library.Library
}

// NewFileHandler creates a handler over the library's files.
func NewFileHandler(lib *library.Library) *FileHandler {
	return &FileHandler{lib: lib}
}

// safeName validates that an uploaded file name is a plain name (no path
// separators, no traversal).
func safeName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("filename is required")
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("invalid filename: %s", name)
	}
	return cleaned, nil
}

// ServeFile handles GET /files/{id}.
func (h *FileHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	file, ok := h.lib.Files.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	data, err := h.lib.Bridge().ReadBlob(r.Context(), id)
	if errors.Is(err, os.ErrNotExist) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		writeError(w, "read blob", err)
		return
	}
	contentType := file.Type
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", contentType)
	if file.Name != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", file.Name))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Upload handles POST /api/files (multipart/form-data, field "file"). The
// optional fields "parentID" and "description" place and describe the image
// node that owns the stored file.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	name, err := safeName(header.Filename)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to read file"))
		return
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	node, err := h.lib.CreateImage(r.Context(), r.FormValue("parentID"), library.ImageUpload{
		Name:        name,
		ContentType: contentType,
		Description: r.FormValue("description"),
		Data:        data,
	})
	if err != nil {
		writeError(w, "upload image", err)
		return
	}
	writeJSON(w, http.StatusCreated, node)
}
