// Package upload validates and submits source documents for repurposing.
package upload

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/five82/recast/internal/api"
)

// MaxFileSize is the largest accepted upload.
const MaxFileSize = 50 << 20

// Messages shown for failed or successful submissions.
const (
	MsgSuccess = "Content uploaded successfully!"
	MsgFailed  = "Failed to upload content"
)

// allowed maps accepted extensions to the sniffed content type prefix their
// bytes must match. docx and pptx are zip containers.
var allowed = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/zip",
	".pptx": "application/zip",
	".txt":  "text/plain",
}

// Extensions lists accepted file extensions.
func Extensions() []string {
	return []string{".pdf", ".docx", ".pptx", ".txt"}
}

// ValidationError blocks submission of an invalid upload.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Uploader sends a validated upload.
type Uploader interface {
	UploadContent(ctx context.Context, req api.UploadRequest) (api.UploadResponse, error)
}

// LoadFile reads path into a request, refusing oversized files before
// reading them.
func LoadFile(path string) (api.UploadRequest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return api.UploadRequest{}, fmt.Errorf("stat upload file: %w", err)
	}
	if info.IsDir() {
		return api.UploadRequest{}, &ValidationError{Field: "file", Message: "Please select a file to upload"}
	}
	if info.Size() > MaxFileSize {
		return api.UploadRequest{}, &ValidationError{Field: "file", Message: "File too large. Maximum size is 50MB."}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return api.UploadRequest{}, fmt.Errorf("read upload file: %w", err)
	}
	return api.UploadRequest{FileName: filepath.Base(path), File: data}, nil
}

// Validate checks req and normalizes its platforms in place: lowercased,
// deduplicated and in canonical order.
func Validate(req *api.UploadRequest) error {
	if req.FileName == "" || len(req.File) == 0 {
		return &ValidationError{Field: "file", Message: "Please select a file to upload"}
	}
	ext := strings.ToLower(filepath.Ext(req.FileName))
	want, ok := allowed[ext]
	if !ok || !strings.HasPrefix(http.DetectContentType(req.File), want) {
		return &ValidationError{Field: "file", Message: "Invalid file type. Please upload PDF, DOCX, PPTX, or TXT files."}
	}
	if len(req.File) > MaxFileSize {
		return &ValidationError{Field: "file", Message: "File too large. Maximum size is 50MB."}
	}

	selected := make(map[api.Platform]bool, len(req.Platforms))
	for _, p := range req.Platforms {
		parsed, ok := api.ParsePlatform(string(p))
		if !ok {
			return &ValidationError{Field: "platforms", Message: fmt.Sprintf("Unknown platform %q", p)}
		}
		selected[parsed] = true
	}
	if len(selected) == 0 {
		return &ValidationError{Field: "platforms", Message: "Please select at least one platform"}
	}
	platforms := make([]api.Platform, 0, len(selected))
	for _, p := range api.Platforms {
		if selected[p] {
			platforms = append(platforms, p)
		}
	}
	req.Platforms = platforms
	req.Title = strings.TrimSpace(req.Title)
	return nil
}

// Submit validates req and sends it.
func Submit(ctx context.Context, up Uploader, req api.UploadRequest) (api.UploadResponse, error) {
	if err := Validate(&req); err != nil {
		return api.UploadResponse{}, err
	}
	resp, err := up.UploadContent(ctx, req)
	if err != nil {
		return api.UploadResponse{}, fmt.Errorf("upload %s: %w", req.FileName, err)
	}
	return resp, nil
}
