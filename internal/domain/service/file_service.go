package service

import (
	"context"
	"io"
)

// FileUploadService stores message attachments and returns a URL the
// message can reference.
type FileUploadService interface {
	UploadFile(ctx context.Context, file io.Reader, fileType, folder string, isPublic bool) (string, error)
	DeleteFile(ctx context.Context, fileURL string) error
	Close() error
}
