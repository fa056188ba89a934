package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"homelink/pkg/errors"
)

const publicURLPrefix = "https://storage.googleapis.com/"

// AttachmentExtensions lists the content types accepted for message
// attachments and the extension each is stored with.
var AttachmentExtensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/jpg":       ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

type CloudStorageClient struct {
	client     *storage.Client
	bucketName string
}

// NewCloudStorageClient opens bucketName with opts, usually the Firebase
// app's credentials.
func NewCloudStorageClient(ctx context.Context, bucketName string, opts ...option.ClientOption) (*CloudStorageClient, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &CloudStorageClient{
		client:     client,
		bucketName: bucketName,
	}, nil
}

// UploadFile streams file into the bucket and returns its public URL.
// Private uploads return the same URL shape but stay unreadable without
// credentials.
func (c *CloudStorageClient) UploadFile(ctx context.Context, file io.Reader, fileType, folder string, isPublic bool) (string, error) {
	name, err := objectName(folder, fileType, isPublic)
	if err != nil {
		return "", err
	}

	obj := c.client.Bucket(c.bucketName).Object(name)
	wc := obj.NewWriter(ctx)
	wc.ContentType = fileType
	wc.CacheControl = "private, max-age=86400"
	if isPublic {
		wc.PredefinedACL = "publicRead"
		wc.CacheControl = "public, max-age=86400"
	}

	if _, err := io.Copy(wc, file); err != nil {
		wc.Close()
		return "", errors.StoreUnavailable("Failed to upload attachment", err)
	}
	if err := wc.Close(); err != nil {
		return "", errors.StoreUnavailable("Failed to upload attachment", err)
	}

	return publicURLPrefix + c.bucketName + "/" + name, nil
}

func (c *CloudStorageClient) DeleteFile(ctx context.Context, fileURL string) error {
	name, err := parseObjectURL(fileURL, c.bucketName)
	if err != nil {
		return err
	}

	if err := c.client.Bucket(c.bucketName).Object(name).Delete(ctx); err != nil {
		if err == storage.ErrObjectNotExist {
			return errors.NotFound("Attachment", err)
		}
		return errors.StoreUnavailable("Failed to delete attachment", err)
	}
	return nil
}

func (c *CloudStorageClient) Close() error {
	return c.client.Close()
}

func objectName(folder, fileType string, isPublic bool) (string, error) {
	ext, ok := AttachmentExtensions[fileType]
	if !ok {
		return "", errors.InvalidInput(fmt.Sprintf("unsupported attachment type %q", fileType), nil)
	}

	folder = strings.Trim(folder, "/")
	if !strings.HasPrefix(folder, "public/") && !strings.HasPrefix(folder, "private/") {
		if isPublic {
			folder = "public/" + folder
		} else {
			folder = "private/" + folder
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", errors.Internal("Failed to name attachment", err)
	}
	return folder + "/" + id.String() + ext, nil
}

func parseObjectURL(fileURL, bucket string) (string, error) {
	if !strings.HasPrefix(fileURL, publicURLPrefix) {
		return "", errors.InvalidInput("invalid attachment URL", nil)
	}

	parts := strings.SplitN(strings.TrimPrefix(fileURL, publicURLPrefix), "/", 2)
	if len(parts) != 2 || parts[0] != bucket || parts[1] == "" {
		return "", errors.InvalidInput("attachment URL does not belong to this bucket", nil)
	}
	return parts[1], nil
}
