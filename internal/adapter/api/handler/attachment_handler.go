package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"homelink/internal/domain/entity"
	"homelink/internal/domain/repository"
	"homelink/internal/domain/service"
	"homelink/internal/infrastructure/storage"
	"homelink/pkg/errors"
	"homelink/pkg/logger"
	"homelink/pkg/response"
	"homelink/pkg/utils"
)

const defaultMaxAttachmentSize = 10 * 1024 * 1024

type AttachmentHandler struct {
	fileService      service.FileUploadService
	fileMetadataRepo repository.FileMetadataRepository
	maxFileSize      int64
	now              func() time.Time
}

func NewAttachmentHandler(fileService service.FileUploadService, fileMetadataRepo repository.FileMetadataRepository) *AttachmentHandler {
	return &AttachmentHandler{
		fileService:      fileService,
		fileMetadataRepo: fileMetadataRepo,
		maxFileSize:      defaultMaxAttachmentSize,
		now:              time.Now,
	}
}

type attachmentResponse struct {
	*entity.FileMetadata
	MessageType string `json:"message_type"`
}

// Upload stores a message attachment and returns the URL and message type
// the client should send with it.
func (h *AttachmentHandler) Upload(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return response.Error(c, errors.InvalidInput("Missing or invalid file", err))
	}

	if file.Size > h.maxFileSize {
		return response.Error(c, errors.InvalidInput(fmt.Sprintf("File size exceeds maximum allowed (%dMB)", h.maxFileSize/(1024*1024)), nil))
	}

	contentType := file.Header.Get(echo.HeaderContentType)
	if _, ok := storage.AttachmentExtensions[contentType]; !ok {
		return response.Error(c, errors.InvalidInput("File type not supported", nil))
	}

	src, err := file.Open()
	if err != nil {
		return response.Error(c, errors.Internal("Failed to read uploaded file", err))
	}
	defer src.Close()

	uid := actorFrom(c).UserID
	url, err := h.fileService.UploadFile(c.Request().Context(), src, contentType, "attachments/"+uid, true)
	if err != nil {
		return response.Error(c, err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return response.Error(c, errors.Internal("Failed to name attachment", err))
	}
	metadata := &entity.FileMetadata{
		ID:          id.String(),
		URL:         url,
		UploadedBy:  uid,
		Filename:    file.Filename,
		ContentType: contentType,
		Size:        file.Size,
		IsPublic:    true,
		CreatedAt:   h.now().UTC(),
	}
	if err := h.fileMetadataRepo.Create(c.Request().Context(), metadata); err != nil {
		// the object is live; an untracked upload only costs storage
		logger.PartialFailure("attachment.record", url, err)
	}
	logger.Info("attachment uploaded by %s: %s (%d bytes)", uid, url, file.Size)

	return response.Created(c, attachmentResponse{
		FileMetadata: metadata,
		MessageType:  messageTypeFor(contentType),
	})
}

func (h *AttachmentHandler) List(c echo.Context) error {
	pagination := utils.GetPaginationParams(c, 20)

	items, total, err := h.fileMetadataRepo.ListByUploader(c.Request().Context(), actorFrom(c).UserID, pagination.PageSize, pagination.Offset)
	if err != nil {
		return response.Error(c, err)
	}
	if items == nil {
		items = []*entity.FileMetadata{}
	}
	return response.Paginated(c, items, total, pagination.Page, pagination.PageSize)
}

// Delete removes an attachment the caller uploaded. Messages that already
// reference it keep the URL and render it as unavailable.
func (h *AttachmentHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	actor := actorFrom(c)

	metadata, err := h.fileMetadataRepo.GetByID(ctx, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	if metadata.UploadedBy != actor.UserID && !actor.IsAdmin() {
		return response.Error(c, errors.Forbidden("You can only delete your own attachments", nil))
	}

	if err := h.fileService.DeleteFile(ctx, metadata.URL); err != nil && !errors.Is(err, errors.CodeNotFound) {
		return response.Error(c, err)
	}
	if err := h.fileMetadataRepo.Delete(ctx, metadata.ID); err != nil {
		return response.Error(c, err)
	}

	logger.Info("attachment %s deleted by %s", metadata.ID, actor.UserID)
	return response.Success(c, map[string]interface{}{
		"id":      metadata.ID,
		"deleted": true,
	})
}

func messageTypeFor(contentType string) string {
	if strings.HasPrefix(contentType, "image/") {
		return entity.MessageTypeImage
	}
	return entity.MessageTypeFile
}
