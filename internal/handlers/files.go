package handlers

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/fileapp/backend/internal/middleware"
	"github.com/fileapp/backend/internal/models"
	"github.com/fileapp/backend/internal/storage"
	"github.com/fileapp/backend/pkg/logger"
	"github.com/fileapp/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FilesHandler struct {
	DB      *gorm.DB
	Storage storage.Storage
}

func NewFilesHandler(db *gorm.DB, storageClient storage.Storage) *FilesHandler {
	return &FilesHandler{DB: db, Storage: storageClient}
}

func (h *FilesHandler) Upload(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.ErrorWithCode(c, fiber.StatusUnauthorized, "invalid token", middleware.CodeTokenInvalid)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "file is required")
	}

	originalFilename := filepath.Base(strings.TrimSpace(fileHeader.Filename))
	if originalFilename == "" || originalFilename == "." {
		return utils.Error(c, fiber.StatusBadRequest, "invalid filename")
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(originalFilename))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	stream, err := fileHeader.Open()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed opening uploaded file")
	}
	defer stream.Close()

	// A fresh uuid per upload keeps stored names collision-free even when two
	// users upload the same filename.
	storedFilename := uuid.New().String() + filepath.Ext(originalFilename)

	if err := h.Storage.Save(c.Context(), storedFilename, stream, fileHeader.Size, contentType); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed storing file")
	}

	entry := models.File{
		OriginalFilename: originalFilename,
		StoredFilename:   storedFilename,
		FileSize:         fileHeader.Size,
		UserID:           currentUser.ID,
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", currentUser.ID).
			UpdateColumn("storage_used", gorm.Expr("storage_used + ?", fileHeader.Size)).Error
	})
	if err != nil {
		_ = h.Storage.Delete(c.Context(), storedFilename)
		logger.ErrorWithUser(currentUser.ID.String(), "file_record_create_failed", err, map[string]interface{}{
			"stored_filename": storedFilename,
			"request_id":      getRequestID(c),
		})
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating file record")
	}

	logger.InfoWithUser(currentUser.ID.String(), "file_uploaded", map[string]interface{}{
		"file_id":   entry.ID.String(),
		"file_name": originalFilename,
		"file_size": fileHeader.Size,
	})

	return utils.Success(c, fiber.StatusCreated, entry)
}

func (h *FilesHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.ErrorWithCode(c, fiber.StatusUnauthorized, "invalid token", middleware.CodeTokenInvalid)
	}

	p := utils.ParsePagination(c)

	query := h.DB.Model(&models.File{}).Where("user_id = ?", currentUser.ID)

	search := strings.TrimSpace(c.Query("search"))
	if search != "" {
		query = query.Where("LOWER(original_filename) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting files")
	}

	var files []models.File
	if err := utils.ApplyPagination(query.Order("created_at DESC, id ASC"), p).Find(&files).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing files")
	}

	return utils.Paginated(c, files, p.Page, p.PerPage, total)
}

func (h *FilesHandler) Get(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.ErrorWithCode(c, fiber.StatusUnauthorized, "invalid token", middleware.CodeTokenInvalid)
	}

	fileID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid file id")
	}

	var file models.File
	if err := h.DB.First(&file, "id = ? AND user_id = ?", fileID, currentUser.ID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "file not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching file")
	}

	return utils.Success(c, fiber.StatusOK, file)
}

func (h *FilesHandler) Download(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.ErrorWithCode(c, fiber.StatusUnauthorized, "invalid token", middleware.CodeTokenInvalid)
	}

	fileID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid file id")
	}

	var file models.File
	if err := h.DB.First(&file, "id = ? AND user_id = ?", fileID, currentUser.ID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "file not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching file")
	}

	return streamFile(c, h.Storage, &file)
}

func streamFile(c *fiber.Ctx, store storage.Storage, file *models.File) error {
	stream, err := store.Open(c.Context(), file.StoredFilename)
	if err != nil {
		logger.Error("file_content_missing", err, map[string]interface{}{
			"file_id":         file.ID.String(),
			"stored_filename": file.StoredFilename,
		})
		return utils.Error(c, fiber.StatusInternalServerError, "failed opening file content")
	}

	contentType := mime.TypeByExtension(filepath.Ext(file.OriginalFilename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", file.OriginalFilename))
	return c.SendStream(stream, int(file.FileSize))
}

func (h *FilesHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.ErrorWithCode(c, fiber.StatusUnauthorized, "invalid token", middleware.CodeTokenInvalid)
	}

	fileID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid file id")
	}

	var file models.File
	if err := h.DB.First(&file, "id = ? AND user_id = ?", fileID, currentUser.ID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "file not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching file")
	}

	// Shares, row and quota move together or not at all; the stored bytes are
	// removed after the commit so a failed transaction never orphans the row.
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Share{}, "file_id = ?", file.ID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.File{}, "id = ?", file.ID).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", currentUser.ID).
			UpdateColumn("storage_used", gorm.Expr("storage_used - ?", file.FileSize)).Error
	})
	if err != nil {
		logger.ErrorWithUser(currentUser.ID.String(), "file_delete_failed", err, map[string]interface{}{
			"file_id":    file.ID.String(),
			"request_id": getRequestID(c),
		})
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting file")
	}

	if err := h.Storage.Delete(c.Context(), file.StoredFilename); err != nil {
		logger.ErrorWithUser(currentUser.ID.String(), "file_content_cleanup_failed", err, map[string]interface{}{
			"stored_filename": file.StoredFilename,
		})
	}

	logger.InfoWithUser(currentUser.ID.String(), "file_deleted", map[string]interface{}{
		"file_id":   file.ID.String(),
		"file_name": file.OriginalFilename,
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "file deleted"})
}
