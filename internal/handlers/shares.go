package handlers

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/fileapp/backend/internal/middleware"
	"github.com/fileapp/backend/internal/models"
	"github.com/fileapp/backend/internal/services"
	"github.com/fileapp/backend/internal/storage"
	"github.com/fileapp/backend/pkg/logger"
	"github.com/fileapp/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const (
	defaultShareExpiryHours = 24
	maxShareExpiryHours     = 24 * 30
)

type SharesHandler struct {
	DB          *gorm.DB
	Storage     storage.Storage
	Mailer      services.Mailer
	FrontendURL string
}

func NewSharesHandler(db *gorm.DB, storageClient storage.Storage, mailer services.Mailer, frontendURL string) *SharesHandler {
	return &SharesHandler{DB: db, Storage: storageClient, Mailer: mailer, FrontendURL: frontendURL}
}

type createShareRequest struct {
	RecipientEmail string  `json:"recipient_email"`
	Message        *string `json:"message"`
	ExpiresInHours int     `json:"expires_in_hours"`
}

func (h *SharesHandler) Create(c *fiber.Ctx) error {
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
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading file")
	}

	var req createShareRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.RecipientEmail = strings.ToLower(strings.TrimSpace(req.RecipientEmail))
	if _, err := mail.ParseAddress(req.RecipientEmail); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid recipient email")
	}

	expiresInHours := req.ExpiresInHours
	if expiresInHours == 0 {
		expiresInHours = defaultShareExpiryHours
	}
	if expiresInHours < 1 || expiresInHours > maxShareExpiryHours {
		return utils.Error(c, fiber.StatusBadRequest, "expires_in_hours must be between 1 and 720")
	}

	shareToken, err := utils.GenerateShareToken()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating share token")
	}

	share := models.Share{
		FileID:         file.ID,
		UserID:         currentUser.ID,
		RecipientEmail: req.RecipientEmail,
		ShareToken:     shareToken,
		Message:        req.Message,
		ExpiresAt:      time.Now().Add(time.Duration(expiresInHours) * time.Hour),
	}

	if err := h.DB.Create(&share).Error; err != nil {
		logger.ErrorWithUser(currentUser.ID.String(), "share_create_failed", err, map[string]interface{}{
			"file_id":    file.ID.String(),
			"request_id": getRequestID(c),
		})
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating share")
	}

	shareURL := fmt.Sprintf("%s/share/%s", h.FrontendURL, shareToken)
	message := ""
	if req.Message != nil {
		message = *req.Message
	}
	senderName := currentUser.FirstName + " " + currentUser.LastName
	go func() {
		if err := h.Mailer.SendShareNotification(context.Background(), share.RecipientEmail, senderName, file.OriginalFilename, shareURL, message); err != nil {
			logger.Error("share_mail_failed", err, map[string]interface{}{
				"share_id": share.ID.String(),
			})
		}
	}()

	logger.InfoWithUser(currentUser.ID.String(), "file_shared", map[string]interface{}{
		"share_id":        share.ID.String(),
		"file_id":         file.ID.String(),
		"recipient_email": share.RecipientEmail,
		"expires_at":      share.ExpiresAt,
	})

	return utils.Success(c, fiber.StatusCreated, fiber.Map{"share": share, "share_url": shareURL})
}

func (h *SharesHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.ErrorWithCode(c, fiber.StatusUnauthorized, "invalid token", middleware.CodeTokenInvalid)
	}

	p := utils.ParsePagination(c)

	query := h.DB.Model(&models.Share{}).Where("user_id = ?", currentUser.ID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting shares")
	}

	var shares []models.Share
	if err := utils.ApplyPagination(query.Preload("File").Order("created_at DESC, id ASC"), p).Find(&shares).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing shares")
	}

	return utils.Paginated(c, shares, p.Page, p.PerPage, total)
}

func (h *SharesHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.ErrorWithCode(c, fiber.StatusUnauthorized, "invalid token", middleware.CodeTokenInvalid)
	}

	shareID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid share id")
	}

	result := h.DB.Delete(&models.Share{}, "id = ? AND user_id = ?", shareID, currentUser.ID)
	if result.Error != nil {
		logger.ErrorWithUser(currentUser.ID.String(), "share_delete_failed", result.Error, map[string]interface{}{
			"share_id":   shareID.String(),
			"request_id": getRequestID(c),
		})
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting share")
	}
	if result.RowsAffected == 0 {
		return utils.Error(c, fiber.StatusNotFound, "share not found")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "share revoked"})
}

// loadShareByToken resolves the unauthenticated share lookup. The token is the
// sole credential; expired shares stay in the table but are refused here.
func (h *SharesHandler) loadShareByToken(c *fiber.Ctx) (*models.Share, error) {
	token := strings.TrimSpace(c.Params("token"))
	if token == "" {
		return nil, utils.Error(c, fiber.StatusBadRequest, "invalid share token")
	}

	var share models.Share
	if err := h.DB.Preload("File").First(&share, "share_token = ?", token).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.Error(c, fiber.StatusNotFound, "share not found")
		}
		return nil, utils.Error(c, fiber.StatusInternalServerError, "failed loading share")
	}

	if share.IsExpired(time.Now()) {
		logger.Warn("share_expired_access_attempt", map[string]interface{}{
			"share_id": share.ID.String(),
			"ip":       c.IP(),
		})
		return nil, utils.ErrorWithCode(c, fiber.StatusGone, "share link has expired", "share_expired")
	}

	return &share, nil
}

func (h *SharesHandler) recordAccess(share *models.Share) {
	// Atomic SQL increment so concurrent fetches of the same token never lose
	// a count.
	if err := h.DB.Model(&models.Share{}).
		Where("id = ?", share.ID).
		UpdateColumn("access_count", gorm.Expr("access_count + ?", 1)).Error; err != nil {
		logger.Error("share_access_count_failed", err, map[string]interface{}{
			"share_id": share.ID.String(),
		})
	}
}

func (h *SharesHandler) Resolve(c *fiber.Ctx) error {
	share, err := h.loadShareByToken(c)
	if share == nil {
		return err
	}

	h.recordAccess(share)
	share.AccessCount++

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"share": share,
		"file": fiber.Map{
			"id":                share.File.ID,
			"original_filename": share.File.OriginalFilename,
			"file_size":         share.File.FileSize,
		},
	})
}

func (h *SharesHandler) DownloadShared(c *fiber.Ctx) error {
	share, err := h.loadShareByToken(c)
	if share == nil {
		return err
	}

	h.recordAccess(share)

	return streamFile(c, h.Storage, &share.File)
}
