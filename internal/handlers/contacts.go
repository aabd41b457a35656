package handlers

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/fileapp/backend/internal/middleware"
	"github.com/fileapp/backend/internal/models"
	"github.com/fileapp/backend/pkg/logger"
	"github.com/fileapp/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ContactsHandler struct {
	DB *gorm.DB
}

func NewContactsHandler(db *gorm.DB) *ContactsHandler {
	return &ContactsHandler{DB: db}
}

// ownerScoped filters every contact query by the authenticated user so rows of
// other users are indistinguishable from absent ones.
func (h *ContactsHandler) ownerScoped(c *fiber.Ctx) *gorm.DB {
	currentUser := middleware.GetCurrentUser(c)
	return h.DB.Model(&models.Contact{}).Where("user_id = ?", currentUser.ID)
}

func (h *ContactsHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.ErrorWithCode(c, fiber.StatusUnauthorized, "invalid token", middleware.CodeTokenInvalid)
	}

	p := utils.ParsePagination(c)

	query := h.ownerScoped(c)

	search := strings.TrimSpace(c.Query("search"))
	if search != "" {
		searchValue := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(company) LIKE ?",
			searchValue,
			searchValue,
			searchValue,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.ErrorWithUser(currentUser.ID.String(), "contacts_count_failed", err, nil)
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting contacts")
	}

	// Insertion order keeps page boundaries stable between calls.
	var contacts []models.Contact
	if err := utils.ApplyPagination(query.Order("created_at ASC, id ASC"), p).Find(&contacts).Error; err != nil {
		logger.ErrorWithUser(currentUser.ID.String(), "contacts_list_failed", err, nil)
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing contacts")
	}

	return utils.Paginated(c, contacts, p.Page, p.PerPage, total)
}

func (h *ContactsHandler) Get(c *fiber.Ctx) error {
	if middleware.GetCurrentUser(c) == nil {
		return utils.ErrorWithCode(c, fiber.StatusUnauthorized, "invalid token", middleware.CodeTokenInvalid)
	}

	contactID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid contact id")
	}

	var contact models.Contact
	if err := h.ownerScoped(c).First(&contact, "id = ?", contactID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "contact not found")
		}
		logger.Error("contact_fetch_failed", err, map[string]interface{}{"contact_id": contactID})
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching contact")
	}

	return utils.Success(c, fiber.StatusOK, contact)
}

type createContactRequest struct {
	FirstName    string          `json:"first_name"`
	LastName     string          `json:"last_name"`
	Address      string          `json:"address"`
	Company      string          `json:"company"`
	PhoneNumbers json.RawMessage `json:"phone_numbers"`
}

func (h *ContactsHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.ErrorWithCode(c, fiber.StatusUnauthorized, "invalid token", middleware.CodeTokenInvalid)
	}

	var req createContactRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if req.FirstName == "" || req.LastName == "" {
		return utils.Error(c, fiber.StatusBadRequest, "first_name and last_name are required")
	}

	phoneNumbers, err := utils.NormalizePhoneNumbers(req.PhoneNumbers)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	}

	contact := models.Contact{
		UserID:       currentUser.ID,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Address:      req.Address,
		Company:      req.Company,
		PhoneNumbers: phoneNumbers,
	}

	if err := h.DB.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&contact).Error
	}); err != nil {
		logger.ErrorWithUser(currentUser.ID.String(), "contact_create_failed", err, map[string]interface{}{
			"request_id": getRequestID(c),
		})
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating contact")
	}

	logger.InfoWithUser(currentUser.ID.String(), "contact_created", map[string]interface{}{
		"contact_id": contact.ID.String(),
	})

	return utils.Success(c, fiber.StatusCreated, contact)
}

// updateContactRequest distinguishes absent fields from explicitly empty ones:
// a nil pointer leaves the stored value untouched.
type updateContactRequest struct {
	FirstName    *string         `json:"first_name"`
	LastName     *string         `json:"last_name"`
	Address      *string         `json:"address"`
	Company      *string         `json:"company"`
	PhoneNumbers json.RawMessage `json:"phone_numbers"`
}

func (r *updateContactRequest) empty() bool {
	return r.FirstName == nil && r.LastName == nil && r.Address == nil &&
		r.Company == nil && len(r.PhoneNumbers) == 0
}

func (h *ContactsHandler) Update(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.ErrorWithCode(c, fiber.StatusUnauthorized, "invalid token", middleware.CodeTokenInvalid)
	}

	contactID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid contact id")
	}

	var req updateContactRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.empty() {
		return utils.Error(c, fiber.StatusBadRequest, "no fields to update")
	}

	updates := map[string]interface{}{}
	if req.FirstName != nil {
		value := strings.TrimSpace(*req.FirstName)
		if value == "" {
			return utils.Error(c, fiber.StatusBadRequest, "first_name cannot be empty")
		}
		updates["first_name"] = value
	}
	if req.LastName != nil {
		value := strings.TrimSpace(*req.LastName)
		if value == "" {
			return utils.Error(c, fiber.StatusBadRequest, "last_name cannot be empty")
		}
		updates["last_name"] = value
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.Company != nil {
		updates["company"] = *req.Company
	}
	if len(req.PhoneNumbers) > 0 {
		phoneNumbers, err := utils.NormalizePhoneNumbers(req.PhoneNumbers)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, err.Error())
		}
		updates["phone_numbers"] = models.PhoneNumberList(phoneNumbers)
	}

	var notFound bool
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Contact{}).
			Where("id = ? AND user_id = ?", contactID, currentUser.ID).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			notFound = true
			return errors.New("contact not found")
		}
		return nil
	})
	if notFound {
		return utils.Error(c, fiber.StatusNotFound, "contact not found")
	}
	if err != nil {
		logger.ErrorWithUser(currentUser.ID.String(), "contact_update_failed", err, map[string]interface{}{
			"contact_id": contactID.String(),
			"request_id": getRequestID(c),
		})
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating contact")
	}

	var contact models.Contact
	if err := h.ownerScoped(c).First(&contact, "id = ?", contactID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching updated contact")
	}

	return utils.Success(c, fiber.StatusOK, contact)
}

func (h *ContactsHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.ErrorWithCode(c, fiber.StatusUnauthorized, "invalid token", middleware.CodeTokenInvalid)
	}

	contactID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid contact id")
	}

	var notFound bool
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.Contact{}, "id = ? AND user_id = ?", contactID, currentUser.ID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			notFound = true
			return errors.New("contact not found")
		}
		return nil
	})
	if notFound {
		return utils.Error(c, fiber.StatusNotFound, "contact not found")
	}
	if err != nil {
		logger.ErrorWithUser(currentUser.ID.String(), "contact_delete_failed", err, map[string]interface{}{
			"contact_id": contactID.String(),
			"request_id": getRequestID(c),
		})
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting contact")
	}

	logger.InfoWithUser(currentUser.ID.String(), "contact_deleted", map[string]interface{}{
		"contact_id": contactID.String(),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "contact deleted"})
}
