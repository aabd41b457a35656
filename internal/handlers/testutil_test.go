package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fileapp/backend/internal/database"
	"github.com/fileapp/backend/internal/middleware"
	"github.com/fileapp/backend/internal/models"
	"github.com/fileapp/backend/internal/storage"
	"github.com/fileapp/backend/pkg/logger"
	"github.com/fileapp/backend/pkg/utils"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

type sentMail struct {
	Kind      string
	Recipient string
	URL       string
}

// fakeMailer records outbound mail instead of dialing SMTP. Safe for the
// async sends the handlers do.
type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (f *fakeMailer) SendShareNotification(ctx context.Context, recipient, senderName, filename, shareURL, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{Kind: "share", Recipient: recipient, URL: shareURL})
	return nil
}

func (f *fakeMailer) SendPasswordReset(ctx context.Context, recipient, resetURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{Kind: "password_reset", Recipient: recipient, URL: resetURL})
	return nil
}

// waitForMail polls until n messages have been recorded or the deadline hits.
func (f *fakeMailer) waitForMail(t *testing.T, n int) []sentMail {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f.mu.Lock()
		if len(f.sent) >= n {
			sent := append([]sentMail(nil), f.sent...)
			f.mu.Unlock()
			return sent
		}
		f.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d sent mails before deadline", n)
	return nil
}

type testEnv struct {
	app    *fiber.App
	db     *gorm.DB
	mailer *fakeMailer
}

var testSetupOnce sync.Once

const testFrontendURL = "http://localhost:3000"

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		logger.Init()
		utils.ConfigureJWT("test-secret", 24)
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	storageClient, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed creating local storage: %v", err)
	}

	mailer := &fakeMailer{}

	authHandler := NewAuthHandler(db, mailer, testFrontendURL)
	contactsHandler := NewContactsHandler(db)
	filesHandler := NewFilesHandler(db, storageClient)
	sharesHandler := NewSharesHandler(db, storageClient, mailer, testFrontendURL)
	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New(fiber.Config{BodyLimit: 10 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS(testFrontendURL))
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	health := func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	}
	app.Get("/health", health)

	api := app.Group("/api")
	api.Get("/health", health)

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)
	authRoutes.Post("/forgot-password", authHandler.ForgotPassword)
	authRoutes.Post("/reset-password", authHandler.ResetPassword)

	contactRoutes := api.Group("/contacts", authMiddleware.RequireAuth)
	contactRoutes.Get("/", contactsHandler.List)
	contactRoutes.Post("/", contactsHandler.Create)
	contactRoutes.Get("/:id", contactsHandler.Get)
	contactRoutes.Put("/:id", contactsHandler.Update)
	contactRoutes.Delete("/:id", contactsHandler.Delete)

	fileRoutes := api.Group("/files", authMiddleware.RequireAuth)
	fileRoutes.Post("/upload", filesHandler.Upload)
	fileRoutes.Get("/", filesHandler.List)
	fileRoutes.Get("/:id/download", filesHandler.Download)
	fileRoutes.Post("/:id/share", sharesHandler.Create)
	fileRoutes.Get("/:id", filesHandler.Get)
	fileRoutes.Delete("/:id", filesHandler.Delete)

	shareRoutes := api.Group("/shares", authMiddleware.RequireAuth)
	shareRoutes.Get("/", sharesHandler.List)
	shareRoutes.Delete("/:id", sharesHandler.Delete)

	api.Get("/share/:token", sharesHandler.Resolve)
	api.Get("/share/:token/download", sharesHandler.DownloadShared)

	return &testEnv{app: app, db: db, mailer: mailer}
}

func createTestUser(t *testing.T, db *gorm.DB, email, password string) (*models.User, string) {
	t.Helper()

	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}

	user := &models.User{
		FirstName:    "Test",
		LastName:     "User",
		Email:        email,
		PasswordHash: hash,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating test user: %v", err)
	}

	token, err := utils.GenerateToken(user)
	if err != nil {
		t.Fatalf("failed generating auth token: %v", err)
	}

	return user, token
}

func createTestContact(t *testing.T, db *gorm.DB, user *models.User, firstName, lastName, company string) *models.Contact {
	t.Helper()

	contact := &models.Contact{
		UserID:       user.ID,
		FirstName:    firstName,
		LastName:     lastName,
		Company:      company,
		PhoneNumbers: models.PhoneNumberList{},
	}
	if err := db.Create(contact).Error; err != nil {
		t.Fatalf("failed creating test contact: %v", err)
	}
	return contact
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}

	return performRequest(t, app, method, path, body, requestHeaders)
}

func uploadTestFile(t *testing.T, app *fiber.App, token, filename, content string) map[string]any {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed creating multipart form file: %v", err)
	}
	if _, err := io.WriteString(part, content); err != nil {
		t.Fatalf("failed writing multipart content: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed closing multipart writer: %v", err)
	}

	headers := authHeaders(token)
	headers["Content-Type"] = writer.FormDataContentType()

	resp := performRequest(t, app, http.MethodPost, "/api/files/upload", &buf, headers)
	body := decodeJSONMap(t, resp)
	assertStatus(t, resp, http.StatusCreated)

	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected file record in upload response, got %+v", body)
	}
	return data
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}

	return payload
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

func assertEnvelopeError(t *testing.T, body map[string]any, expected string) {
	t.Helper()
	if success, _ := body["success"].(bool); success {
		t.Fatalf("expected success=false, got %+v", body)
	}
	if got, _ := body["error"].(string); got != expected {
		t.Fatalf("expected error %q, got %q", expected, got)
	}
}

func assertErrorCode(t *testing.T, body map[string]any, expected string) {
	t.Helper()
	if got, _ := body["code"].(string); got != expected {
		t.Fatalf("expected code %q, got %q", expected, got)
	}
}
