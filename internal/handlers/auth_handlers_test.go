package handlers

import (
	"net/http"
	"testing"

	"github.com/fileapp/backend/internal/models"
	"github.com/fileapp/backend/pkg/utils"
)

func TestAuthEndpoints(t *testing.T) {
	env := setupTestEnv(t)

	t.Run("POST /api/auth/register", func(t *testing.T) {
		t.Run("success creates user and token", func(t *testing.T) {
			resp := performJSONRequest(t, env.app, http.MethodPost, "/api/auth/register", map[string]any{
				"email":         "register-success@test.com",
				"password":      "password123",
				"first_name":    "Reg",
				"last_name":     "Ister",
				"date_of_birth": "1990-04-01",
			}, nil)
			body := decodeJSONMap(t, resp)
			assertStatus(t, resp, http.StatusCreated)

			data := body["data"].(map[string]any)
			if _, ok := data["token"].(string); !ok {
				t.Fatalf("expected token string in response, got %+v", data)
			}
			user := data["user"].(map[string]any)
			if _, hasHash := user["password_hash"]; hasHash {
				t.Fatal("password hash must never be serialized")
			}
			if user["storage_used"].(float64) != 0 {
				t.Fatalf("expected fresh user with storage_used=0, got %v", user["storage_used"])
			}
		})

		t.Run("duplicate email returns conflict", func(t *testing.T) {
			createTestUser(t, env.db, "register-duplicate@test.com", "password123")
			resp := performJSONRequest(t, env.app, http.MethodPost, "/api/auth/register", map[string]any{
				"email":      "register-duplicate@test.com",
				"password":   "password123",
				"first_name": "Dup",
				"last_name":  "User",
			}, nil)
			body := decodeJSONMap(t, resp)
			assertStatus(t, resp, http.StatusConflict)
			assertEnvelopeError(t, body, "email already registered")
		})

		t.Run("bad date of birth returns bad request", func(t *testing.T) {
			resp := performJSONRequest(t, env.app, http.MethodPost, "/api/auth/register", map[string]any{
				"email":         "register-dob@test.com",
				"password":      "password123",
				"first_name":    "Bad",
				"last_name":     "Date",
				"date_of_birth": "01/04/1990",
			}, nil)
			body := decodeJSONMap(t, resp)
			assertStatus(t, resp, http.StatusBadRequest)
			assertEnvelopeError(t, body, "date_of_birth must be YYYY-MM-DD")
		})

		t.Run("short password returns bad request", func(t *testing.T) {
			resp := performJSONRequest(t, env.app, http.MethodPost, "/api/auth/register", map[string]any{
				"email":      "register-short@test.com",
				"password":   "short",
				"first_name": "Short",
				"last_name":  "Password",
			}, nil)
			body := decodeJSONMap(t, resp)
			assertStatus(t, resp, http.StatusBadRequest)
			assertEnvelopeError(t, body, "password must be at least 8 characters")
		})
	})

	t.Run("POST /api/auth/login", func(t *testing.T) {
		createTestUser(t, env.db, "login@test.com", "password123")

		t.Run("success returns token", func(t *testing.T) {
			resp := performJSONRequest(t, env.app, http.MethodPost, "/api/auth/login", map[string]any{
				"email":    "login@test.com",
				"password": "password123",
			}, nil)
			body := decodeJSONMap(t, resp)
			assertStatus(t, resp, http.StatusOK)
			if _, ok := body["data"].(map[string]any)["token"].(string); !ok {
				t.Fatal("expected token in login response")
			}
		})

		t.Run("wrong password returns unauthorized", func(t *testing.T) {
			resp := performJSONRequest(t, env.app, http.MethodPost, "/api/auth/login", map[string]any{
				"email":    "login@test.com",
				"password": "wrongpassword",
			}, nil)
			body := decodeJSONMap(t, resp)
			assertStatus(t, resp, http.StatusUnauthorized)
			assertEnvelopeError(t, body, "invalid credentials")
		})
	})

	t.Run("GET /api/auth/me credential outcomes", func(t *testing.T) {
		user, token := createTestUser(t, env.db, "me@test.com", "password123")

		t.Run("valid token", func(t *testing.T) {
			resp := performRequest(t, env.app, http.MethodGet, "/api/auth/me", nil, authHeaders(token))
			body := decodeJSONMap(t, resp)
			assertStatus(t, resp, http.StatusOK)
			if body["data"].(map[string]any)["email"] != "me@test.com" {
				t.Fatalf("unexpected user %+v", body["data"])
			}
		})

		t.Run("missing credential is distinguishable", func(t *testing.T) {
			resp := performRequest(t, env.app, http.MethodGet, "/api/auth/me", nil, nil)
			body := decodeJSONMap(t, resp)
			assertStatus(t, resp, http.StatusUnauthorized)
			assertErrorCode(t, body, "token_missing")
		})

		t.Run("invalid credential is distinguishable", func(t *testing.T) {
			resp := performRequest(t, env.app, http.MethodGet, "/api/auth/me", nil, authHeaders("garbage.token.value"))
			body := decodeJSONMap(t, resp)
			assertStatus(t, resp, http.StatusUnauthorized)
			assertErrorCode(t, body, "token_invalid")
		})

		t.Run("expired credential is distinguishable", func(t *testing.T) {
			expired, err := utils.GenerateExpiredToken(user)
			if err != nil {
				t.Fatalf("failed generating expired token: %v", err)
			}
			resp := performRequest(t, env.app, http.MethodGet, "/api/auth/me", nil, authHeaders(expired))
			body := decodeJSONMap(t, resp)
			assertStatus(t, resp, http.StatusUnauthorized)
			assertErrorCode(t, body, "token_expired")
		})
	})

	t.Run("password reset flow", func(t *testing.T) {
		user, _ := createTestUser(t, env.db, "reset@test.com", "password123")

		t.Run("unknown email still answers 200", func(t *testing.T) {
			resp := performJSONRequest(t, env.app, http.MethodPost, "/api/auth/forgot-password", map[string]any{
				"email": "nobody@test.com",
			}, nil)
			assertStatus(t, resp, http.StatusOK)
			resp.Body.Close()
		})

		t.Run("known email stores token and sends mail", func(t *testing.T) {
			resp := performJSONRequest(t, env.app, http.MethodPost, "/api/auth/forgot-password", map[string]any{
				"email": "reset@test.com",
			}, nil)
			assertStatus(t, resp, http.StatusOK)
			resp.Body.Close()

			sent := env.mailer.waitForMail(t, 1)
			if sent[len(sent)-1].Kind != "password_reset" {
				t.Fatalf("expected password reset mail, got %+v", sent)
			}

			var refreshed models.User
			if err := env.db.First(&refreshed, "id = ?", user.ID).Error; err != nil {
				t.Fatalf("failed reloading user: %v", err)
			}
			if refreshed.ResetToken == nil || *refreshed.ResetToken == "" {
				t.Fatal("expected stored reset token")
			}

			resetResp := performJSONRequest(t, env.app, http.MethodPost, "/api/auth/reset-password", map[string]any{
				"token":    *refreshed.ResetToken,
				"password": "newpassword456",
			}, nil)
			assertStatus(t, resetResp, http.StatusOK)
			resetResp.Body.Close()

			loginResp := performJSONRequest(t, env.app, http.MethodPost, "/api/auth/login", map[string]any{
				"email":    "reset@test.com",
				"password": "newpassword456",
			}, nil)
			assertStatus(t, loginResp, http.StatusOK)
			loginResp.Body.Close()
		})

		t.Run("reset token is single use", func(t *testing.T) {
			resp := performJSONRequest(t, env.app, http.MethodPost, "/api/auth/reset-password", map[string]any{
				"token":    "already-used-or-bogus",
				"password": "anotherpassword789",
			}, nil)
			body := decodeJSONMap(t, resp)
			assertStatus(t, resp, http.StatusBadRequest)
			assertEnvelopeError(t, body, "invalid or already used reset token")
		})
	})
}

func TestHealthEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	for _, path := range []string{"/health", "/api/health"} {
		resp := performRequest(t, env.app, http.MethodGet, path, nil, nil)
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		if body["status"] != "ok" {
			t.Fatalf("expected liveness ok at %s, got %+v", path, body)
		}
	}
}
