package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"flashgen/internal/domain"
	"flashgen/internal/dto"
	"flashgen/internal/util"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return out
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code domain.ErrorCode
		want int
	}{
		{domain.CodeInvalidRequest, http.StatusBadRequest},
		{domain.CodeMissingField, http.StatusBadRequest},
		{domain.CodeOutOfRange, http.StatusBadRequest},
		{domain.CodeNoValidItems, http.StatusBadRequest},
		{domain.CodeRateLimited, http.StatusTooManyRequests},
		{domain.CodeProviderUnavailable, http.StatusServiceUnavailable},
		{domain.CodeMalformedResponse, http.StatusInternalServerError},
		{domain.CodeNotAnArray, http.StatusInternalServerError},
		{domain.CodeUnsupportedDocument, http.StatusUnsupportedMediaType},
		{domain.CodeInternal, http.StatusInternalServerError},
		{domain.ErrorCode("SOMETHING_NEW"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.code), tt.code)
	}
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantError  string
	}{
		{
			name:       "provider unavailable",
			err:        domain.NewProviderUnavailableError(errors.New("dial tcp: refused")),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "PROVIDER_UNAVAILABLE",
			wantError:  "AI service is temporarily unavailable, please try again later",
		},
		{
			name:       "wrapped malformed response",
			err:        errors.Join(errors.New("attempt 1"), domain.NewMalformedResponseError(errors.New("no json"))),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "MALFORMED_RESPONSE",
			wantError:  "Invalid AI response",
		},
		{
			name:       "no valid items",
			err:        domain.NewNoValidItemsError(),
			wantStatus: http.StatusBadRequest,
			wantCode:   "NO_VALID_ITEMS",
		},
		{
			name:       "fiber error",
			err:        fiber.ErrRequestEntityTooLarge,
			wantStatus: http.StatusRequestEntityTooLarge,
			wantCode:   "PAYLOAD_TOO_LARGE",
		},
		{
			name:       "unknown error hides details",
			err:        errors.New("secret stack detail"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
			wantError:  "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newApp()
			app.Get("/", func(c *fiber.Ctx) error { return tt.err })

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			body := decode(t, resp)
			assert.Equal(t, tt.wantCode, body["code"])
			assert.Equal(t, float64(tt.wantStatus), body["status"])
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, body["error"])
			}
			assert.NotContains(t, body["error"], "secret")
		})
	}
}

func TestErrorHandler_DetailsAndValidation(t *testing.T) {
	app := newApp()
	app.Get("/limited", func(c *fiber.Ctx) error {
		return domain.NewRateLimitedError("slow down").WithContext("limit", 50)
	})
	app.Get("/invalid", func(c *fiber.Ctx) error {
		return domain.ValidationErrors{domain.NewMissingFieldError("context")}
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/limited", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, map[string]interface{}{"limit": float64(50)}, body["details"])

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/invalid", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body = decode(t, resp)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	assert.Equal(t, "context is required", body["error"])
	require.Len(t, body["errors"], 1)
}

func newValidatedApp(defaultCount int) *fiber.App {
	app := newApp()
	app.Post("/generate", NewValidationMiddleware().ValidateGenerateRequest(defaultCount), func(c *fiber.Ctx) error {
		req, ok := GenerateRequestFrom(c)
		if !ok {
			return errors.New("request not stored")
		}
		return c.JSON(req)
	})
	return app
}

func postJSON(app *fiber.App, body string) (*http.Response, error) {
	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return app.Test(req)
}

func TestValidateGenerateRequest(t *testing.T) {
	t.Run("valid body is stored", func(t *testing.T) {
		resp, err := postJSON(newValidatedApp(0), `{"context":"Cells divide by mitosis.","language":"fr","count":7,"level":"expert"}`)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var got dto.GenerateRequest
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, dto.GenerateRequest{Context: "Cells divide by mitosis.", Language: "fr", Count: 7, Level: "expert"}, got)
	})

	t.Run("missing count takes the default", func(t *testing.T) {
		resp, err := postJSON(newValidatedApp(10), `{"context":"Cells divide by mitosis.","language":"en","level":"beginner"}`)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var got dto.GenerateRequest
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, 10, got.Count)
	})

	t.Run("missing count without default is rejected", func(t *testing.T) {
		resp, err := postJSON(newValidatedApp(0), `{"context":"Cells divide by mitosis.","language":"en","level":"beginner"}`)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "VALIDATION_ERROR", decode(t, resp)["code"])
	})

	t.Run("invalid json", func(t *testing.T) {
		resp, err := postJSON(newValidatedApp(0), `{"context":`)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_REQUEST", decode(t, resp)["code"])
	})

	t.Run("wrong content type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader("context=x"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		resp, err := newValidatedApp(0).Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_REQUEST", decode(t, resp)["code"])
	})
}

func TestRequestLogger(t *testing.T) {
	app := newApp()
	app.Use(RequestLogger())
	app.Get("/ok", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals(RequestIDKey).(string))
	})
	app.Get("/fail", func(c *fiber.Ctx) error { return domain.NewNoValidItemsError() })

	t.Run("issues a request id", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ok", nil))
		require.NoError(t, err)
		id := resp.Header.Get(RequestIDHeader)
		assert.True(t, util.IsULID(id))
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, id, string(body))
	})

	t.Run("keeps a valid incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		req.Header.Set(RequestIDHeader, "01ARZ3NDEKTSV4RRFFQ69G5FAV")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, "01ARZ3NDEKTSV4RRFFQ69G5FAV", resp.Header.Get(RequestIDHeader))
	})

	t.Run("replaces a bogus incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		req.Header.Set(RequestIDHeader, "<script>")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.NotEqual(t, "<script>", resp.Header.Get(RequestIDHeader))
	})

	t.Run("errors are rendered once", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/fail", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "NO_VALID_ITEMS", decode(t, resp)["code"])
	})
}
