package routes

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/couture/internal/config"
	"github.com/example/couture/internal/models"
	"github.com/example/couture/internal/services"
	"github.com/example/couture/internal/storage"
	"github.com/example/couture/internal/utils"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

type captureMailer struct {
	sent []services.Message
}

func (m *captureMailer) Send(ctx context.Context, msg services.Message) error {
	m.sent = append(m.sent, msg)
	return nil
}

type testServer struct {
	app      *fiber.App
	store    *storage.MemoryStore
	mailer   *captureMailer
	tokens   *utils.JWTIssuer
	accounts *services.AccountService
	catalog  *services.CatalogService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{
		AppPort:           "0",
		JWTSecret:         "test-secret",
		OTPTTL:            10 * time.Minute,
		OTPResendAfter:    time.Minute,
		MediaRoot:         t.TempDir(),
		MediaURL:          "/media",
		MaxUploadSize:     5 << 20,
		AuthRatePerMinute: 1000,
		AuthRateBurst:     1000,
	}
	log := zap.NewNop()
	store := storage.NewMemoryStore()
	mailer := &captureMailer{}
	templates, err := services.NewEmailTemplates("Couture House", "support@couture.test")
	require.NoError(t, err)
	images, err := services.NewLocalImageStore(cfg.MediaRoot, cfg.MediaURL, cfg.MaxUploadSize)
	require.NoError(t, err)
	tokens := utils.NewJWTIssuer(cfg.JWTSecret, time.Hour, 24*time.Hour, 15*time.Minute)
	otp := services.NewOTPService(store, mailer, templates, tokens, services.OTPConfig{TTL: cfg.OTPTTL, Cooldown: cfg.OTPResendAfter}, log).
		WithGenerator(func() (string, error) { return "123456", nil })
	accounts := services.NewAccountService(store, otp, tokens, log)
	catalog := services.NewCatalogService(store, log)

	app := NewApp(cfg, Services{
		Store:      store,
		Tokens:     tokens,
		Accounts:   accounts,
		OTP:        otp,
		Catalog:    catalog,
		Carts:      services.NewCartService(store, log),
		OrderCarts: services.NewOrderCartService(store, log),
		Orders:     services.NewCustomOrderService(store, images, nil, services.CustomOrderConfig{MaxImageSize: cfg.MaxUploadSize}, log),
	}, log)
	return &testServer{app: app, store: store, mailer: mailer, tokens: tokens, accounts: accounts, catalog: catalog}
}

func (s *testServer) do(t *testing.T, req *http.Request) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var body map[string]interface{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	}
	return resp, body
}

func jsonRequest(method, target string, body interface{}, token string) *http.Request {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func (s *testServer) token(t *testing.T, email string, isStaff bool) string {
	t.Helper()
	var user *models.User
	var err error
	if isStaff {
		user, err = s.accounts.CreateStaff(context.Background(), email, "grace", "hopper", "Adm1n!Pass")
	} else {
		hash, herr := utils.HashPassword("Str0ng!Pass")
		require.NoError(t, herr)
		user = &models.User{Email: email, FirstName: "Ada", LastName: "Obi", PasswordHash: hash, IsActive: true, IsEmailVerified: true}
		err = s.store.CreateUser(context.Background(), user)
	}
	require.NoError(t, err)
	pair, err := s.tokens.IssuePair(user.ID, isStaff)
	require.NoError(t, err)
	return pair.Access
}

func orderPayload() map[string]interface{} {
	return map[string]interface{}{
		"first_name":        "ada",
		"last_name":         "obi",
		"email":             "Ada@Example.com",
		"phone":             "+234 803 123 4567",
		"occasion":          "Wedding",
		"style_description": "Ivory agbada with gold embroidery on the cuffs",
		"budget":            "30000-40000",
		"timeline":          time.Now().AddDate(0, 0, 30).Format("2006-01-02"),
		"chest":             96,
		"waist":             40,
		"height":            178,
		"image":             "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes),
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	resp, body := s.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))

	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "couture_http_requests_total")
}

func TestRegisterVerifyLoginFlow(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, jsonRequest(http.MethodPost, "/user/register", map[string]string{
		"email":      "ada@example.com",
		"first_name": "ada",
		"last_name":  "obi",
		"password":   "Str0ng!Pass",
	}, ""))
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.Equal(t, true, body["verification_email_sent"])
	assert.EqualValues(t, 10, body["otp_expires_in_minutes"])
	require.Len(t, s.mailer.sent, 1)
	assert.Contains(t, s.mailer.sent[0].Text, "123456")

	resp, body = s.do(t, jsonRequest(http.MethodPost, "/user/login", map[string]string{
		"email": "ada@example.com", "password": "Str0ng!Pass",
	}, ""))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "email_not_verified", body["code"])

	resp, body = s.do(t, jsonRequest(http.MethodPost, "/user/verify-email", map[string]string{
		"email": "ada@example.com", "otp": "123456",
	}, ""))
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "Email verified successfully", body["message"])

	resp, body = s.do(t, jsonRequest(http.MethodPost, "/user/login", map[string]string{
		"email": "ada@example.com", "password": "Str0ng!Pass",
	}, ""))
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	access, _ := body["access"].(string)
	require.NotEmpty(t, access)

	resp, body = s.do(t, jsonRequest(http.MethodGet, "/user/me", nil, access))
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "ada@example.com", body["email"])
}

func TestRegisterReportsFieldErrors(t *testing.T) {
	s := newTestServer(t)
	resp, body := s.do(t, jsonRequest(http.MethodPost, "/user/register", map[string]string{
		"email": "not-an-email", "first_name": "A", "password": "short",
	}, ""))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	errs, ok := body["errors"].(map[string]interface{})
	require.True(t, ok, body)
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "first_name")
	assert.Contains(t, errs, "last_name")
	assert.Contains(t, errs, "password")
}

func TestResendOTPCooldown(t *testing.T) {
	s := newTestServer(t)
	resp, _ := s.do(t, jsonRequest(http.MethodPost, "/user/register", map[string]string{
		"email": "ada@example.com", "first_name": "ada", "last_name": "obi", "password": "Str0ng!Pass",
	}, ""))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := s.do(t, jsonRequest(http.MethodPost, "/user/resend-otp", map[string]string{"email": "ada@example.com"}, ""))
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderRetryAfter))
	assert.Contains(t, body, "retry_after_seconds")
}

func TestInvalidJSONBody(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/user/login", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	resp, body := s.do(t, req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid request body", body["error"])
}

func TestStaffRoutesRequireStaff(t *testing.T) {
	s := newTestServer(t)
	customer := s.token(t, "ada@example.com", false)

	resp, body := s.do(t, jsonRequest(http.MethodGet, "/custom-orders/", nil, ""))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "authentication_required", body["code"])

	resp, body = s.do(t, jsonRequest(http.MethodGet, "/custom-orders/", nil, customer))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "staff_only", body["code"])

	resp, body = s.do(t, jsonRequest(http.MethodGet, "/custom-orders/", nil, "garbage"))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid_token", body["code"])
}

func TestCustomOrderLifecycle(t *testing.T) {
	s := newTestServer(t)
	staff := s.token(t, "admin@couture.test", true)

	resp, body := s.do(t, jsonRequest(http.MethodPost, "/custom-orders/", orderPayload(), ""))
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	orderID, _ := body["order_id"].(string)
	identity, _ := body["identity_code"].(string)
	require.NotEmpty(t, orderID)
	require.NotEmpty(t, identity)
	order := body["order"].(map[string]interface{})
	assert.Equal(t, "pending", order["status"])
	assert.Equal(t, "wedding", order["occasion"])
	assert.True(t, strings.HasPrefix(order["image_url"].(string), "/media/"))

	resp, body = s.do(t, jsonRequest(http.MethodGet, "/custom-order-list?identity_code="+identity, nil, ""))
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Len(t, body["items"], 1)

	resp, _ = s.do(t, jsonRequest(http.MethodGet, "/custom-orders/"+orderID, nil, ""))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = s.do(t, jsonRequest(http.MethodPost, "/custom-orders/"+orderID+"/status", map[string]string{"status": "completed"}, staff))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_transition", body["code"])

	resp, body = s.do(t, jsonRequest(http.MethodPost, "/custom-orders/"+orderID+"/status", map[string]string{"status": "in_progress"}, staff))
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "Order status updated to in_progress", body["message"])

	resp, err := s.app.Test(jsonRequest(http.MethodGet, "/custom-orders/"+orderID+"/history", nil, staff), -1)
	require.NoError(t, err)
	var history []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	resp.Body.Close()
	require.Len(t, history, 1)
	assert.Equal(t, "pending", history[0]["from_status"])
	assert.Equal(t, "in_progress", history[0]["to_status"])

	resp, body = s.do(t, jsonRequest(http.MethodPost, "/custom-orders/"+orderID+"/notes", map[string]string{"note": "Fabric sourced"}, staff))
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.Equal(t, "Fabric sourced", body["note"])

	resp, body = s.do(t, jsonRequest(http.MethodGet, "/custom-orders/stats", nil, staff))
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	stats := body["data"].(map[string]interface{})
	assert.EqualValues(t, 1, stats["total"])

	resp, _ = s.do(t, jsonRequest(http.MethodDelete, "/custom-order-list?identity_code="+identity+"&product_code="+orderID, nil, ""))
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = s.do(t, jsonRequest(http.MethodDelete, "/custom-orders/"+orderID, nil, staff))
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, body = s.do(t, jsonRequest(http.MethodGet, "/custom-orders/"+orderID, nil, staff))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "order_not_found", body["code"])
}

func TestCustomOrderMultipart(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for key, value := range orderPayload() {
		if key == "image" {
			continue
		}
		switch v := value.(type) {
		case string:
			require.NoError(t, w.WriteField(key, v))
		case int:
			require.NoError(t, w.WriteField(key, strconv.Itoa(v)))
		}
	}
	part, err := w.CreateFormFile("picture", "me.png")
	require.NoError(t, err)
	_, err = part.Write(pngBytes)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/custom-orders/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, body := s.do(t, req)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	order := body["order"].(map[string]interface{})
	assert.NotEmpty(t, order["picture_url"])
	assert.Empty(t, order["image_url"])
}

func TestCustomOrderJoinsSuppliedCart(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 2; i++ {
		payload := orderPayload()
		payload["custom_identity"] = "family-wedding"
		resp, body := s.do(t, jsonRequest(http.MethodPost, "/custom-orders/", payload, ""))
		require.Equal(t, http.StatusCreated, resp.StatusCode, body)
		assert.Equal(t, "family-wedding", body["identity_code"])
	}

	resp, body := s.do(t, jsonRequest(http.MethodGet, "/custom-order-list?identity_code=family-wedding", nil, ""))
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Len(t, body["items"], 2)

	resp, body = s.do(t, jsonRequest(http.MethodGet, "/custom-order-list?identity_code=nobody", nil, ""))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "cart_not_found", body["code"])
}

func TestCustomOrderNeedsAnImage(t *testing.T) {
	s := newTestServer(t)
	payload := orderPayload()
	delete(payload, "image")

	resp, body := s.do(t, jsonRequest(http.MethodPost, "/custom-orders/", payload, ""))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errs := body["errors"].(map[string]interface{})
	assert.Contains(t, errs, "non_field_errors")
}

func TestUpdateOrderRejectsStatus(t *testing.T) {
	s := newTestServer(t)
	staff := s.token(t, "admin@couture.test", true)
	resp, body := s.do(t, jsonRequest(http.MethodPost, "/custom-orders/", orderPayload(), ""))
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	orderID := body["order_id"].(string)

	resp, body = s.do(t, jsonRequest(http.MethodPatch, "/custom-orders/"+orderID, map[string]string{"status": "completed"}, staff))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "status is changed through the status endpoint", body["error"])

	resp, body = s.do(t, jsonRequest(http.MethodPatch, "/custom-orders/"+orderID, map[string]string{"style_description": "Gold trim on the collar"}, staff))
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "Gold trim on the collar", body["style_description"])

	resp, body = s.do(t, jsonRequest(http.MethodPatch, "/custom-orders/"+orderID, map[string]string{"style_description": "Gold trim"}, staff))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["errors"], "style_description")
}

func TestCartFlow(t *testing.T) {
	s := newTestServer(t)
	product, err := s.catalog.CreateProduct(context.Background(), services.ProductInput{Name: "Agbada", Price: "45000"})
	require.NoError(t, err)

	resp, body := s.do(t, jsonRequest(http.MethodPost, "/add-to-cart", map[string]string{"productId": product.ID.String()}, ""))
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.EqualValues(t, 1, body["quantity"])
	code := body["cart_code"].(string)
	itemID := body["item_id"].(string)

	resp, body = s.do(t, jsonRequest(http.MethodPost, "/add-to-cart", map[string]interface{}{
		"cart_code": code, "productId": product.ID.String(), "quantity": 1,
	}, ""))
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.EqualValues(t, 2, body["quantity"])

	resp, body = s.do(t, jsonRequest(http.MethodGet, "/cart-items?cart_code="+code, nil, ""))
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "90000.00", body["total_price"])

	resp, body = s.do(t, jsonRequest(http.MethodPatch, "/cart-items", map[string]interface{}{
		"cart_code": code, "itemId": itemID, "quantity": 3,
	}, ""))
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	resp, _ = s.do(t, jsonRequest(http.MethodDelete, "/cart-items", map[string]string{
		"cart_code": code, "productId": itemID,
	}, ""))
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = s.do(t, jsonRequest(http.MethodDelete, "/cart-items", map[string]string{
		"cart_code": code, "productId": itemID,
	}, ""))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "item_not_found", body["code"])

	resp, body = s.do(t, jsonRequest(http.MethodGet, "/cart-items?cart_code="+code, nil, ""))
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "0.00", body["total_price"])
}

func TestAddToCartUnknownProduct(t *testing.T) {
	s := newTestServer(t)
	resp, body := s.do(t, jsonRequest(http.MethodPost, "/add-to-cart", map[string]string{
		"productId": "00000000-0000-0000-0000-000000000001",
	}, ""))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "product_not_found", body["code"])
}

func TestCatalogRoutes(t *testing.T) {
	s := newTestServer(t)
	staff := s.token(t, "admin@couture.test", true)

	resp, body := s.do(t, jsonRequest(http.MethodPost, "/categories", map[string]string{"name": "Men's Wear"}, ""))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, body)

	resp, body = s.do(t, jsonRequest(http.MethodPost, "/categories", map[string]string{"name": "Men's Wear"}, staff))
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)

	resp, body = s.do(t, jsonRequest(http.MethodPost, "/products", map[string]string{
		"name": "Kaftan", "price": "25000.50", "category": "men-s-wear",
	}, staff))
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	productID := body["id"].(string)

	resp, body = s.do(t, jsonRequest(http.MethodGet, "/products?search=kaf", nil, ""))
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.EqualValues(t, 1, body["count"])

	resp, body = s.do(t, jsonRequest(http.MethodGet, "/product/"+productID, nil, ""))
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "kaftan", body["slug"])
}
