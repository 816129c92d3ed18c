package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aether/internal/config"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func loadConfig(t *testing.T, overrides map[string]interface{}) *config.Config {
	t.Helper()
	v := viper.New()
	v.Set("JWT_SECRET", "test_secret")
	for k, val := range overrides {
		v.Set(k, val)
	}
	cfg, err := config.Load(v)
	require.NoError(t, err)
	return cfg
}

func health(t *testing.T, cfg *config.Config) (int, map[string]interface{}) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	app, cleanup, err := newApp(ctx, cfg)
	require.NoError(t, err)
	defer cleanup()

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestNewAppMemoryDriver(t *testing.T) {
	code, body := health(t, loadConfig(t, map[string]interface{}{"DB_DRIVER": "memory"}))
	assert.Equal(t, 200, code)
	assert.Equal(t, "healthy", body["status"])
	assert.Empty(t, body["dependencies"])
}

func TestNewAppSQLiteReportsDatabase(t *testing.T) {
	cfg := loadConfig(t, map[string]interface{}{
		"DB_DRIVER":    "sqlite",
		"DATABASE_DSN": "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	})
	code, body := health(t, cfg)
	assert.Equal(t, 200, code)
	deps, ok := body["dependencies"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "connected", deps["database"])
}

func TestNewAppServesAPI(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	app, cleanup, err := newApp(ctx, loadConfig(t, map[string]interface{}{"DB_DRIVER": "memory"}))
	require.NoError(t, err)
	defer cleanup()

	req := httptest.NewRequest("GET", "/api/payments/test", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, false, body["razorpayConfigured"])

	req = httptest.NewRequest("POST", "/api/auth/register", strings.NewReader(
		`{"name":"Asha","username":"asha_1","email":"asha@example.com","password":"secret1"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)
}

func TestNewAppWiresRazorpayWhenKeysSet(t *testing.T) {
	cfg := loadConfig(t, map[string]interface{}{
		"DB_DRIVER":           "memory",
		"RAZORPAY_KEY_ID":     "rzp_test_key",
		"RAZORPAY_KEY_SECRET": "secret",
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	app, cleanup, err := newApp(ctx, cfg)
	require.NoError(t, err)
	defer cleanup()

	resp, err := app.Test(httptest.NewRequest("GET", "/api/payments/test", nil))
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["razorpayConfigured"])
	assert.Equal(t, "rzp_test_key", body["key"])
}
