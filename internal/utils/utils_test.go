package utils

import (
	"encoding/json"
	"net"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorResponses(t *testing.T) {
	app := fiber.New()
	app.Get("/err", func(c *fiber.Ctx) error {
		return ErrorResponse(c, "bad things", fiber.StatusBadRequest, "data.validation.input")
	})
	app.Get("/version", VersionErrorResponse)
	app.Get("/ok", func(c *fiber.Ctx) error {
		return MutationSuccessResponse(c, 7, 2)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/err?x=1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	var body ErrorResponseStruct
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "bad things", body.Message)
	assert.Equal(t, "/err?x=1", body.URL)
	assert.False(t, body.Ok)

	resp, err = app.Test(httptest.NewRequest("GET", "/version", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	body = ErrorResponseStruct{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.VersionError)
	assert.Contains(t, body.Message, "E_VERSION")

	resp, err = app.Test(httptest.NewRequest("GET", "/ok", nil))
	require.NoError(t, err)
	var ok SuccessResponseStruct
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ok))
	assert.Equal(t, "7", ok.NewVersion)
	assert.Equal(t, int64(2), ok.AffectedRows)
}

func TestPingService(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	assert.NoError(t, PingChrome("ws://"+ln.Addr().String()+"/devtools/browser"))
	assert.Error(t, PingService("http://127.0.0.1:1", 0))
	assert.Error(t, PingService("://bad", 0))
}

func TestDialAddress(t *testing.T) {
	tests := map[string]string{
		"https://auth.example.com":          "auth.example.com:443",
		"wss://chrome:9222/devtools":        "chrome:9222",
		"ws://chrome/devtools/browser/abc":  "chrome:80",
		"http://[::1]:8080":                 "[::1]:8080",
		"smtp://mail.example.com/?from=x@y": "mail.example.com:80",
	}
	for in, want := range tests {
		got, err := DialAddress(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := DialAddress("not a url")
	assert.Error(t, err)
}
