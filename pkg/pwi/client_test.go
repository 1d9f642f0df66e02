package pwi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testClient builds a Client pointed at an httptest server.
func testClient(t *testing.T, serverURL string) *Client {
	t.Helper()

	parsed, err := url.Parse(serverURL)
	require.NoError(t, err)

	port, err := strconv.Atoi(parsed.Port())
	require.NoError(t, err)

	client, err := NewClient(&ClientConfig{
		Host:    parsed.Hostname(),
		Port:    port,
		Timeout: 2 * time.Second,
	}, zap.NewNop())
	require.NoError(t, err)

	return client
}

func TestClientConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  ClientConfig
		wantErr bool
	}{
		{
			name:   "empty config gets defaults",
			config: ClientConfig{},
		},
		{
			name:   "explicit values kept",
			config: ClientConfig{Host: "10.0.0.5", Port: 8220, Timeout: time.Second},
		},
		{
			name:    "negative port rejected",
			config:  ClientConfig{Port: -1},
			wantErr: true,
		},
		{
			name:    "port out of range rejected",
			config:  ClientConfig{Port: 70000},
			wantErr: true,
		},
		{
			name:    "negative timeout rejected",
			config:  ClientConfig{Timeout: -time.Second},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, tt.config.Host)
			assert.NotZero(t, tt.config.Port)
			assert.NotZero(t, tt.config.Timeout)
		})
	}
}

func TestClientDefaults(t *testing.T) {
	client, err := NewClient(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8220", client.BaseURL())
}

func TestClientGet(t *testing.T) {
	var gotPath string
	var gotQuery url.Values

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte("is_connected=true\n"))
	}))
	defer server.Close()

	client := testClient(t, server.URL)

	params := url.Values{}
	params.Set("target", "12000")

	body, err := client.Get(context.Background(), "/focuser/goto", params)
	require.NoError(t, err)

	assert.Equal(t, "/focuser/goto", gotPath)
	assert.Equal(t, "12000", gotQuery.Get("target"))
	assert.Equal(t, "is_connected=true\n", string(body))
}

func TestClientGetNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := testClient(t, server.URL)

	_, err := client.Get(context.Background(), "/focuser/enable", nil)
	require.Error(t, err)

	var statusErr *StatusCodeError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.Code)
	assert.Equal(t, "/focuser/enable", statusErr.Path)
}

func TestClientGetContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := testClient(t, server.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Get(ctx, "/status", nil)
	assert.Error(t, err)
}
