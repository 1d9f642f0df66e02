package pwi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeController scripts a PWI control surface for tests: it records
// every request path and serves a configurable status payload, with
// optional per-path failure codes and delays.
type fakeController struct {
	mu       sync.Mutex
	requests []string
	status   string
	failures map[string]int
	delays   map[string]time.Duration
}

func newFakeController(status string) *fakeController {
	return &fakeController{
		status:   status,
		failures: make(map[string]int),
		delays:   make(map[string]time.Duration),
	}
}

func (c *fakeController) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	c.mu.Lock()
	c.requests = append(c.requests, path)
	code := c.failures[path]
	delay := c.delays[path]
	status := c.status
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if code != 0 {
		w.WriteHeader(code)
		return
	}

	if path == "/status" {
		_, _ = fmt.Fprint(w, status)
	}
}

func (c *fakeController) setStatus(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status
}

func (c *fakeController) fail(path string, code int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[path] = code
}

func (c *fakeController) delay(path string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delays[path] = d
}

func (c *fakeController) requestLog() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	log := make([]string, len(c.requests))
	copy(log, c.requests)
	return log
}

func (c *fakeController) requestCount(path string) int {
	count := 0
	for _, p := range c.requestLog() {
		if p == path {
			count++
		}
	}
	return count
}

const focuserIdleStatus = "is_connected=true\nis_enabled=true\nis_moving=false\nposition=0\nversion=4.0.11\n"

func newTestFocuser(t *testing.T, controller *fakeController) (*Focuser, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(controller)
	t.Cleanup(server.Close)

	client := testClient(t, server.URL)

	return NewFocuser(0, FocuserParameters{}, client, nil), server
}

func TestFocuserConnectIdempotent(t *testing.T) {
	controller := newFakeController(focuserIdleStatus)
	focuser, _ := newTestFocuser(t, controller)

	ctx := context.Background()

	require.NoError(t, focuser.Connect(ctx))
	assert.Equal(t, DeviceStateConnected, focuser.State())

	// A second connect is a no-op: no further network request.
	require.NoError(t, focuser.Connect(ctx))
	assert.Equal(t, 1, controller.requestCount("/focuser/enable"))
	assert.Equal(t, DeviceStateConnected, focuser.State())
}

func TestFocuserConnectFailureLeavesStateUnchanged(t *testing.T) {
	controller := newFakeController(focuserIdleStatus)
	controller.fail("/focuser/enable", http.StatusServiceUnavailable)
	focuser, _ := newTestFocuser(t, controller)

	err := focuser.Connect(context.Background())

	var statusErr *StatusCodeError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
	assert.Equal(t, DeviceStateDisconnected, focuser.State())
}

func TestFocuserDisconnectAlwaysDisconnects(t *testing.T) {
	controller := newFakeController(focuserIdleStatus)
	controller.fail("/focuser/disable", http.StatusInternalServerError)
	focuser, _ := newTestFocuser(t, controller)

	ctx := context.Background()
	require.NoError(t, focuser.Connect(ctx))

	// The disable command fails, but the interface must never stay
	// stuck connected.
	err := focuser.Disconnect(ctx)
	assert.Error(t, err)
	assert.Equal(t, DeviceStateDisconnected, focuser.State())
}

func TestFocuserDisconnectStopsBeforeDisabling(t *testing.T) {
	controller := newFakeController(focuserIdleStatus)
	focuser, _ := newTestFocuser(t, controller)

	ctx := context.Background()
	require.NoError(t, focuser.Connect(ctx))
	require.NoError(t, focuser.Disconnect(ctx))

	assert.Equal(t, []string{"/focuser/enable", "/focuser/stop", "/focuser/disable"}, controller.requestLog())
	assert.Equal(t, DeviceStateDisconnected, focuser.State())
}

func TestFocuserDisconnectWhenDisconnectedIsNoop(t *testing.T) {
	controller := newFakeController(focuserIdleStatus)
	focuser, _ := newTestFocuser(t, controller)

	require.NoError(t, focuser.Disconnect(context.Background()))
	assert.Empty(t, controller.requestLog())
}

func TestFocuserGetStatusWhileDisconnected(t *testing.T) {
	controller := newFakeController(focuserIdleStatus)
	focuser, _ := newTestFocuser(t, controller)

	status, err := focuser.GetStatus(context.Background())
	require.NoError(t, err)
	assert.Nil(t, status)
	assert.Empty(t, controller.requestLog(), "no network request may be made while disconnected")
}

func TestFocuserIsConnectedRequiresAgreement(t *testing.T) {
	controller := newFakeController(focuserIdleStatus)
	focuser, _ := newTestFocuser(t, controller)

	ctx := context.Background()

	connected, err := focuser.IsConnected(ctx)
	require.NoError(t, err)
	assert.False(t, connected, "disconnected locally")

	require.NoError(t, focuser.Connect(ctx))

	connected, err = focuser.IsConnected(ctx)
	require.NoError(t, err)
	assert.True(t, connected)

	// The device reports a disconnection the client has not observed:
	// the mismatch is reported, the local state is left as is.
	controller.setStatus("is_connected=false\nis_enabled=true\nis_moving=false\n")

	connected, err = focuser.IsConnected(ctx)
	require.NoError(t, err)
	assert.False(t, connected)
	assert.Equal(t, DeviceStateConnected, focuser.State())
}

func TestFocuserIsReady(t *testing.T) {
	tests := []struct {
		name   string
		status string
		want   bool
	}{
		{
			name:   "connected enabled idle",
			status: "is_connected=true\nis_enabled=true\nis_moving=false\n",
			want:   true,
		},
		{
			name:   "not enabled",
			status: "is_connected=true\nis_enabled=false\nis_moving=false\n",
			want:   false,
		},
		{
			name:   "still moving",
			status: "is_connected=true\nis_enabled=true\nis_moving=true\n",
			want:   false,
		},
		{
			name:   "device reports disconnected",
			status: "is_connected=false\nis_enabled=true\nis_moving=false\n",
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			controller := newFakeController(tt.status)
			focuser, _ := newTestFocuser(t, controller)

			ctx := context.Background()
			require.NoError(t, focuser.Connect(ctx))

			ready, err := focuser.IsReady(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ready)
		})
	}
}

func TestFocuserIsMoving(t *testing.T) {
	ctx := context.Background()

	t.Run("target reached means not moving", func(t *testing.T) {
		controller := newFakeController(focuserIdleStatus)
		focuser, _ := newTestFocuser(t, controller)
		require.NoError(t, focuser.Connect(ctx))

		require.NoError(t, focuser.SetPosition(ctx, 12000))
		controller.setStatus("is_connected=true\nis_enabled=true\nis_moving=false\nposition=12000\n")

		moving, err := focuser.IsMoving(ctx)
		require.NoError(t, err)
		assert.False(t, moving)
	})

	t.Run("client move in flight", func(t *testing.T) {
		controller := newFakeController(focuserIdleStatus)
		focuser, _ := newTestFocuser(t, controller)
		require.NoError(t, focuser.Connect(ctx))

		require.NoError(t, focuser.SetPosition(ctx, 12000))
		controller.setStatus("is_connected=true\nis_enabled=true\nis_moving=true\nposition=4000\n")

		moving, err := focuser.IsMoving(ctx)
		require.NoError(t, err)
		assert.True(t, moving)
	})

	t.Run("hardware motion without a client move", func(t *testing.T) {
		controller := newFakeController("is_connected=true\nis_enabled=true\nis_moving=true\nposition=4000\n")
		focuser, _ := newTestFocuser(t, controller)
		require.NoError(t, focuser.Connect(ctx))

		// The controller reports motion, but this client never issued a
		// move, so IsMoving must stay false.
		moving, err := focuser.IsMoving(ctx)
		require.NoError(t, err)
		assert.False(t, moving)
	})

	t.Run("abort clears the client moving state", func(t *testing.T) {
		controller := newFakeController("is_connected=true\nis_enabled=true\nis_moving=true\nposition=4000\n")
		focuser, _ := newTestFocuser(t, controller)
		require.NoError(t, focuser.Connect(ctx))

		require.NoError(t, focuser.SetPosition(ctx, 12000))
		require.NoError(t, focuser.AbortMove(ctx))

		moving, err := focuser.IsMoving(ctx)
		require.NoError(t, err)
		assert.False(t, moving)
	})

	t.Run("status unavailable while disconnected", func(t *testing.T) {
		controller := newFakeController(focuserIdleStatus)
		focuser, _ := newTestFocuser(t, controller)

		_, err := focuser.IsMoving(ctx)

		var unavailableErr *StatusUnavailableError
		require.ErrorAs(t, err, &unavailableErr)
	})
}

func TestFocuserSetPositionRecordsTargetBeforeCommand(t *testing.T) {
	controller := newFakeController(focuserIdleStatus)
	controller.fail("/focuser/goto", http.StatusInternalServerError)
	focuser, _ := newTestFocuser(t, controller)

	ctx := context.Background()
	require.NoError(t, focuser.Connect(ctx))

	// Even when the goto command fails the target was already recorded.
	err := focuser.SetPosition(ctx, 9000)
	assert.Error(t, err)

	focuser.mu.Lock()
	defer focuser.mu.Unlock()
	assert.Equal(t, 9000, focuser.targetPosition)
	assert.Equal(t, FocuserMovingStateMoving, focuser.movingState)
}

func TestFocuserGetPosition(t *testing.T) {
	ctx := context.Background()

	t.Run("position reported", func(t *testing.T) {
		controller := newFakeController("is_connected=true\nis_enabled=true\nis_moving=false\nposition=12000\n")
		focuser, _ := newTestFocuser(t, controller)
		require.NoError(t, focuser.Connect(ctx))

		position, err := focuser.GetPosition(ctx)
		require.NoError(t, err)
		assert.Equal(t, 12000, position)
	})

	t.Run("position absent", func(t *testing.T) {
		controller := newFakeController("is_connected=true\nis_enabled=true\nis_moving=false\n")
		focuser, _ := newTestFocuser(t, controller)
		require.NoError(t, focuser.Connect(ctx))

		_, err := focuser.GetPosition(ctx)
		assert.Error(t, err)
	})
}

func TestFocuserInitialiseTimeoutAfterExactRetries(t *testing.T) {
	controller := newFakeController(focuserIdleStatus)
	controller.delay("/focuser/enable", time.Second)
	focuser, _ := newTestFocuser(t, controller)

	err := focuser.Initialise(context.Background(), 50*time.Millisecond, 3)

	var timeoutErr *InitialiseTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, 3, timeoutErr.Attempts)
	assert.Equal(t, 50*time.Millisecond, timeoutErr.Timeout)

	// Exactly three attempts were made, each issuing one enable command.
	assert.Equal(t, 3, controller.requestCount("/focuser/enable"))
	assert.Equal(t, DeviceStateDisconnected, focuser.State())
}

func TestFocuserInitialiseRecoversOnLaterAttempt(t *testing.T) {
	controller := newFakeController(focuserIdleStatus)
	controller.delay("/focuser/enable", 300*time.Millisecond)
	focuser, _ := newTestFocuser(t, controller)

	// The first attempt exceeds the deadline; before the second one the
	// controller becomes responsive.
	go func() {
		time.Sleep(120 * time.Millisecond)
		controller.delay("/focuser/enable", 0)
	}()

	err := focuser.Initialise(context.Background(), 100*time.Millisecond, 3)
	require.NoError(t, err)
	assert.Equal(t, DeviceStateConnected, focuser.State())
}

func TestFocuserInitialiseFinalTransportErrorPropagates(t *testing.T) {
	controller := newFakeController(focuserIdleStatus)
	controller.fail("/focuser/enable", http.StatusServiceUnavailable)
	focuser, _ := newTestFocuser(t, controller)

	err := focuser.Initialise(context.Background(), time.Second, 2)

	var statusErr *StatusCodeError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 2, controller.requestCount("/focuser/enable"))
}

func TestFocuserDriverVersion(t *testing.T) {
	ctx := context.Background()

	controller := newFakeController(focuserIdleStatus)
	focuser, _ := newTestFocuser(t, controller)

	// Disconnected: the zero version, no network request.
	version, err := focuser.GetDriverVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, Version{}, version)
	assert.Empty(t, controller.requestLog())

	require.NoError(t, focuser.Connect(ctx))

	version, err = focuser.GetDriverVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, Version{Major: 4, Minor: 0, Patch: 11}, version)
}

func TestFocuserUnsupportedOperations(t *testing.T) {
	focuser, _ := newTestFocuser(t, newFakeController(focuserIdleStatus))

	var unsupportedErr *UnsupportedOperationError

	_, err := focuser.GetFirmwareVersion(context.Background())
	require.ErrorAs(t, err, &unsupportedErr)

	_, err = focuser.GetCapabilities(context.Background())
	require.ErrorAs(t, err, &unsupportedErr)
}

func TestFocuserEndToEnd(t *testing.T) {
	controller := newFakeController(focuserIdleStatus)
	focuser, _ := newTestFocuser(t, controller)

	ctx := context.Background()

	require.NoError(t, focuser.Initialise(ctx, DefaultInitialiseTimeout, DefaultInitialiseRetries))
	assert.Equal(t, DeviceStateConnected, focuser.State())

	require.NoError(t, focuser.SetPosition(ctx, 12000))
	controller.setStatus("is_connected=true\nis_enabled=true\nis_moving=false\nposition=12000\n")

	moving, err := focuser.IsMoving(ctx)
	require.NoError(t, err)
	assert.False(t, moving)

	position, err := focuser.GetPosition(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12000, position)

	require.NoError(t, focuser.Disconnect(ctx))
	assert.Equal(t, DeviceStateDisconnected, focuser.State())
}

func TestFocuserDefaults(t *testing.T) {
	focuser := NewFocuser(0, FocuserParameters{}, nil, nil)

	assert.Equal(t, "PlaneWave Focuser", focuser.Name())
	assert.Equal(t, "PlaneWave Focuser Interface (HTTP)", focuser.Description())
	assert.Equal(t, FocuserModeAbsolute, focuser.Mode())
	assert.True(t, focuser.IsAbsolute())
	assert.Equal(t, DeviceStateDisconnected, focuser.State())
}
