package pwi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FocuserMode distinguishes relative from absolute positioning.
type FocuserMode string

const (
	// FocuserModeRelative positions relative to the current step
	FocuserModeRelative FocuserMode = "relative"
	// FocuserModeAbsolute positions against the absolute step scale
	FocuserModeAbsolute FocuserMode = "absolute"
)

// FocuserMovingState is the client-declared motion state, reconciled
// against the reported status on every query.
type FocuserMovingState string

const (
	// FocuserMovingStateIdle means no client-initiated move is in flight
	FocuserMovingStateIdle FocuserMovingState = "idle"
	// FocuserMovingStateMoving means this client issued a move that has
	// not been observed to reach its target yet
	FocuserMovingStateMoving FocuserMovingState = "moving"
)

// FocuserParameters configures a focuser device interface.
type FocuserParameters struct {
	DeviceParameters

	// Mode selects relative or absolute positioning; absolute when empty
	Mode FocuserMode
}

// Focuser is the device interface for a PWI focuser. It composes the
// command transport, the status parser and the connection state machine
// into the public per-device API.
//
// A Focuser owns its session exclusively; sharing one across goroutines
// requires external synchronisation of the command flow, although the
// internal bookkeeping is guarded so the initialisation supervisor's
// attempt goroutines stay safe.
type Focuser struct {
	id     int
	params FocuserParameters
	client *Client
	logger *zap.Logger

	mu             sync.Mutex
	state          DeviceState
	mode           FocuserMode
	movingState    FocuserMovingState
	targetPosition int
}

var _ Device = (*Focuser)(nil)

// NewFocuser creates a focuser interface backed by the given client. A
// nil client selects the default controller at localhost:8220.
func NewFocuser(id int, params FocuserParameters, client *Client, logger *zap.Logger) *Focuser {
	if logger == nil {
		logger = zap.NewNop()
	}
	if client == nil {
		client, _ = NewClient(nil, logger)
	}

	if params.Name == "" {
		params.Name = "PlaneWave Focuser"
	}
	if params.Description == "" {
		params.Description = "PlaneWave Focuser Interface (HTTP)"
	}

	mode := params.Mode
	if mode == "" {
		mode = FocuserModeAbsolute
	}

	return &Focuser{
		id:          id,
		params:      params,
		client:      client,
		logger:      logger.With(zap.String("component", "focuser"), zap.Int("device_id", id)),
		state:       DeviceStateDisconnected,
		mode:        mode,
		movingState: FocuserMovingStateIdle,
	}
}

// ID returns the unique device identifier.
func (f *Focuser) ID() int {
	return f.id
}

// Name returns the configured device name.
func (f *Focuser) Name() string {
	return f.params.Name
}

// Description returns the configured device description.
func (f *Focuser) Description() string {
	return f.params.Description
}

// State returns the current connection state.
func (f *Focuser) State() DeviceState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Focuser) setState(state DeviceState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = state
}

// Mode returns the positioning mode of the focuser.
func (f *Focuser) Mode() FocuserMode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

// IsAbsolute reports whether the focuser positions on the absolute
// step scale.
func (f *Focuser) IsAbsolute() bool {
	return f.Mode() == FocuserModeAbsolute
}

// Initialise attempts, up to retries times, to reset transient state,
// connect and obtain one non-empty status snapshot. Each attempt is
// bounded to timeout; see initialiseWithRetry for the cancellation
// semantics of abandoned attempts.
func (f *Focuser) Initialise(ctx context.Context, timeout time.Duration, retries int) error {
	attempt := func(ctx context.Context) error {
		if f.State() == DeviceStateConnected {
			return nil
		}

		// Restore the transient bookkeeping to its idle defaults before
		// touching the hardware.
		f.mu.Lock()
		f.state = DeviceStateDisconnected
		f.movingState = FocuserMovingStateIdle
		f.mu.Unlock()

		if err := f.Connect(ctx); err != nil {
			return err
		}

		status, err := f.GetStatus(ctx)
		if err != nil {
			return err
		}
		if status == nil {
			return &StatusUnavailableError{Device: f.label()}
		}

		return nil
	}

	f.logger.Debug("Initialising focuser",
		zap.Duration("timeout", timeout),
		zap.Int("retries", retries))

	return initialiseWithRetry(ctx, f.label(), timeout, retries, attempt)
}

// Reset disconnects the focuser and re-initialises it with the default
// timeout and retry count.
func (f *Focuser) Reset(ctx context.Context) error {
	if err := f.Disconnect(ctx); err != nil {
		return err
	}
	return f.Initialise(ctx, DefaultInitialiseTimeout, DefaultInitialiseRetries)
}

// Connect enables the focuser and moves the session to the connected
// state. It is idempotent: when already connected no request is made.
// On transport failure the state is left unchanged.
func (f *Focuser) Connect(ctx context.Context) error {
	if f.State() == DeviceStateConnected {
		return nil
	}

	if _, err := f.client.Get(ctx, "/focuser/enable", nil); err != nil {
		return err
	}

	f.setState(DeviceStateConnected)
	f.logger.Info("Focuser connected")

	return nil
}

// Disconnect aborts any in-progress motion, disables the focuser and
// drops the session. The local state is unconditionally reset to
// disconnected, even when the stop or disable command fails partway;
// disconnect must never leave the interface stuck connected.
func (f *Focuser) Disconnect(ctx context.Context) error {
	if f.State() == DeviceStateDisconnected {
		return nil
	}

	defer func() {
		f.setState(DeviceStateDisconnected)
		f.logger.Info("Focuser disconnected")
	}()

	// Fail-safe ordering: stop the hardware before dropping the session.
	if err := f.AbortMove(ctx); err != nil {
		return err
	}

	if _, err := f.client.Get(ctx, "/focuser/disable", nil); err != nil {
		return err
	}

	return nil
}

// GetStatus queries and validates one status snapshot. While
// disconnected it returns nil without touching the network.
func (f *Focuser) GetStatus(ctx context.Context) (*FocuserStatus, error) {
	if f.State() == DeviceStateDisconnected {
		return nil, nil
	}

	raw, err := f.client.Get(ctx, "/status", nil)
	if err != nil {
		return nil, err
	}

	return ParseFocuserStatus(raw)
}

// IsConnected reports connectivity only when the local state machine
// and the freshly fetched device-reported flag agree. A device-reported
// disconnection while the client still believes it is connected is
// surfaced here, not masked; the local state is deliberately left
// untouched.
func (f *Focuser) IsConnected(ctx context.Context) (bool, error) {
	if f.State() == DeviceStateDisconnected {
		return false, nil
	}

	status, err := f.GetStatus(ctx)
	if err != nil {
		return false, err
	}
	if status == nil {
		return false, nil
	}

	return f.State() == DeviceStateConnected && status.IsConnected, nil
}

// IsReady reports whether the focuser can accept a move: connected on
// both sides, enabled, and not currently in motion.
func (f *Focuser) IsReady(ctx context.Context) (bool, error) {
	if f.State() == DeviceStateDisconnected {
		return false, nil
	}

	status, err := f.GetStatus(ctx)
	if err != nil {
		return false, err
	}
	if status == nil {
		return false, nil
	}

	return f.State() == DeviceStateConnected &&
		status.IsConnected &&
		status.IsEnabled &&
		!status.IsMoving, nil
}

// IsEnabled reports whether the focuser motor is enabled.
func (f *Focuser) IsEnabled(ctx context.Context) (bool, error) {
	status, err := f.GetStatus(ctx)
	if err != nil {
		return false, err
	}
	if status == nil {
		return false, &StatusUnavailableError{Device: f.label()}
	}

	return status.IsEnabled, nil
}

// IsMoving reports whether a move issued by this client is still in
// flight toward its target. The hardware flag alone is not enough: the
// controller can report transient motion the client never commanded, so
// the reported flag, the locally declared moving state and the distance
// to the recorded target must all agree.
func (f *Focuser) IsMoving(ctx context.Context) (bool, error) {
	status, err := f.GetStatus(ctx)
	if err != nil {
		return false, err
	}
	if status == nil {
		return false, &StatusUnavailableError{Device: f.label()}
	}

	f.mu.Lock()
	movingState := f.movingState
	target := f.targetPosition
	f.mu.Unlock()

	targetReached := status.Position != nil && *status.Position == target

	return status.IsMoving &&
		movingState == FocuserMovingStateMoving &&
		!targetReached, nil
}

// GetPosition returns the current step position from a fresh status
// snapshot.
func (f *Focuser) GetPosition(ctx context.Context) (int, error) {
	status, err := f.GetStatus(ctx)
	if err != nil {
		return 0, err
	}
	if status == nil {
		return 0, &StatusUnavailableError{Device: f.label()}
	}
	if status.Position == nil {
		return 0, fmt.Errorf("%s: position not available", f.label())
	}

	return *status.Position, nil
}

// SetPosition commands an absolute move to the given step position. The
// target is recorded before the goto command is issued so subsequent
// IsMoving calls can compare against it.
func (f *Focuser) SetPosition(ctx context.Context, position int) error {
	f.mu.Lock()
	f.targetPosition = position
	f.movingState = FocuserMovingStateMoving
	f.mu.Unlock()

	params := url.Values{}
	params.Set("target", strconv.Itoa(position))

	if _, err := f.client.Get(ctx, "/focuser/goto", params); err != nil {
		return err
	}

	f.logger.Debug("Focuser move commanded", zap.Int("target", position))

	return nil
}

// AbortMove stops any ongoing movement. The stop command is issued
// unconditionally; it is also the first step of Disconnect.
func (f *Focuser) AbortMove(ctx context.Context) error {
	if _, err := f.client.Get(ctx, "/focuser/stop", nil); err != nil {
		return err
	}

	f.mu.Lock()
	f.movingState = FocuserMovingStateIdle
	f.mu.Unlock()

	return nil
}

// GetDriverVersion returns the controller driver version. While
// disconnected it returns the zero version without touching the
// network.
func (f *Focuser) GetDriverVersion(ctx context.Context) (Version, error) {
	if f.State() == DeviceStateDisconnected {
		return Version{}, nil
	}

	raw, err := f.client.Get(ctx, "/status", nil)
	if err != nil {
		return Version{}, err
	}

	return ParseVersion(raw)
}

// GetFirmwareVersion is not exposed by PWI focuser hardware.
func (f *Focuser) GetFirmwareVersion(ctx context.Context) (Version, error) {
	return Version{}, &UnsupportedOperationError{Device: f.label(), Operation: "firmware version query"}
}

// GetCapabilities is not exposed by PWI focuser hardware.
func (f *Focuser) GetCapabilities(ctx context.Context) ([]string, error) {
	return nil, &UnsupportedOperationError{Device: f.label(), Operation: "capability query"}
}

func (f *Focuser) label() string {
	return fmt.Sprintf("focuser %d", f.id)
}
