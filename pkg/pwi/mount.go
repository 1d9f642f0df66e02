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

// MountAlignmentMode is the mechanical alignment of the mount.
type MountAlignmentMode string

const (
	MountAlignmentModeUnknown     MountAlignmentMode = "unknown"
	MountAlignmentModeEquatorial  MountAlignmentMode = "equatorial"
	MountAlignmentModeHorizontal  MountAlignmentMode = "horizontal"
	MountAlignmentModeAltAz       MountAlignmentMode = "alt_az"
	MountAlignmentModePolar       MountAlignmentMode = "polar"
	MountAlignmentModeGermanPolar MountAlignmentMode = "german_polar"
)

// MountTrackingMode selects the rate at which the mount follows the sky.
type MountTrackingMode string

const (
	MountTrackingModeSidereal MountTrackingMode = "sidereal"
	MountTrackingModeSolar    MountTrackingMode = "solar"
	MountTrackingModeLunar    MountTrackingMode = "lunar"
	MountTrackingModeCustom   MountTrackingMode = "custom"
)

// MountSlewingState is the client-declared slewing state.
type MountSlewingState string

const (
	MountSlewingStateIdle    MountSlewingState = "idle"
	MountSlewingStateSlewing MountSlewingState = "slewing"
)

// MountTrackingState is the client-declared tracking state.
type MountTrackingState string

const (
	MountTrackingStateIdle     MountTrackingState = "idle"
	MountTrackingStateTracking MountTrackingState = "tracking"
)

// MountParameters configures a mount device interface.
type MountParameters struct {
	DeviceParameters

	// Alignment is the mechanical alignment mode of the mount
	Alignment MountAlignmentMode
	// Tracking is the rate profile used when following a target;
	// sidereal when empty
	Tracking MountTrackingMode
	// Latitude of the observing site, in degrees north
	Latitude float64
	// Longitude of the observing site, in degrees east
	Longitude float64
	// Elevation of the observing site above sea level, in metres
	Elevation float64
}

// Mount is the device interface for a PWI telescope mount. It shares
// the focuser's lifecycle discipline: the same retry-free command
// transport, the same connection state machine and a fresh status query
// on every read.
//
// Orbital propagation for element-set tracking runs on the PWI
// controller itself; the client only ships the element set and polls
// the resulting topocentric pointing.
type Mount struct {
	id     int
	params MountParameters
	client *Client
	logger *zap.Logger

	mu            sync.Mutex
	state         DeviceState
	slewingState  MountSlewingState
	trackingState MountTrackingState
}

var _ Device = (*Mount)(nil)

// NewMount creates a mount interface backed by the given client. A nil
// client selects the default controller at localhost:8220.
func NewMount(id int, params MountParameters, client *Client, logger *zap.Logger) *Mount {
	if logger == nil {
		logger = zap.NewNop()
	}
	if client == nil {
		client, _ = NewClient(nil, logger)
	}

	if params.Name == "" {
		params.Name = "PlaneWave Mount"
	}
	if params.Description == "" {
		params.Description = "PlaneWave Mount Interface (HTTP)"
	}
	if params.Alignment == "" {
		params.Alignment = MountAlignmentModeUnknown
	}
	if params.Tracking == "" {
		params.Tracking = MountTrackingModeSidereal
	}

	return &Mount{
		id:            id,
		params:        params,
		client:        client,
		logger:        logger.With(zap.String("component", "mount"), zap.Int("device_id", id)),
		state:         DeviceStateDisconnected,
		slewingState:  MountSlewingStateIdle,
		trackingState: MountTrackingStateIdle,
	}
}

// ID returns the unique device identifier.
func (m *Mount) ID() int {
	return m.id
}

// Name returns the configured device name.
func (m *Mount) Name() string {
	return m.params.Name
}

// Description returns the configured device description.
func (m *Mount) Description() string {
	return m.params.Description
}

// TrackingMode returns the configured tracking rate profile.
func (m *Mount) TrackingMode() MountTrackingMode {
	return m.params.Tracking
}

// AlignmentMode returns the configured mechanical alignment mode.
func (m *Mount) AlignmentMode() MountAlignmentMode {
	return m.params.Alignment
}

// Site returns the configured observing site coordinates as latitude,
// longitude and elevation.
func (m *Mount) Site() (float64, float64, float64) {
	return m.params.Latitude, m.params.Longitude, m.params.Elevation
}

// State returns the current connection state.
func (m *Mount) State() DeviceState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Mount) setState(state DeviceState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
}

// Initialise attempts, up to retries times, to reset transient state,
// connect and obtain one non-empty status snapshot. Each attempt is
// bounded to timeout; see initialiseWithRetry for the cancellation
// semantics of abandoned attempts.
func (m *Mount) Initialise(ctx context.Context, timeout time.Duration, retries int) error {
	attempt := func(ctx context.Context) error {
		if m.State() == DeviceStateConnected {
			return nil
		}

		m.mu.Lock()
		m.state = DeviceStateDisconnected
		m.slewingState = MountSlewingStateIdle
		m.trackingState = MountTrackingStateIdle
		m.mu.Unlock()

		if err := m.Connect(ctx); err != nil {
			return err
		}

		status, err := m.GetStatus(ctx)
		if err != nil {
			return err
		}
		if status == nil {
			return &StatusUnavailableError{Device: m.label()}
		}

		return nil
	}

	m.logger.Debug("Initialising mount",
		zap.Duration("timeout", timeout),
		zap.Int("retries", retries))

	return initialiseWithRetry(ctx, m.label(), timeout, retries, attempt)
}

// Reset disconnects the mount and re-initialises it with the default
// timeout and retry count.
func (m *Mount) Reset(ctx context.Context) error {
	if err := m.Disconnect(ctx); err != nil {
		return err
	}
	return m.Initialise(ctx, DefaultInitialiseTimeout, DefaultInitialiseRetries)
}

// Connect enables the mount and moves the session to the connected
// state. It is idempotent: when already connected no request is made.
// On transport failure the state is left unchanged.
func (m *Mount) Connect(ctx context.Context) error {
	if m.State() == DeviceStateConnected {
		return nil
	}

	if _, err := m.client.Get(ctx, "/mount/enable", nil); err != nil {
		return err
	}

	m.setState(DeviceStateConnected)
	m.logger.Info("Mount connected")

	return nil
}

// Disconnect aborts any in-progress slew, disables the mount and drops
// the session. The local state is unconditionally reset to
// disconnected, even when the stop or disable command fails partway.
func (m *Mount) Disconnect(ctx context.Context) error {
	if m.State() == DeviceStateDisconnected {
		return nil
	}

	defer func() {
		m.setState(DeviceStateDisconnected)
		m.logger.Info("Mount disconnected")
	}()

	// Fail-safe ordering: stop the hardware before dropping the session.
	if err := m.AbortSlew(ctx); err != nil {
		return err
	}

	if _, err := m.client.Get(ctx, "/mount/disable", nil); err != nil {
		return err
	}

	return nil
}

// GetStatus queries and validates one status snapshot. While
// disconnected it returns nil without touching the network.
func (m *Mount) GetStatus(ctx context.Context) (*MountStatus, error) {
	if m.State() == DeviceStateDisconnected {
		return nil, nil
	}

	raw, err := m.client.Get(ctx, "/status", nil)
	if err != nil {
		return nil, err
	}

	return ParseMountStatus(raw)
}

// IsConnected reports connectivity only when the local state machine
// and the freshly fetched device-reported flag agree.
func (m *Mount) IsConnected(ctx context.Context) (bool, error) {
	if m.State() == DeviceStateDisconnected {
		return false, nil
	}

	status, err := m.GetStatus(ctx)
	if err != nil {
		return false, err
	}
	if status == nil {
		return false, nil
	}

	return m.State() == DeviceStateConnected && status.IsConnected, nil
}

// IsReady reports whether the mount can accept a slew: connected on
// both sides, enabled, and not currently slewing.
func (m *Mount) IsReady(ctx context.Context) (bool, error) {
	if m.State() == DeviceStateDisconnected {
		return false, nil
	}

	status, err := m.GetStatus(ctx)
	if err != nil {
		return false, err
	}
	if status == nil {
		return false, nil
	}

	return m.State() == DeviceStateConnected &&
		status.IsConnected &&
		status.IsEnabled &&
		!status.IsSlewing, nil
}

// IsSlewing reports whether a slew issued by this client is still in
// progress: the controller must report motion and the local slewing
// state must agree.
func (m *Mount) IsSlewing(ctx context.Context) (bool, error) {
	status, err := m.GetStatus(ctx)
	if err != nil {
		return false, err
	}
	if status == nil {
		return false, &StatusUnavailableError{Device: m.label()}
	}

	m.mu.Lock()
	slewingState := m.slewingState
	m.mu.Unlock()

	return status.IsSlewing && slewingState == MountSlewingStateSlewing, nil
}

// IsTracking reports whether a follow issued by this client is active:
// the controller must report tracking and the local tracking state must
// agree.
func (m *Mount) IsTracking(ctx context.Context) (bool, error) {
	status, err := m.GetStatus(ctx)
	if err != nil {
		return false, err
	}
	if status == nil {
		return false, &StatusUnavailableError{Device: m.label()}
	}

	m.mu.Lock()
	trackingState := m.trackingState
	m.mu.Unlock()

	return status.IsTracking && trackingState == MountTrackingStateTracking, nil
}

// SlewToTopocentric commands a slew to the given topocentric
// coordinate. The slewing state is recorded before the goto command is
// issued.
func (m *Mount) SlewToTopocentric(ctx context.Context, coordinate TopocentricCoordinate) error {
	m.mu.Lock()
	m.slewingState = MountSlewingStateSlewing
	m.mu.Unlock()

	params := url.Values{}
	params.Set("alt_degs", strconv.FormatFloat(coordinate.Altitude, 'f', -1, 64))
	params.Set("az_degs", strconv.FormatFloat(coordinate.Azimuth, 'f', -1, 64))

	if _, err := m.client.Get(ctx, "/mount/goto", params); err != nil {
		return err
	}

	m.logger.Debug("Mount slew commanded",
		zap.Float64("altitude", coordinate.Altitude),
		zap.Float64("azimuth", coordinate.Azimuth))

	return nil
}

// FollowTLE commands the mount to slew to and follow the satellite
// described by the given two-line element set. Propagation runs on the
// controller; the client polls GetTopocentricCoordinate to observe the
// resulting pointing.
func (m *Mount) FollowTLE(ctx context.Context, tle TLE) error {
	if err := tle.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	m.slewingState = MountSlewingStateSlewing
	m.trackingState = MountTrackingStateTracking
	m.mu.Unlock()

	params := url.Values{}
	params.Set("line0", tle.Line0)
	params.Set("line1", tle.Line1)
	params.Set("line2", tle.Line2)

	if _, err := m.client.Get(ctx, "/mount/follow_tle", params); err != nil {
		return err
	}

	m.logger.Info("Mount following element set", zap.String("name", tle.Name()))

	return nil
}

// GetTopocentricCoordinate returns the current pointing of the mount
// from a fresh status snapshot.
func (m *Mount) GetTopocentricCoordinate(ctx context.Context) (*TopocentricCoordinate, error) {
	status, err := m.GetStatus(ctx)
	if err != nil {
		return nil, err
	}
	if status == nil {
		return nil, &StatusUnavailableError{Device: m.label()}
	}
	if status.Altitude == nil || status.Azimuth == nil {
		return nil, fmt.Errorf("%s: topocentric coordinate not available", m.label())
	}

	return &TopocentricCoordinate{
		Altitude: *status.Altitude,
		Azimuth:  *status.Azimuth,
	}, nil
}

// AbortSlew stops any ongoing slew and cancels tracking. The stop
// command is issued unconditionally; it is also the first step of
// Disconnect.
func (m *Mount) AbortSlew(ctx context.Context) error {
	if _, err := m.client.Get(ctx, "/mount/stop", nil); err != nil {
		return err
	}

	m.mu.Lock()
	m.slewingState = MountSlewingStateIdle
	m.trackingState = MountTrackingStateIdle
	m.mu.Unlock()

	return nil
}

// CalibrateHorizontal walks the horizontal calibration grid described
// by spec, slewing to each coordinate and recording a pointing-model
// sample there. The walk stops at the first failed command.
func (m *Mount) CalibrateHorizontal(ctx context.Context, spec CalibrationSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	coordinates := spec.Coordinates()

	m.logger.Info("Starting horizontal calibration", zap.Int("samples", len(coordinates)))

	for _, coordinate := range coordinates {
		if err := m.SlewToTopocentric(ctx, coordinate); err != nil {
			return err
		}

		params := url.Values{}
		params.Set("alt_degs", strconv.FormatFloat(coordinate.Altitude, 'f', -1, 64))
		params.Set("az_degs", strconv.FormatFloat(coordinate.Azimuth, 'f', -1, 64))

		if _, err := m.client.Get(ctx, "/mount/model/add_point", params); err != nil {
			return err
		}
	}

	return nil
}

// GetDriverVersion returns the controller driver version. While
// disconnected it returns the zero version without touching the
// network.
func (m *Mount) GetDriverVersion(ctx context.Context) (Version, error) {
	if m.State() == DeviceStateDisconnected {
		return Version{}, nil
	}

	raw, err := m.client.Get(ctx, "/status", nil)
	if err != nil {
		return Version{}, err
	}

	return ParseVersion(raw)
}

// GetFirmwareVersion is not exposed by PWI mount hardware.
func (m *Mount) GetFirmwareVersion(ctx context.Context) (Version, error) {
	return Version{}, &UnsupportedOperationError{Device: m.label(), Operation: "firmware version query"}
}

func (m *Mount) label() string {
	return fmt.Sprintf("mount %d", m.id)
}
