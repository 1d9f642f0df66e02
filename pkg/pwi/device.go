package pwi

import (
	"context"
	"time"
)

// DeviceState is the client-side connection state of one device session.
type DeviceState string

const (
	// DeviceStateDisconnected is the initial state; commands that need
	// connectivity are refused while in it
	DeviceStateDisconnected DeviceState = "disconnected"
	// DeviceStateConnected is entered only by a successful Connect
	DeviceStateConnected DeviceState = "connected"
)

const (
	// DefaultInitialiseTimeout bounds each initialisation attempt.
	DefaultInitialiseTimeout = 5 * time.Second
	// DefaultInitialiseRetries is the number of initialisation attempts.
	DefaultInitialiseRetries = 3
)

// DeviceParameters holds the identity and display configuration shared
// by every device variant. It is constructed once at device creation
// and never mutated afterward.
type DeviceParameters struct {
	// DeviceID is the controller-assigned device identifier
	DeviceID string
	// VendorID is the USB vendor ID, when known
	VendorID string
	// ProductID is the USB product ID, when known
	ProductID string
	// Name is the human-readable device name
	Name string
	// Description is a human-readable device description
	Description string
}

// Device is the capability set shared by every device variant.
type Device interface {
	// Initialise drives bounded, timed attempts to bring the device up
	Initialise(ctx context.Context, timeout time.Duration, retries int) error
	// Connect establishes the device session; idempotent when connected
	Connect(ctx context.Context) error
	// Disconnect tears the session down; the local state always ends up
	// disconnected, even when the disable command fails partway
	Disconnect(ctx context.Context) error
	// IsConnected requires the local state machine and the freshly
	// fetched device-reported flag to agree
	IsConnected(ctx context.Context) (bool, error)
	// Name returns the configured device name
	Name() string
	// Description returns the configured device description
	Description() string
}

// initialiseWithRetry runs attempt up to retries times, bounding each
// run to timeout. Non-final failures are swallowed and retried. The
// final exhausted attempt surfaces a *InitialiseTimeoutError on
// deadline expiry, or the attempt's own error otherwise.
//
// Each attempt runs in its own goroutine so a hung network call cannot
// block the caller past the deadline. The attempt context is cancelled
// on expiry, which aborts in-flight HTTP requests, but an abandoned
// attempt that has already passed its last cancellation point may still
// complete and flip shared device state; the result channel is buffered
// so such stray completions are discarded without leaking the goroutine.
func initialiseWithRetry(ctx context.Context, device string, timeout time.Duration, retries int, attempt func(context.Context) error) error {
	if timeout <= 0 {
		timeout = DefaultInitialiseTimeout
	}
	if retries <= 0 {
		retries = DefaultInitialiseRetries
	}

	for i := 0; i < retries; i++ {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)

		done := make(chan error, 1)
		go func() {
			done <- attempt(attemptCtx)
		}()

		select {
		case err := <-done:
			cancel()
			if err == nil {
				return nil
			}
			if i == retries-1 {
				return err
			}
		case <-attemptCtx.Done():
			cancel()
			if err := ctx.Err(); err != nil {
				// The caller's context ended, not the attempt deadline.
				return err
			}
			if i == retries-1 {
				return &InitialiseTimeoutError{Device: device, Attempts: retries, Timeout: timeout}
			}
		}
	}

	return &InitialiseTimeoutError{Device: device, Attempts: retries, Timeout: timeout}
}
