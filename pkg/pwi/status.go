package pwi

import (
	"fmt"
	"strconv"
	"strings"
)

// FocuserStatus is a point-in-time snapshot of the focuser reported by
// one status query. Snapshots are never cached: hardware state can
// change between calls made by independent callers, so every read
// queries the controller afresh.
type FocuserStatus struct {
	// IsConnected reports whether the controller considers the focuser
	// connected. This can disagree with the client-side state machine.
	IsConnected bool
	// IsEnabled reports whether the focuser motor is enabled
	IsEnabled bool
	// IsMoving reports whether the focuser hardware is in motion
	IsMoving bool
	// Position is the current step position, when the firmware reports one
	Position *int
}

// ParseFocuserStatus validates a raw status payload into a
// FocuserStatus. The connected, enabled and moving flags are required;
// the position is optional because not every firmware version reports it.
func ParseFocuserStatus(raw []byte) (*FocuserStatus, error) {
	fields := ParseStatus(raw)

	isConnected, err := requireBool(fields, "is_connected")
	if err != nil {
		return nil, err
	}

	isEnabled, err := requireBool(fields, "is_enabled")
	if err != nil {
		return nil, err
	}

	isMoving, err := requireBool(fields, "is_moving")
	if err != nil {
		return nil, err
	}

	return &FocuserStatus{
		IsConnected: isConnected,
		IsEnabled:   isEnabled,
		IsMoving:    isMoving,
		Position:    optionalInt(fields, "position"),
	}, nil
}

// TopocentricCoordinate is an apparent sky position as seen from the
// observing site, in degrees.
type TopocentricCoordinate struct {
	// Altitude above the horizon, in degrees
	Altitude float64 `json:"altitude"`
	// Azimuth measured eastward from north, in degrees
	Azimuth float64 `json:"azimuth"`
}

// MountStatus is a point-in-time snapshot of the mount reported by one
// status query.
type MountStatus struct {
	IsConnected bool
	IsEnabled   bool
	// IsSlewing reports whether the mount is slewing toward a target
	IsSlewing bool
	// IsTracking reports whether the mount is tracking a target
	IsTracking bool
	// Altitude is the current pointing altitude in degrees, when reported
	Altitude *float64
	// Azimuth is the current pointing azimuth in degrees, when reported
	Azimuth *float64
}

// ParseMountStatus validates a raw status payload into a MountStatus.
// The four state flags are required; the pointing coordinates are
// optional.
func ParseMountStatus(raw []byte) (*MountStatus, error) {
	fields := ParseStatus(raw)

	isConnected, err := requireBool(fields, "is_connected")
	if err != nil {
		return nil, err
	}

	isEnabled, err := requireBool(fields, "is_enabled")
	if err != nil {
		return nil, err
	}

	isSlewing, err := requireBool(fields, "is_slewing")
	if err != nil {
		return nil, err
	}

	isTracking, err := requireBool(fields, "is_tracking")
	if err != nil {
		return nil, err
	}

	return &MountStatus{
		IsConnected: isConnected,
		IsEnabled:   isEnabled,
		IsSlewing:   isSlewing,
		IsTracking:  isTracking,
		Altitude:    optionalFloat(fields, "altitude_degs"),
		Azimuth:     optionalFloat(fields, "azimuth_degs"),
	}, nil
}

// Version is a semantic driver or firmware version reported by the
// controller.
type Version struct {
	Major int
	Minor int
	Patch int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// ParseVersion validates a raw status payload into a Version. The
// payload must carry a `version` field of the form major.minor.patch.
func ParseVersion(raw []byte) (Version, error) {
	fields := ParseStatus(raw)

	value, ok := fields["version"]
	if !ok {
		return Version{}, &ValidationError{Field: "version", Reason: "required field missing"}
	}

	parts := strings.Split(value, ".")
	if len(parts) != 3 {
		return Version{}, &ValidationError{Field: "version", Reason: "not a major.minor.patch triple: " + value}
	}

	numbers := make([]int, 3)
	for i, part := range parts {
		number, err := strconv.Atoi(part)
		if err != nil {
			return Version{}, &ValidationError{Field: "version", Reason: "not a major.minor.patch triple: " + value}
		}
		numbers[i] = number
	}

	return Version{Major: numbers[0], Minor: numbers[1], Patch: numbers[2]}, nil
}
