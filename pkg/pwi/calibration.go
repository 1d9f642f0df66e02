package pwi

import (
	"fmt"
)

// NumericRange is an inclusive numeric interval.
type NumericRange struct {
	Minimum float64
	Maximum float64
}

// CalibrationSpec describes a horizontal calibration sampling grid:
// a range of altitudes sampled at a fixed number of points, crossed
// with azimuth samples spread over [0°, 360°).
type CalibrationSpec struct {
	// AltitudeRange is the inclusive altitude interval to sample
	AltitudeRange NumericRange
	// AltitudePoints is the number of altitude samples across the range
	AltitudePoints int
	// AzimuthPoints is the number of azimuth samples from 0° up to,
	// but not including, 360°
	AzimuthPoints int
}

// Validate checks the grid parameters.
func (s CalibrationSpec) Validate() error {
	if s.AltitudePoints < 1 {
		return fmt.Errorf("altitude points must be at least 1, got %d", s.AltitudePoints)
	}
	if s.AzimuthPoints < 1 {
		return fmt.Errorf("azimuth points must be at least 1, got %d", s.AzimuthPoints)
	}
	if s.AltitudeRange.Minimum > s.AltitudeRange.Maximum {
		return fmt.Errorf("altitude range minimum %.2f exceeds maximum %.2f",
			s.AltitudeRange.Minimum, s.AltitudeRange.Maximum)
	}
	if s.AltitudeRange.Minimum < -90 || s.AltitudeRange.Maximum > 90 {
		return fmt.Errorf("altitude range must lie within [-90, 90]")
	}
	return nil
}

// Coordinates generates the sampling grid. Altitudes are spaced evenly
// across the inclusive range; azimuths are spaced evenly over [0, 360).
// Samples are ordered altitude-major so the mount sweeps each altitude
// ring in one pass.
func (s CalibrationSpec) Coordinates() []TopocentricCoordinate {
	altitudeStep := 0.0
	if s.AltitudePoints > 1 {
		altitudeStep = (s.AltitudeRange.Maximum - s.AltitudeRange.Minimum) / float64(s.AltitudePoints-1)
	}

	azimuthStep := 360.0 / float64(s.AzimuthPoints)

	coordinates := make([]TopocentricCoordinate, 0, s.AltitudePoints*s.AzimuthPoints)
	for i := 0; i < s.AltitudePoints; i++ {
		altitude := s.AltitudeRange.Minimum + float64(i)*altitudeStep
		for j := 0; j < s.AzimuthPoints; j++ {
			coordinates = append(coordinates, TopocentricCoordinate{
				Altitude: altitude,
				Azimuth:  float64(j) * azimuthStep,
			})
		}
	}

	return coordinates
}
