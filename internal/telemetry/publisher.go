// Package telemetry periodically snapshots observatory devices and
// publishes the results to the MQTT telemetry bus.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/michealroberts/pwi/pkg/mqtt"
	"github.com/michealroberts/pwi/pkg/pwi"
)

// DefaultInterval between status publications.
const DefaultInterval = 10 * time.Second

// SnapshotFunc captures the current state of one device.
type SnapshotFunc func(ctx context.Context) (interface{}, error)

// PublishFunc delivers one snapshot to the bus.
type PublishFunc func(topic string, message *mqtt.Message) error

// Publisher polls a single device on a fixed interval and publishes
// each snapshot as a status message. A snapshot or publish failure is
// logged and does not stop the loop.
type Publisher struct {
	source   string
	topic    string
	interval time.Duration
	snapshot SnapshotFunc
	publish  PublishFunc
	logger   *zap.Logger
}

// NewPublisher creates a publisher for one device. A non-positive
// interval selects DefaultInterval.
func NewPublisher(source, topic string, interval time.Duration, snapshot SnapshotFunc, publish PublishFunc, logger *zap.Logger) (*Publisher, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("snapshot func cannot be nil")
	}
	if publish == nil {
		return nil, fmt.Errorf("publish func cannot be nil")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Publisher{
		source:   source,
		topic:    topic,
		interval: interval,
		snapshot: snapshot,
		publish:  publish,
		logger:   logger.With(zap.String("component", "telemetry"), zap.String("source", source)),
	}, nil
}

// Run publishes one snapshot immediately, then on every interval tick
// until the context is cancelled.
func (p *Publisher) Run(ctx context.Context) {
	p.logger.Info("Telemetry publisher started",
		zap.String("topic", p.topic),
		zap.Duration("interval", p.interval))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.publishOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Telemetry publisher stopped")
			return
		case <-ticker.C:
			p.publishOnce(ctx)
		}
	}
}

func (p *Publisher) publishOnce(ctx context.Context) {
	snapshot, err := p.snapshot(ctx)
	if err != nil {
		p.logger.Warn("Failed to snapshot device", zap.Error(err))
		return
	}

	message, err := mqtt.NewMessage(mqtt.MessageTypeStatus, p.source, snapshot)
	if err != nil {
		p.logger.Warn("Failed to build status message", zap.Error(err))
		return
	}

	if err := p.publish(p.topic, message); err != nil {
		p.logger.Warn("Failed to publish status", zap.Error(err))
		return
	}

	p.logger.Debug("Status published", zap.String("topic", p.topic))
}

// FocuserSnapshot is the published focuser status payload.
type FocuserSnapshot struct {
	State       pwi.DeviceState `json:"state"`
	IsConnected bool            `json:"is_connected"`
	IsEnabled   bool            `json:"is_enabled"`
	IsMoving    bool            `json:"is_moving"`
	Position    *int            `json:"position,omitempty"`
}

// MountSnapshot is the published mount status payload.
type MountSnapshot struct {
	State       pwi.DeviceState `json:"state"`
	IsConnected bool            `json:"is_connected"`
	IsEnabled   bool            `json:"is_enabled"`
	IsSlewing   bool            `json:"is_slewing"`
	IsTracking  bool            `json:"is_tracking"`
	Altitude    *float64        `json:"alt_degs,omitempty"`
	Azimuth     *float64        `json:"az_degs,omitempty"`
}

// ForFocuser creates a publisher that snapshots the given focuser. A
// disconnected focuser publishes its local state with no hardware
// fields.
func ForFocuser(focuser *pwi.Focuser, interval time.Duration, publish PublishFunc, logger *zap.Logger) (*Publisher, error) {
	source := fmt.Sprintf("%s:%d", mqtt.DeviceKindFocuser, focuser.ID())
	topic := mqtt.DeviceStatusTopic(mqtt.DeviceKindFocuser, focuser.ID())

	snapshot := func(ctx context.Context) (interface{}, error) {
		status, err := focuser.GetStatus(ctx)
		if err != nil {
			return nil, err
		}

		result := FocuserSnapshot{State: focuser.State()}
		if status != nil {
			result.IsConnected = status.IsConnected
			result.IsEnabled = status.IsEnabled
			result.IsMoving = status.IsMoving
			result.Position = status.Position
		}
		return result, nil
	}

	return NewPublisher(source, topic, interval, snapshot, publish, logger)
}

// ForMount creates a publisher that snapshots the given mount.
func ForMount(mount *pwi.Mount, interval time.Duration, publish PublishFunc, logger *zap.Logger) (*Publisher, error) {
	source := fmt.Sprintf("%s:%d", mqtt.DeviceKindMount, mount.ID())
	topic := mqtt.DeviceStatusTopic(mqtt.DeviceKindMount, mount.ID())

	snapshot := func(ctx context.Context) (interface{}, error) {
		status, err := mount.GetStatus(ctx)
		if err != nil {
			return nil, err
		}

		result := MountSnapshot{State: mount.State()}
		if status != nil {
			result.IsConnected = status.IsConnected
			result.IsEnabled = status.IsEnabled
			result.IsSlewing = status.IsSlewing
			result.IsTracking = status.IsTracking
			result.Altitude = status.Altitude
			result.Azimuth = status.Azimuth
		}
		return result, nil
	}

	return NewPublisher(source, topic, interval, snapshot, publish, logger)
}
