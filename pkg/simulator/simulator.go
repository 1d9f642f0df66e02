// Package simulator implements an in-process PWI control surface for
// development and testing: the same GET command endpoints and
// line-oriented plain-text status payload a real controller serves.
package simulator

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Kind selects which device type the simulated controller exposes.
type Kind string

const (
	// KindFocuser simulates a focuser controller
	KindFocuser Kind = "focuser"
	// KindMount simulates a mount controller
	KindMount Kind = "mount"
)

// Simulator holds the state of one simulated controller. Commanded
// moves complete instantly so test assertions stay deterministic.
type Simulator struct {
	kind   Kind
	logger *zap.Logger

	mu        sync.Mutex
	connected bool
	enabled   bool
	moving    bool
	tracking  bool
	position  int
	altitude  float64
	azimuth   float64
	version   string
	samples   int
}

// New creates a simulator for the given device kind.
func New(kind Kind, logger *zap.Logger) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Simulator{
		kind:    kind,
		logger:  logger.With(zap.String("component", "simulator"), zap.String("kind", string(kind))),
		version: "4.0.11",
	}
}

// Router builds the gin router serving the control surface.
func (s *Simulator) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/status", s.handleStatus)

	switch s.kind {
	case KindFocuser:
		router.GET("/focuser/enable", s.handleEnable)
		router.GET("/focuser/disable", s.handleDisable)
		router.GET("/focuser/stop", s.handleStop)
		router.GET("/focuser/goto", s.handleFocuserGoto)
	case KindMount:
		router.GET("/mount/enable", s.handleEnable)
		router.GET("/mount/disable", s.handleDisable)
		router.GET("/mount/stop", s.handleStop)
		router.GET("/mount/goto", s.handleMountGoto)
		router.GET("/mount/follow_tle", s.handleFollowTLE)
		router.GET("/mount/model/add_point", s.handleAddPoint)
	}

	return router
}

// ModelSamples returns the number of pointing-model samples recorded.
func (s *Simulator) ModelSamples() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.samples
}

func (s *Simulator) handleEnable(c *gin.Context) {
	s.mu.Lock()
	s.connected = true
	s.enabled = true
	s.mu.Unlock()

	s.logger.Debug("Device enabled")
	c.String(http.StatusOK, "")
}

func (s *Simulator) handleDisable(c *gin.Context) {
	s.mu.Lock()
	s.connected = false
	s.enabled = false
	s.mu.Unlock()

	s.logger.Debug("Device disabled")
	c.String(http.StatusOK, "")
}

func (s *Simulator) handleStop(c *gin.Context) {
	s.mu.Lock()
	s.moving = false
	s.tracking = false
	s.mu.Unlock()

	c.String(http.StatusOK, "")
}

func (s *Simulator) handleFocuserGoto(c *gin.Context) {
	target, err := strconv.Atoi(c.Query("target"))
	if err != nil {
		c.String(http.StatusBadRequest, "invalid target")
		return
	}

	s.mu.Lock()
	if !s.enabled {
		s.mu.Unlock()
		c.String(http.StatusConflict, "focuser not enabled")
		return
	}
	s.position = target
	s.moving = false
	s.mu.Unlock()

	s.logger.Debug("Focuser moved", zap.Int("target", target))
	c.String(http.StatusOK, "")
}

func (s *Simulator) handleMountGoto(c *gin.Context) {
	altitude, altErr := strconv.ParseFloat(c.Query("alt_degs"), 64)
	azimuth, azErr := strconv.ParseFloat(c.Query("az_degs"), 64)
	if altErr != nil || azErr != nil {
		c.String(http.StatusBadRequest, "invalid coordinate")
		return
	}

	s.mu.Lock()
	if !s.enabled {
		s.mu.Unlock()
		c.String(http.StatusConflict, "mount not enabled")
		return
	}
	s.altitude = altitude
	s.azimuth = azimuth
	s.moving = false
	s.mu.Unlock()

	c.String(http.StatusOK, "")
}

func (s *Simulator) handleFollowTLE(c *gin.Context) {
	line1 := c.Query("line1")
	line2 := c.Query("line2")
	if !strings.HasPrefix(line1, "1 ") || !strings.HasPrefix(line2, "2 ") {
		c.String(http.StatusBadRequest, "invalid element set")
		return
	}

	s.mu.Lock()
	if !s.enabled {
		s.mu.Unlock()
		c.String(http.StatusConflict, "mount not enabled")
		return
	}
	s.tracking = true
	s.mu.Unlock()

	c.String(http.StatusOK, "")
}

func (s *Simulator) handleAddPoint(c *gin.Context) {
	s.mu.Lock()
	s.samples++
	s.mu.Unlock()

	c.String(http.StatusOK, "")
}

func (s *Simulator) handleStatus(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder

	fmt.Fprintf(&b, "is_connected=%t\n", s.connected)
	fmt.Fprintf(&b, "is_enabled=%t\n", s.enabled)

	switch s.kind {
	case KindFocuser:
		fmt.Fprintf(&b, "is_moving=%t\n", s.moving)
		fmt.Fprintf(&b, "position=%d\n", s.position)
	case KindMount:
		fmt.Fprintf(&b, "is_slewing=%t\n", s.moving)
		fmt.Fprintf(&b, "is_tracking=%t\n", s.tracking)
		fmt.Fprintf(&b, "altitude_degs=%.4f\n", s.altitude)
		fmt.Fprintf(&b, "azimuth_degs=%.4f\n", s.azimuth)
	}

	fmt.Fprintf(&b, "version=%s\n", s.version)

	c.String(http.StatusOK, b.String())
}
