package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/pairhive/relay/internal/relay"
	"go.uber.org/zap"
)

var (
	errMissingStatusProvider = errors.New("room status provider dependency required")
	errMissingHub            = errors.New("websocket hub dependency required")
)

// RoomStatusProvider is the read-only projection the HTTP surface exposes.
type RoomStatusProvider interface {
	Status(roomID string) relay.RoomStatus
}

// MetricsHandler serves the Prometheus scrape endpoint.
type MetricsHandler interface {
	Handler() http.Handler
}

// Dependencies wires the HTTP surface to the relay core and transport.
type Dependencies struct {
	StatusProvider RoomStatusProvider
	Hub            *Hub
	Metrics        MetricsHandler
	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewHTTPHandler builds the gin router: liveness probe, room status
// projection, metrics scrape and the websocket upgrade endpoint.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.StatusProvider == nil {
		return nil, errMissingStatusProvider
	}
	if deps.Hub == nil {
		return nil, errMissingHub
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{"Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		status: deps.StatusProvider,
		logger: logger,
	}

	router.GET("/healthz", handler.handleHealth)
	router.GET("/rooms/:roomId", handler.handleRoomStatus)
	router.GET("/ws", func(c *gin.Context) {
		deps.Hub.ServeWS(c.Writer, c.Request)
	})
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	return router, nil
}

type httpHandler struct {
	status RoomStatusProvider
	logger *zap.Logger
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *httpHandler) handleRoomStatus(c *gin.Context) {
	roomID := c.Param("roomId")
	if roomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_room_id"})
		return
	}
	c.JSON(http.StatusOK, h.status.Status(roomID))
}
