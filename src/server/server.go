// Package server implements the logrero control plane: it serves per-device
// policies to agents and stores the records they forward.
package server

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"logrero/src/contracts"
	"logrero/src/logger"
	"logrero/src/store"
)

// DefaultPriorities is the policy served to a device nobody configured.
var DefaultPriorities = []string{"4"}

// maxRecordBody caps the size of one forwarded record after decompression.
const maxRecordBody = 1 << 20

// Server routes the control-plane API onto a Store.
type Server struct {
	store    store.Store
	token    string
	defaults contracts.Policy
	logger   logger.Logger
	now      func() time.Time
	router   *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithDefaultPolicy sets the policy served to devices without one of their own.
func WithDefaultPolicy(p contracts.Policy) Option {
	return func(s *Server) {
		s.defaults = p.Clone()
	}
}

// New creates a Server. Every API request must carry token as a bearer credential.
func New(st store.Store, token string, log logger.Logger, opts ...Option) *Server {
	s := &Server{
		store:    st,
		token:    token,
		defaults: contracts.Policy{Priorities: append([]string(nil), DefaultPriorities...)},
		logger:   log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	router := gin.New()
	router.Use(gin.Recovery(), s.requestLog())

	v1 := router.Group("/api/v1", s.authenticate())
	{
		v1.GET("/device/:id/settings", s.getSettings)
		v1.PUT("/device/:id/settings", s.putSettings)
		v1.POST("/device/:id/logs", s.postLogs)
		v1.GET("/device/:id/logs", s.getLogs)
		v1.POST("/device/:id/heartbeat", s.postHeartbeat)
		v1.GET("/devices", s.getDevices)
	}

	s.router = router
	return s
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// DefaultPolicy returns the policy served to devices without one of their own.
func (s *Server) DefaultPolicy() contracts.Policy {
	return s.defaults.Clone()
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("[Server] %s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// authenticate answers 401 without a bearer token and 403 with a wrong one.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing bearer token"})
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.token)) != 1 {
			s.logger.Warn("[Server] rejected token from %s (%s)", c.ClientIP(), c.Request.UserAgent())
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "invalid token"})
			return
		}
		c.Next()
	}
}

func (s *Server) getSettings(c *gin.Context) {
	id := c.Param("id")

	policy, err := s.store.GetPolicy(c.Request.Context(), id)
	var notFound store.ErrNotFound
	switch {
	case errors.As(err, &notFound):
		policy = s.DefaultPolicy()
	case err != nil:
		s.internalError(c, "get settings", err)
		return
	}
	if policy.Priorities == nil {
		policy.Priorities = []string{}
	}
	c.JSON(http.StatusOK, policy)
}

type policyRequest struct {
	Priorities []string `json:"priorities" binding:"required"`
}

func (s *Server) putSettings(c *gin.Context) {
	id := c.Param("id")

	var req policyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid settings: " + err.Error()})
		return
	}

	policy := contracts.Policy{Priorities: req.Priorities}
	if err := s.store.SetPolicy(c.Request.Context(), id, policy); err != nil {
		s.internalError(c, "set settings", err)
		return
	}
	s.logger.Info("[Server] settings for %s set to priorities %v", id, policy.Priorities)
	c.Status(http.StatusNoContent)
}

func (s *Server) postLogs(c *gin.Context) {
	id := c.Param("id")

	record, err := decodeRecordRequest(c.Request)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	stored, err := s.store.AppendRecord(c.Request.Context(), id, record)
	if err != nil {
		s.internalError(c, "store record", err)
		return
	}
	s.logger.Trace("[Server] record %s from %s (priority %s)", stored.ID, id, record.Priority)
	c.JSON(http.StatusCreated, gin.H{"id": stored.ID})
}

func (s *Server) getLogs(c *gin.Context) {
	id := c.Param("id")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	records, err := s.store.ListRecords(c.Request.Context(), id, limit)
	if err != nil {
		s.internalError(c, "list records", err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) postHeartbeat(c *gin.Context) {
	id := c.Param("id")

	// The body is optional; agents without heartbeat details post nothing.
	var hb contracts.Heartbeat
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&hb); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid heartbeat: " + err.Error()})
			return
		}
	}

	if err := s.store.Touch(c.Request.Context(), id, s.now()); err != nil {
		s.internalError(c, "heartbeat", err)
		return
	}
	s.logger.Debug("[Server] heartbeat from %s: priorities %v, %d filters", id, hb.Priorities, hb.Filters)
	c.Status(http.StatusNoContent)
}

func (s *Server) getDevices(c *gin.Context) {
	devices, err := s.store.ListDevices(c.Request.Context())
	if err != nil {
		s.internalError(c, "list devices", err)
		return
	}

	summaries := make([]contracts.DeviceSummary, 0, len(devices))
	for _, d := range devices {
		summary := contracts.DeviceSummary{
			ID:      d.ID,
			Policy:  s.DefaultPolicy(),
			Records: d.Records,
		}
		if d.Policy != nil {
			summary.Policy = d.Policy.Clone()
		}
		if !d.LastSeen.IsZero() {
			summary.LastSeen = d.LastSeen.UTC().Format(time.RFC3339)
		}
		summaries = append(summaries, summary)
	}
	c.JSON(http.StatusOK, summaries)
}

func (s *Server) internalError(c *gin.Context, op string, err error) {
	s.logger.Error("[Server] %s failed: %v", op, err)
	c.JSON(http.StatusInternalServerError, gin.H{"message": op + " failed"})
}
