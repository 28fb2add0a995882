// Package webhook is the primary inbound transport: an HTTP endpoint
// accepting message-forwarding payloads from an email provider.
package webhook

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vcaboara/job-lead-finder-sub000/internal/core"
	"github.com/vcaboara/job-lead-finder-sub000/internal/metrics"
)

// maxRequestBytes bounds inbound request bodies. It sits well above the
// message size cap so an oversized email still reaches validation and gets a
// structured rejection instead of a truncated read.
const maxRequestBytes = 8 << 20

// inboundRequest is the webhook payload shape
type inboundRequest struct {
	To      string `json:"to" binding:"required"`
	From    string `json:"from" binding:"required"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}

// Server is the HTTP inbound adapter implementing core.InboundServer
type Server struct {
	service  *core.IngestService
	registry core.AddressRegistry
	logger   *zap.Logger
	srv      *http.Server
}

// NewServer creates the webhook server listening on addr
func NewServer(service *core.IngestService, registry core.AddressRegistry, logger *zap.Logger, addr string) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		service:  service,
		registry: registry,
		logger:   logger,
	}
	engine.Use(s.observe())

	engine.POST("/webhook/inbound", s.handleInbound)
	engine.POST("/users/:id/forwarding-address", s.handleProvision)
	engine.GET("/users/:id/stats", s.handleStats)
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Webhook server starting", zap.String("address", s.srv.Addr))
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop shuts the HTTP server down
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

// handleInbound accepts one forwarded email. Structurally valid payloads get
// a success acknowledgment even when classification fails or the address is
// unknown, so the provider's retry machinery is never trained on ambiguous
// emails.
func (s *Server) handleInbound(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBytes)

	var req inboundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.IncrementOutcome(string(core.OutcomeRejected))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, err := s.service.HandleInbound(c.Request.Context(), &core.InboundPayload{
		To:      req.To,
		From:    req.From,
		Subject: req.Subject,
		Text:    req.Text,
		HTML:    req.HTML,
	})

	if err != nil {
		switch {
		case errors.Is(err, core.ErrValidation):
			metrics.IncrementOutcome(string(core.OutcomeRejected))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, core.ErrRateLimited):
			metrics.IncrementOutcome(string(core.OutcomeRateLimited))
			c.Header("Retry-After", "3600")
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
		default:
			s.logger.Error("Inbound processing failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		}
		return
	}

	metrics.IncrementOutcome(string(result.Outcome))
	resp := gin.H{"status": "ok", "outcome": string(result.Outcome)}
	if result.EmailID != "" {
		resp["email_id"] = result.EmailID
	}
	if result.Classification != nil {
		resp["category"] = string(result.Classification.Category)
	}
	c.JSON(http.StatusOK, resp)
}

// handleProvision issues (or re-returns) the user's forwarding address
func (s *Server) handleProvision(c *gin.Context) {
	userID := c.Param("id")
	address, err := s.registry.Provision(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, core.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.logger.Error("Provisioning failed", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "provisioning failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": address})
}

// handleStats returns the user's forwarding-address counters
func (s *Server) handleStats(c *gin.Context) {
	userID := c.Param("id")
	cfg, err := s.registry.Stats(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown user"})
			return
		}
		s.logger.Error("Stats lookup failed", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"address":          cfg.Address,
		"emails_processed": cfg.EmailsProcessed,
		"last_email_at":    cfg.LastEmailAt,
		"is_active":        cfg.IsActive,
	})
}

// observe records request latency per route
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.ObserveHTTPRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
