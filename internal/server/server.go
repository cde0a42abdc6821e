// Package server is the HTTP front end: a thin gin layer that validates
// request shapes and hands turns to the engine. No pipeline logic lives here.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stellarlinkco/luma/internal/config"
	"github.com/stellarlinkco/luma/internal/engine"
)

type Server struct {
	cfg    config.ServerConfig
	engine *engine.Engine
	router *gin.Engine
	http   *http.Server
}

func New(cfg config.ServerConfig, eng *engine.Engine) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), loggingMiddleware())

	s := &Server{
		cfg:    cfg,
		engine: eng,
		router: router,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.router.Group("/api")
	api.POST("/chat", s.handleChat)
	api.POST("/conversations/start", s.handleStartConversation)
	api.GET("/users/:id/stats", s.handleUserStats)
	api.DELETE("/users/:id/memory", s.handleResetMemory)
	api.GET("/stats", s.handleSystemStats)
	api.GET("/health", s.handleHealth)
}

// Router exposes the handler tree for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("[server] %s %s -> %d (%s)",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

type chatRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	SessionID string `json:"session_id"`
	Message   string `json:"message" binding:"required"`
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if ok, reason := engine.ValidateUserID(req.UserID); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": reason})
		return
	}
	if req.SessionID == "" {
		req.SessionID = engine.NewSessionID()
	} else if ok, reason := engine.ValidateSessionID(req.SessionID); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": reason})
		return
	}

	resp, err := s.engine.Chat(c.Request.Context(), req.UserID, req.SessionID, req.Message)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

type startRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	SessionID string `json:"session_id"`
}

func (s *Server) handleStartConversation(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if ok, reason := engine.ValidateUserID(req.UserID); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": reason})
		return
	}
	if req.SessionID == "" {
		req.SessionID = engine.NewSessionID()
	}

	resp, err := s.engine.StartConversation(c.Request.Context(), req.UserID, req.SessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleUserStats(c *gin.Context) {
	userID := c.Param("id")
	if ok, reason := engine.ValidateUserID(userID); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": reason})
		return
	}

	stats, err := s.engine.GetUserStats(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleResetMemory(c *gin.Context) {
	userID := c.Param("id")
	if ok, reason := engine.ValidateUserID(userID); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": reason})
		return
	}

	sessionID := c.Query("session_id")
	var sessions []string
	if sessionID != "" {
		sessions = append(sessions, sessionID)
	}

	if err := s.engine.ResetUserMemory(c.Request.Context(), userID, sessions...); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

func (s *Server) handleSystemStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.GetSystemStats())
}

func (s *Server) handleHealth(c *gin.Context) {
	checks := s.engine.HealthCheck(c.Request.Context())
	status := http.StatusOK
	if !checks["overall"] {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, checks)
}

// Start blocks serving HTTP until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.http = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	log.Printf("[server] listening on %s", addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
