// Package web provides an HTTP server with routing and middleware.
// It uses Gin framework for high-performance web handling.
package web

import (
	"bytes"
	"fmt"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/PancyStudios/UselessBotGo/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
)

// Server represents the web server
type Server struct {
	engine           *gin.Engine
	webhookURL       string
	allowedHostRegex *regexp.Regexp
	limit            RateLimitConfig
	httpClient       *http.Client
}

var server *Server

// Init initializes the global web server
func Init(webhookURL, hostPattern string) (*Server, error) {
	s, err := NewServer(webhookURL, hostPattern)
	if err != nil {
		return nil, err
	}
	server = s
	return server, nil
}

// Get returns the global web server
func Get() *Server {
	return server
}

// NewServer creates a new web server. Requests whose Host does not match
// hostPattern are rejected with 403.
func NewServer(webhookURL, hostPattern string) (*Server, error) {
	if hostPattern == "" {
		hostPattern = ".*"
	}
	re, err := regexp.Compile(hostPattern)
	if err != nil {
		return nil, fmt.Errorf("patrón de host inválido %q: %w", hostPattern, err)
	}

	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:           engine,
		webhookURL:       webhookURL,
		allowedHostRegex: re,
		limit: RateLimitConfig{
			Window:      60 * time.Second,
			MaxRequests: 100,
		},
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}

	s.engine.Use(s.logsMiddleware())
	s.engine.Use(s.rateLimitMiddleware())

	s.setupErrorHandlers()

	return s, nil
}

// Engine returns the underlying Gin engine
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// logsMiddleware logs every request and rejects unknown hosts
func (s *Server) logsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.allowedHostRegex.MatchString(c.Request.Host) {
			logger.Debug(fmt.Sprintf("Nueva solicitud: %s %s", c.Request.Method, c.Request.URL.Path), "WebServer")
			go s.sendLogToWebhook(requestLog(c, false))
			c.Next()
			return
		}

		logger.Warn(fmt.Sprintf("Solicitud sospechosa: %s %s | %s", c.Request.Method, c.Request.URL.Path, c.ClientIP()), "WebServer")
		go s.sendLogToWebhook(requestLog(c, true))
		c.AbortWithStatus(http.StatusForbidden)
	}
}

// requestLogEntry holds what the webhook needs from a request. The gin
// context must not be used after the handler returns.
type requestLogEntry struct {
	Method     string
	Path       string
	IP         string
	Headers    http.Header
	Query      string
	Suspicious bool
}

func requestLog(c *gin.Context, suspicious bool) requestLogEntry {
	return requestLogEntry{
		Method:     c.Request.Method,
		Path:       c.Request.URL.Path,
		IP:         c.ClientIP(),
		Headers:    c.Request.Header.Clone(),
		Query:      c.Request.URL.RawQuery,
		Suspicious: suspicious,
	}
}

// webhookEmbed renders a request log as a Discord webhook payload
func webhookEmbed(entry requestLogEntry) ([]byte, error) {
	title := fmt.Sprintf("💫 | Nueva solicitud al servidor web de tipo %s", entry.Method)
	color := 0x00AE86

	if entry.Suspicious {
		title = fmt.Sprintf("💫 | Solicitud Sospechosa Rechazada: %s %s", entry.Method, entry.Path)
		color = 0xFFA500
	}

	headers, _ := json.Marshal(entry.Headers)
	query := entry.Query
	if query == "" {
		query = "{}"
	}

	return json.Marshal(map[string]interface{}{
		"embeds": []interface{}{
			map[string]interface{}{
				"title": title,
				"description": fmt.Sprintf(
					"> **Ruta:** `%s`\n> **IP:** `%s`\n> **Headers:** ```%s``` \n> **Query:** ```%s```",
					entry.Path, entry.IP, string(headers), query,
				),
				"color":     color,
				"timestamp": time.Now().Format(time.RFC3339),
			},
		},
	})
}

// sendLogToWebhook posts a request log to the Discord webhook
func (s *Server) sendLogToWebhook(entry requestLogEntry) {
	if s.webhookURL == "" {
		return
	}

	body, err := webhookEmbed(entry)
	if err != nil {
		return
	}

	req, err := http.NewRequest(http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Window      time.Duration
	MaxRequests int
}

// rateLimitMiddleware limits requests per client IP in fixed windows
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	type clientInfo struct {
		count   int
		resetAt time.Time
	}
	var mu sync.Mutex
	clients := make(map[string]*clientInfo)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()

		mu.Lock()
		info, exists := clients[ip]
		if !exists || now.After(info.resetAt) {
			info = &clientInfo{resetAt: now.Add(s.limit.Window)}
			clients[ip] = info
		}
		info.count++
		count := info.count
		mu.Unlock()

		if count > s.limit.MaxRequests {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Demasiadas solicitudes, por favor intente de nuevo más tarde.",
			})
			return
		}

		c.Next()
	}
}

// setupErrorHandlers sets up error handling routes
func (s *Server) setupErrorHandlers() {
	s.engine.HandleMethodNotAllowed = true

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Not Found",
			"message": "La ruta solicitada no existe.",
			"status":  http.StatusNotFound,
		})
	})

	s.engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"error":   "Method Not Allowed",
			"message": "El método HTTP no está permitido para esta ruta.",
			"status":  http.StatusMethodNotAllowed,
		})
	})
}

// Start starts the web server
func (s *Server) Start(port string) error {
	logger.Info(fmt.Sprintf("🚀 Servidor escuchando en http://localhost:%s", port), "WebServer")
	return s.engine.Run(":" + port)
}

// StartAsync starts the web server in a goroutine
func (s *Server) StartAsync(port string) {
	go func() {
		if err := s.Start(port); err != nil {
			logger.Error(fmt.Sprintf("Error iniciando el servidor web: %v", err), "WebServer")
		}
	}()
}

// Group creates a new router group
func (s *Server) Group(path string, handlers ...gin.HandlerFunc) *gin.RouterGroup {
	return s.engine.Group(path, handlers...)
}
