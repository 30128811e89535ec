package bridge

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"
	"github.com/guregu/null/v6"
	"github.com/jetkvm/chatpad-bridge/internal/macros"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
)

type statusResponse struct {
	Status
	Version       string       `json:"version"`
	OutputBackend string       `json:"output_backend"`
	LastOutput    null.Time    `json:"last_output"`
	Clients       int          `json:"clients"`
	Process       processStats `json:"process"`
}

type macroRequest struct {
	Text string `json:"text"`
}

type enabledRequest struct {
	Enabled *bool `json:"enabled"`
}

type webServer struct {
	status   *statusTracker
	macros   *macros.Store
	hub      *eventHub
	output   outputBackend
	sessions *sessionSwitch
}

func setupRouter(s *webServer) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	gin.DisableConsoleColor()
	r := gin.New()

	r.Use(logger.SetLogger(
		logger.WithLogger(func(_ *gin.Context, _ zerolog.Logger) zerolog.Logger {
			return *webLogger
		}),
		logger.WithSkipPath([]string{"/metrics"}),
	))
	r.Use(gin.Recovery())

	registerMetrics()
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{})))
	r.GET("/status", s.handleStatus)
	r.GET("/events", s.handleEvents)

	r.GET("/chatpad/enabled", s.handleGetEnabled)
	r.PUT("/chatpad/enabled", s.handlePutEnabled)

	m := r.Group("/macros")
	m.GET("", s.handleListMacros)
	m.GET("/:key", s.handleGetMacro)
	m.PUT("/:key", s.handlePutMacro)
	m.DELETE("/:key", s.handleDeleteMacro)

	return r
}

func (s *webServer) handleStatus(c *gin.Context) {
	last := s.output.GetLastUserInputTime()
	c.JSON(http.StatusOK, statusResponse{
		Status:        s.status.Snapshot(),
		Version:       builtAppVersion,
		OutputBackend: s.output.Name(),
		LastOutput:    null.NewTime(last, !last.IsZero()),
		Clients:       s.hub.ClientCount(),
		Process:       readProcessStats(),
	})
}

func (s *webServer) handleEvents(c *gin.Context) {
	id := xid.New().String()
	if err := s.hub.serveWS(c.Request.Context(), c.Writer, c.Request, id); err != nil {
		webLogger.Debug().Err(err).Str("client", id).Msg("websocket closed")
	}
}

func (s *webServer) handleListMacros(c *gin.Context) {
	c.JSON(http.StatusOK, s.macros.All())
}

func (s *webServer) macroKey(c *gin.Context) (rune, bool) {
	key, err := macros.ParseKey(c.Param("key"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return 0, false
	}
	return key, true
}

func (s *webServer) handleGetMacro(c *gin.Context) {
	key, ok := s.macroKey(c)
	if !ok {
		return
	}
	text, ok := s.macros.Get(key)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "macro not set"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": string(key), "text": text})
}

func (s *webServer) handlePutMacro(c *gin.Context) {
	key, ok := s.macroKey(c)
	if !ok {
		return
	}
	var req macroRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.macros.Set(key, req.Text); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, macros.ErrTooLong) || errors.Is(err, macros.ErrInvalidKey) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	s.saveMacros(c, key)
}

func (s *webServer) handleDeleteMacro(c *gin.Context) {
	key, ok := s.macroKey(c)
	if !ok {
		return
	}
	if err := s.macros.Delete(key); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.saveMacros(c, key)
}

func (s *webServer) saveMacros(c *gin.Context, key rune) {
	if err := s.macros.Save(); err != nil {
		webLogger.Error().Err(err).Str("path", s.macros.Path()).Msg("failed to save macros")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save macros"})
		return
	}
	text, _ := s.macros.Get(key)
	c.JSON(http.StatusOK, gin.H{"key": string(key), "text": text})
}

func (s *webServer) handleGetEnabled(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"enabled": s.sessions.Enabled()})
}

func (s *webServer) handlePutEnabled(c *gin.Context) {
	var req enabledRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be {\"enabled\": true|false}"})
		return
	}
	if s.sessions.SetEnabled(*req.Enabled) {
		webLogger.Info().Bool("enabled", *req.Enabled).Msg("chatpad switched")
	}
	c.JSON(http.StatusOK, gin.H{"enabled": s.sessions.Enabled()})
}
