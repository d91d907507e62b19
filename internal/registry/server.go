package registry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Server exposes a Store over HTTP on a unix socket. It is the transport
// shim between lifecycle hooks (and query commands) and the persistent
// registry database.
type Server struct {
	store   *Store
	log     zerolog.Logger
	metrics *metrics
	engine  *gin.Engine
	started time.Time
}

// NewServer builds the route table around the given store.
func NewServer(store *Store, log zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		store:   store,
		log:     log,
		metrics: newMetrics(),
		engine:  gin.New(),
		started: time.Now(),
	}
	s.engine.Use(gin.Recovery())
	s.routes()
	return s
}

// registerRequest is the wire form of a model registration.
type registerRequest struct {
	Name        string         `json:"name"`
	Path        string         `json:"path"`
	Active      bool           `json:"active"`
	Description string         `json:"description"`
	Context     PackageContext `json:"context"`
}

// resourceRequest is the wire form of a resource addition.
type resourceRequest struct {
	Name        string         `json:"name"`
	Path        string         `json:"path"`
	Description string         `json:"description"`
	Context     PackageContext `json:"context"`
}

type descriptionRequest struct {
	Description string `json:"description"`
}

func (s *Server) routes() {
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"uptime":    time.Since(s.started).String(),
			"component": "mlagent-registry",
		})
	})

	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})))

	s.engine.POST("/models", s.handleModelRegister)
	s.engine.GET("/models/:name", s.handleModelGet)
	s.engine.PATCH("/models/:name/:version/description", s.handleModelUpdateDescription)
	s.engine.POST("/models/:name/:version/activate", s.handleModelActivate)
	s.engine.DELETE("/models/:name/:version", s.handleModelDelete)

	s.engine.PUT("/pipelines/:name", s.handlePipelineSet)
	s.engine.GET("/pipelines/:name", s.handlePipelineGet)
	s.engine.DELETE("/pipelines/:name", s.handlePipelineDelete)

	s.engine.POST("/resources", s.handleResourceAdd)
	s.engine.GET("/resources/:name", s.handleResourceGet)
	s.engine.DELETE("/resources/:name", s.handleResourceDelete)
}

func (s *Server) handleModelRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	version, err := s.store.RegisterModel(req.Name, req.Path, req.Active, req.Description, req.Context)
	s.metrics.observe("model", "register", err)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.log.Info().Str("name", req.Name).Uint("version", version).Msg("model registered")
	c.JSON(http.StatusOK, gin.H{"version": version})
}

func (s *Server) handleModelGet(c *gin.Context) {
	name := c.Param("name")

	switch {
	case c.Query("activated") == "true":
		m, err := s.store.GetActivatedModel(name)
		s.metrics.observe("model", "get_activated", err)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, m)
	case c.Query("version") != "":
		version, err := strconv.ParseUint(c.Query("version"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid version"})
			return
		}
		m, err := s.store.GetModel(name, uint(version))
		s.metrics.observe("model", "get", err)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, m)
	default:
		all, err := s.store.GetAllModels(name)
		s.metrics.observe("model", "get_all", err)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, all)
	}
}

func (s *Server) handleModelUpdateDescription(c *gin.Context) {
	version, err := strconv.ParseUint(c.Param("version"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid version"})
		return
	}

	var req descriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = s.store.UpdateModelDescription(c.Param("name"), uint(version), req.Description)
	s.metrics.observe("model", "update_description", err)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleModelActivate(c *gin.Context) {
	version, err := strconv.ParseUint(c.Param("version"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid version"})
		return
	}

	err = s.store.ActivateModel(c.Param("name"), uint(version))
	s.metrics.observe("model", "activate", err)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleModelDelete(c *gin.Context) {
	version, err := strconv.ParseUint(c.Param("version"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid version"})
		return
	}

	err = s.store.DeleteModel(c.Param("name"), uint(version), c.Query("force") == "true")
	s.metrics.observe("model", "delete", err)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handlePipelineSet(c *gin.Context) {
	var req descriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	name := c.Param("name")
	err := s.store.SetPipelineDescription(name, req.Description)
	s.metrics.observe("pipeline", "set", err)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.log.Info().Str("name", name).Msg("pipeline description set")
	c.Status(http.StatusNoContent)
}

func (s *Server) handlePipelineGet(c *gin.Context) {
	p, err := s.store.GetPipeline(c.Param("name"))
	s.metrics.observe("pipeline", "get", err)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handlePipelineDelete(c *gin.Context) {
	err := s.store.DeletePipeline(c.Param("name"))
	s.metrics.observe("pipeline", "delete", err)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleResourceAdd(c *gin.Context) {
	var req resourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := s.store.AddResource(req.Name, req.Path, req.Description, req.Context)
	s.metrics.observe("resource", "add", err)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.log.Info().Str("name", req.Name).Str("path", req.Path).Msg("resource added")
	c.Status(http.StatusNoContent)
}

func (s *Server) handleResourceGet(c *gin.Context) {
	r, err := s.store.GetResource(c.Param("name"))
	s.metrics.observe("resource", "get", err)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *Server) handleResourceDelete(c *gin.Context) {
	err := s.store.DeleteResource(c.Param("name"))
	s.metrics.observe("resource", "delete", err)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// fail maps store errors onto HTTP statuses.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNoEntry):
		status = http.StatusNotFound
	case errors.Is(err, ErrActive):
		status = http.StatusConflict
	case errors.Is(err, ErrInvalid):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// Handler exposes the route table for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on the unix socket until ctx is cancelled, then shuts down
// gracefully. A stale socket file from a previous run is removed first.
func (s *Server) Run(ctx context.Context, socketPath string) error {
	if err := os.MkdirAll(filepath.Dir(socketPath), 0o755); err != nil {
		return fmt.Errorf("creating socket directory: %w", err)
	}
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", socketPath, err)
	}

	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", socketPath, err)
	}

	srv := &http.Server{Handler: s.engine}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.log.Info().Str("socket", socketPath).Msg("registry daemon listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
