package ui

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"linklens/adapters/stats/glm"
	"linklens/app"
	"linklens/domain/core"
	"linklens/domain/dataset"
	"linklens/internal/config"
	"linklens/ports"
)

// Server exposes analysis runs and their artifacts over a JSON API
type Server struct {
	router  *gin.Engine
	ledger  ports.LedgerPort
	service *app.AnalysisService
	frame   *dataset.Frame
	cfg     *config.Config
}

// NewServer builds the gin router around a ledger and a loaded frame
func NewServer(cfg *config.Config, ledger ports.LedgerPort, service *app.AnalysisService, frame *dataset.Frame) *Server {
	gin.SetMode(cfg.Server.GinMode)
	s := &Server{
		router:  gin.Default(),
		ledger:  ledger,
		service: service,
		frame:   frame,
		cfg:     cfg,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/runs", s.handleListRuns)
	s.router.GET("/runs/:id/artifacts", s.handleRunArtifacts)
	s.router.POST("/runs", s.handleStartRun)
}

// Router exposes the underlying engine for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the HTTP server on the configured port
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%s", s.cfg.Server.Port)
	log.Printf("linklens API listening on %s", addr)
	return s.router.Run(addr)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"rows":   s.frame.RowCount(),
	})
}

func (s *Server) handleListRuns(c *gin.Context) {
	runs, err := s.ledger.ListRuns(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleRunArtifacts(c *gin.Context) {
	runID, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var artifacts []core.Artifact
	if method := c.Query("method"); method != "" {
		artifacts, err = s.ledger.FilterArtifacts(c.Request.Context(), runID, "method", method)
	} else {
		artifacts, err = s.ledger.ListArtifactsByRun(c.Request.Context(), runID)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(artifacts) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no artifacts for run"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"artifacts": artifacts})
}

// handleStartRun triggers a fresh analysis of the loaded frame
func (s *Server) handleStartRun(c *gin.Context) {
	var req struct {
		Family string `json:"family"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	family, err := familyFromName(req.Family, s.cfg.Stats.TweediePower)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.service.Run(c.Request.Context(), s.frame, family)
	if err != nil {
		status := http.StatusInternalServerError
		if core.IsInputError(err) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"run_id":      result.RunID,
		"exact":       result.Report.Exact,
		"first_order": result.Report.FirstOrder,
	})
}

func familyFromName(name string, tweediePower float64) (glm.Family, error) {
	switch name {
	case "", "poisson":
		return glm.PoissonFamily{}, nil
	case "gamma":
		return glm.GammaFamily{}, nil
	case "tweedie":
		return glm.NewTweedieFamily(tweediePower)
	default:
		return nil, fmt.Errorf("unknown family %q", name)
	}
}
