package api

import (
	"context"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sociophysics/hk-engine/internal/db"
	"github.com/sociophysics/hk-engine/internal/parity"
	"github.com/sociophysics/hk-engine/internal/runner"
	"github.com/sociophysics/hk-engine/internal/simulation"
	"github.com/sociophysics/hk-engine/pkg/models"
)

// Comparison endpoint caps. The naive variant costs O(n^2) per sweep, so the
// parity check is bounded to keep a single request from pinning a core.
const (
	maxCompareAgents = 5000
	maxCompareSweeps = 1000
)

type APIHandler struct {
	dbStore      *db.PostgresStore
	wsHub        *Hub
	sampleRunner *runner.SampleRunner
}

func SetupRouter(dbStore *db.PostgresStore, wsHub *Hub, sampleRunner *runner.SampleRunner) *gin.Engine {
	r := gin.Default()

	// Enable CORS — configurable via ALLOWED_ORIGINS env var
	// Production: ALLOWED_ORIGINS=https://lab.example.org
	// Development: ALLOWED_ORIGINS=http://localhost:3000 (or leave empty for *)
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			// Check if the request origin is in the allowed list
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	handler := &APIHandler{dbStore: dbStore, wsHub: wsHub, sampleRunner: sampleRunner}

	api := r.Group("/api/v1")
	{
		api.GET("/health", handler.handleHealth)
		api.GET("/stream", wsHub.Subscribe)
		api.GET("/simulate/progress", handler.handleProgress)

		// Expensive, state-changing endpoints sit behind auth + rate limit.
		limiter := NewRateLimiter(30, 10)
		protected := api.Group("", AuthMiddleware(), limiter.Middleware())
		{
			protected.POST("/simulate", handler.handleSimulate)
			protected.POST("/sweep/compare", handler.handleCompare)
			protected.GET("/runs", handler.handleListRuns)
			protected.GET("/runs/:id", handler.handleGetRun)
		}
	}

	return r
}

// handleHealth returns engine status and capabilities for service discovery.
func (h *APIHandler) handleHealth(c *gin.Context) {
	dbConnected := h.dbStore != nil

	c.JSON(http.StatusOK, gin.H{
		"status": "operational",
		"engine": "Hegselmann-Krause Opinion Dynamics Engine v1.0",
		"capabilities": gin.H{
			"tree_sweep":     true,
			"naive_sweep":    true,
			"parity_compare": true,
			"live_stream":    true,
			"persistence":    dbConnected,
		},
		"subscribers": h.wsHub.SubscriberCount(),
		"dbConnected": dbConnected,
	})
}

// handleSimulate launches a background batch of independent samples.
// POST /api/v1/simulate
// { "numAgents": 1024, "minConfidence": 0.2, "maxConfidence": 0.2,
//   "seed": 42, "samples": 100 }
func (h *APIHandler) handleSimulate(c *gin.Context) {
	var params models.RunParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := params.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// The batch outlives the HTTP request, so it must not inherit the
	// request context.
	if err := h.sampleRunner.RunBatch(context.Background(), params); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "batch_started",
		"params":  params,
		"samples": params.Samples,
	})
}

// handleProgress returns the sample runner's current state.
func (h *APIHandler) handleProgress(c *gin.Context) {
	c.JSON(http.StatusOK, h.sampleRunner.GetProgress())
}

// handleCompare runs the naive and indexed sweep variants in lockstep and
// returns the divergence report. The population is either posted explicitly
// or drawn from seeded parameters.
// POST /api/v1/sweep/compare
// { "agents": [{"opinion": 0.5, "confidence": 0.6}, ...], "sweeps": 100 }
// or
// { "numAgents": 100, "minConfidence": 0, "maxConfidence": 1,
//   "seed": 13, "sweeps": 100 }
func (h *APIHandler) handleCompare(c *gin.Context) {
	var req struct {
		Agents        []simulation.Agent `json:"agents"`
		NumAgents     int                `json:"numAgents"`
		MinConfidence float64            `json:"minConfidence"`
		MaxConfidence float64            `json:"maxConfidence"`
		Seed          uint64             `json:"seed"`
		Sweeps        int                `json:"sweeps"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if req.Sweeps < 1 || req.Sweeps > maxCompareSweeps {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "sweeps must be in [1, " + strconv.Itoa(maxCompareSweeps) + "]",
		})
		return
	}

	var pr *parity.Runner
	switch {
	case len(req.Agents) > 0:
		if len(req.Agents) > maxCompareAgents {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "at most " + strconv.Itoa(maxCompareAgents) + " agents per comparison",
			})
			return
		}
		// A non-finite opinion or a negative confidence would corrupt the
		// ordered opinion index, so posted populations are checked with the
		// same rigor as seeded parameters.
		for i, a := range req.Agents {
			if math.IsNaN(a.Opinion) || math.IsInf(a.Opinion, 0) {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": fmt.Sprintf("agent %d: opinion must be finite", i),
				})
				return
			}
			if a.Confidence < 0 || math.IsNaN(a.Confidence) || math.IsInf(a.Confidence, 0) {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": fmt.Sprintf("agent %d: confidence must be finite and >= 0", i),
				})
				return
			}
		}
		pr = parity.NewRunnerFromAgents(req.Agents)
	case req.NumAgents > 0:
		if req.NumAgents > maxCompareAgents {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "at most " + strconv.Itoa(maxCompareAgents) + " agents per comparison",
			})
			return
		}
		if req.MaxConfidence < req.MinConfidence || req.MinConfidence < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid confidence range"})
			return
		}
		pr = parity.NewRunner(req.NumAgents, req.MinConfidence, req.MaxConfidence, req.Seed)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "provide agents or numAgents"})
		return
	}

	report := pr.Run(req.Sweeps)
	if report.Diverged {
		log.Printf("[API] Parity comparison diverged: max delta %v", report.MaxDelta)
	}

	c.JSON(http.StatusOK, report)
}

// handleListRuns returns persisted converged runs, newest first.
func (h *APIHandler) handleListRuns(c *gin.Context) {
	if h.dbStore == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Database not connected"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	runs, totalCount, err := h.dbStore.ListRuns(c.Request.Context(), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch runs", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       runs,
		"totalCount": totalCount,
		"page":       page,
		"limit":      limit,
	})
}

// handleGetRun returns one persisted run with its full cluster configuration.
func (h *APIHandler) handleGetRun(c *gin.Context) {
	if h.dbStore == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Database not connected"})
		return
	}

	run, clusters, err := h.dbStore.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run":      run,
		"clusters": clusters,
	})
}

// AlertFrame is the wire payload streamed to subscribers when one sample of a
// batch reaches convergence.
type AlertFrame struct {
	Type  string                  `json:"type"` // always "convergence_alert"
	Alert runner.ConvergenceAlert `json:"alert"`
}

// BroadcastConvergenceAlert sends a convergence notification via the
// WebSocket hub. This is wired as the alertFunc callback for the SampleRunner.
func BroadcastConvergenceAlert(wsHub *Hub) func(runner.ConvergenceAlert) {
	return func(alert runner.ConvergenceAlert) {
		if err := wsHub.BroadcastJSON(AlertFrame{Type: "convergence_alert", Alert: alert}); err != nil {
			log.Printf("[ALERT] Failed to broadcast convergence alert: %v", err)
			return
		}
		log.Printf("[ALERT] Sample %d converged after %d sweeps: %d clusters, largest %.3f",
			alert.Sample, alert.Sweeps, alert.NumClusters, alert.LargestFraction)
	}
}
