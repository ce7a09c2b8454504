package server

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sjsage522/goldpriceworker/internal/gold"
	"sjsage522/goldpriceworker/logger"
	"sjsage522/goldpriceworker/services/metrics"
)

//go:embed templates/*.html
var templateFS embed.FS

// Pipeline is the part of the worker the HTTP layer drives
type Pipeline interface {
	Refresh(ctx context.Context, weight gold.WeightClass, force bool) (gold.Series, error)
	RefreshAll(ctx context.Context) error
	ChartData(weight gold.WeightClass) gold.ChartData
}

// Server serves the dashboard and the JSON API
type Server struct {
	engine    *gin.Engine
	pipeline  Pipeline
	startTime time.Time
}

// New builds the router. gatherer may be nil to leave /metrics out.
func New(pipeline Pipeline, rec metrics.Recorder, gatherer prometheus.Gatherer) (*Server, error) {
	if rec == nil {
		rec = metrics.Noop{}
	}

	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		engine:    gin.New(),
		pipeline:  pipeline,
		startTime: time.Now(),
	}

	r := s.engine
	r.SetHTMLTemplate(tmpl)
	r.Use(gin.Recovery(), requestMiddleware(rec), corsMiddleware())

	r.GET("/", s.dashboard)
	r.GET("/health", s.health)

	api := r.Group("/api")
	api.GET("/gold-data", s.goldData)
	api.GET("/update-data", s.updateData)
	api.GET("/force-update", s.forceUpdate)
	api.GET("/update-all", s.updateAll)

	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	return s, nil
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) dashboard(c *gin.Context) {
	weight, ok := weightParam(c)
	if !ok {
		return
	}

	chart := s.pipeline.ChartData(weight)
	data, err := json.Marshal(chart)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.HTML(http.StatusOK, "index.html", gin.H{
		"Chart":     chart,
		"ChartJSON": template.JS(data),
		"Weight":    string(weight),
		"Weights":   gold.Weights,
	})
}

func (s *Server) goldData(c *gin.Context) {
	weight, ok := weightParam(c)
	if !ok {
		return
	}
	writeChart(c, s.pipeline.ChartData(weight))
}

func (s *Server) updateData(c *gin.Context) {
	weight, ok := weightParam(c)
	if !ok {
		return
	}

	// an admissible refresh only fails over to the last known-good series
	_, _ = s.pipeline.Refresh(context.WithoutCancel(c.Request.Context()), weight, false)
	writeChart(c, s.pipeline.ChartData(weight))
}

func (s *Server) forceUpdate(c *gin.Context) {
	weight, ok := weightParam(c)
	if !ok {
		return
	}

	if _, err := s.pipeline.Refresh(context.WithoutCancel(c.Request.Context()), weight, true); err != nil {
		logger.LogError("server", err, "Force update for %sg failed", weight)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.pipeline.ChartData(weight))
}

func (s *Server) updateAll(c *gin.Context) {
	if err := s.pipeline.RefreshAll(context.WithoutCancel(c.Request.Context())); err != nil {
		logger.LogError("server", err, "Update of all weights failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All data updated successfully"})
}

func (s *Server) health(c *gin.Context) {
	uptime := time.Since(s.startTime)
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"uptime":         uptime.Round(time.Second).String(),
		"uptime_seconds": uptime.Seconds(),
	})
}

// writeChart answers 404 with the empty chart payload when there is nothing to plot
func writeChart(c *gin.Context, chart gold.ChartData) {
	status := http.StatusOK
	if chart.IsEmpty {
		status = http.StatusNotFound
	}
	c.JSON(status, chart)
}

// weightParam reads the weight query parameter ("berat" is accepted as an
// alias), defaulting to 1 gram. It answers 400 itself for unknown weights.
func weightParam(c *gin.Context) (gold.WeightClass, bool) {
	raw := c.Query("weight")
	if raw == "" {
		raw = c.DefaultQuery("berat", string(gold.OneGram))
	}

	weight, err := gold.ParseWeight(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return weight, true
}
