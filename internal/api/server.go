package api

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/scott-cmd11/ai-canada-pulse/internal/db"
	"github.com/scott-cmd11/ai-canada-pulse/internal/ingest"
	"github.com/scott-cmd11/ai-canada-pulse/internal/models"
	"github.com/scott-cmd11/ai-canada-pulse/internal/stats"
)

type Server struct {
	Echo       *echo.Echo
	Store      *db.Store
	Stats      *stats.Engine
	Registry   *ingest.Registry
	Scheduler  *ingest.Scheduler
	Redis      redis.UniversalClient
	SSEChannel string
}

func NewServer(store *db.Store, engine *stats.Engine, registry *ingest.Registry, scheduler *ingest.Scheduler, client redis.UniversalClient, sseChannel string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// CORS: allow frontend origins from env or default to localhost
	allowedOrigins := []string{"http://localhost:4200", "http://localhost:5173"}
	if extra := os.Getenv("CORS_ORIGINS"); extra != "" {
		for _, o := range strings.Split(extra, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				allowedOrigins = append(allowedOrigins, o)
			}
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	s := &Server{
		Echo:       e,
		Store:      store,
		Stats:      engine,
		Registry:   registry,
		Scheduler:  scheduler,
		Redis:      client,
		SSEChannel: sseChannel,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/healthz", s.handleHealthz)

	api := s.Echo.Group("/api/v1")
	api.GET("/feed", s.handleFeed)
	api.GET("/feed/stream", s.handleFeedStream)
	api.GET("/feed/export", s.handleFeedExport)

	api.GET("/stats/kpis", s.handleStatsKPIs)
	api.GET("/stats/hourly", s.handleStatsHourly)
	api.GET("/stats/weekly", s.handleStatsWeekly)
	api.GET("/stats/sources", s.handleStatsSources)
	api.GET("/stats/jurisdictions", s.handleStatsJurisdictions)
	api.GET("/stats/entities", s.handleStatsEntities)
	api.GET("/stats/tags", s.handleStatsTags)
	api.GET("/stats/brief", s.handleStatsBrief)
	api.GET("/stats/compare", s.handleStatsCompare)
	api.GET("/stats/confidence", s.handleStatsConfidence)
	api.GET("/stats/concentration", s.handleStatsConcentration)
	api.GET("/stats/momentum", s.handleStatsMomentum)
	api.GET("/stats/alerts", s.handleStatsAlerts)
	api.GET("/stats/risk", s.handleStatsRisk)
	api.GET("/stats/risk-trend", s.handleStatsRiskTrend)
	api.GET("/stats/summary", s.handleStatsSummary)
	api.GET("/stats/coverage", s.handleStatsCoverage)

	api.GET("/sources/health", s.handleSourcesHealth)
	api.GET("/sources/catalog", s.handleSourcesCatalog)
	api.GET("/sources/runs", s.handleSourcesRuns)

	api.POST("/backfill/run", s.handleBackfillRun)
	api.GET("/backfill/status", s.handleBackfillStatus)

	api.POST("/maintenance/purge-synthetic", s.handlePurgeSynthetic)
}

func (s *Server) handleHealthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// timeWindowParam reads ?time_window with a default. Unknown values fall
// back to the default rather than erroring.
func timeWindowParam(c echo.Context, fallback string) string {
	if v := c.QueryParam("time_window"); v != "" {
		return v
	}
	return fallback
}

func limitParam(c echo.Context, fallback int) int {
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func (s *Server) feedParams(c echo.Context) db.FeedParams {
	params := db.FeedParams{
		Category:     c.QueryParam("category"),
		Jurisdiction: c.QueryParam("jurisdiction"),
		Language:     c.QueryParam("language"),
		Search:       c.QueryParam("search"),
	}
	if raw := c.QueryParam("time_window"); raw != "" {
		params.Since = time.Now().UTC().Add(-stats.ParseWindowExtended(raw, "7d"))
	}
	if page, err := strconv.Atoi(c.QueryParam("page")); err == nil {
		params.Page = page
	}
	if pageSize, err := strconv.Atoi(c.QueryParam("page_size")); err == nil {
		params.PageSize = pageSize
	}
	return params
}

func (s *Server) handleFeed(c echo.Context) error {
	result, err := s.Store.ListDevelopments(c.Request().Context(), s.feedParams(c))
	if err != nil {
		c.Logger().Errorf("list developments: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	return c.JSON(http.StatusOK, result)
}

// handleFeedStream relays the pub/sub channel as Server-Sent Events with a
// ~10s keepalive ping.
func (s *Server) handleFeedStream(c echo.Context) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	ctx := c.Request().Context()
	pubsub := s.Redis.Subscribe(ctx, s.SSEChannel)
	defer pubsub.Close()
	messages := pubsub.Channel()

	ping := time.NewTicker(10 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if _, err := fmt.Fprintf(res, "event: new_item\ndata: %s\n\n", msg.Payload); err != nil {
				return nil
			}
			res.Flush()
		case <-ping.C:
			if _, err := fmt.Fprint(res, "event: ping\ndata: {}\n\n"); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}

var exportColumns = []string{
	"id", "source_id", "source_type", "category", "title", "description",
	"url", "publisher", "published_at", "ingested_at", "language",
	"jurisdiction", "entities", "tags", "hash", "confidence",
}

func (s *Server) handleFeedExport(c echo.Context) error {
	limit := limitParam(c, 5000)
	items, err := s.Store.ExportDevelopments(c.Request().Context(), s.feedParams(c), limit)
	if err != nil {
		c.Logger().Errorf("export developments: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}

	format := c.QueryParam("fmt")
	if format == "" {
		format = "json"
	}
	switch format {
	case "json":
		c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="ai_developments.json"`)
		return c.JSON(http.StatusOK, map[string]any{"items": items, "count": len(items)})
	case "csv":
		res := c.Response()
		res.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
		res.Header().Set(echo.HeaderContentDisposition, `attachment; filename="ai_developments.csv"`)
		res.WriteHeader(http.StatusOK)

		writer := csv.NewWriter(res)
		if err := writer.Write(exportColumns); err != nil {
			return err
		}
		for _, item := range items {
			row := []string{
				item.ID.String(),
				item.SourceID,
				string(item.SourceType),
				string(item.Category),
				item.Title,
				item.Description,
				item.URL,
				item.Publisher,
				models.ISOFormat(item.PublishedAt),
				models.ISOFormat(item.IngestedAt),
				item.Language,
				item.Jurisdiction,
				strings.Join(item.Entities, "|"),
				strings.Join(item.Tags, "|"),
				item.Hash,
				strconv.FormatFloat(item.Confidence, 'f', -1, 64),
			}
			if err := writer.Write(row); err != nil {
				return err
			}
		}
		writer.Flush()
		return writer.Error()
	}
	return c.JSON(http.StatusBadRequest, map[string]string{"error": "fmt must be csv or json"})
}

func (s *Server) handleStatsKPIs(c echo.Context) error {
	resp, err := s.Stats.KPIs(c.Request().Context())
	return s.statsJSON(c, resp, err)
}

func (s *Server) handleStatsHourly(c echo.Context) error {
	resp, err := s.Stats.HourlyTimeseries(c.Request().Context())
	return s.statsJSON(c, resp, err)
}

func (s *Server) handleStatsWeekly(c echo.Context) error {
	resp, err := s.Stats.WeeklyTimeseries(c.Request().Context())
	return s.statsJSON(c, resp, err)
}

func (s *Server) handleStatsSources(c echo.Context) error {
	resp, err := s.Stats.SourcesBreakdown(c.Request().Context(), timeWindowParam(c, "7d"), limitParam(c, 10))
	return s.statsJSON(c, resp, err)
}

func (s *Server) handleStatsJurisdictions(c echo.Context) error {
	resp, err := s.Stats.JurisdictionsBreakdown(c.Request().Context(), timeWindowParam(c, "7d"), limitParam(c, 10))
	return s.statsJSON(c, resp, err)
}

func (s *Server) handleStatsEntities(c echo.Context) error {
	resp, err := s.Stats.EntitiesBreakdown(c.Request().Context(), timeWindowParam(c, "7d"), limitParam(c, 15))
	return s.statsJSON(c, resp, err)
}

func (s *Server) handleStatsTags(c echo.Context) error {
	resp, err := s.Stats.TagsBreakdown(c.Request().Context(), timeWindowParam(c, "7d"), limitParam(c, 15))
	return s.statsJSON(c, resp, err)
}

func (s *Server) handleStatsBrief(c echo.Context) error {
	resp, err := s.Stats.Brief(c.Request().Context(), timeWindowParam(c, "24h"))
	return s.statsJSON(c, resp, err)
}

func (s *Server) handleStatsCompare(c echo.Context) error {
	resp, err := s.Stats.Compare(c.Request().Context(), timeWindowParam(c, "7d"))
	return s.statsJSON(c, resp, err)
}

func (s *Server) handleStatsConfidence(c echo.Context) error {
	resp, err := s.Stats.ConfidenceProfile(c.Request().Context(), timeWindowParam(c, "7d"))
	return s.statsJSON(c, resp, err)
}

func (s *Server) handleStatsConcentration(c echo.Context) error {
	resp, err := s.Stats.Concentration(c.Request().Context(), timeWindowParam(c, "7d"))
	return s.statsJSON(c, resp, err)
}

func (s *Server) handleStatsMomentum(c echo.Context) error {
	resp, err := s.Stats.Momentum(c.Request().Context(), timeWindowParam(c, "7d"))
	return s.statsJSON(c, resp, err)
}

func (s *Server) handleStatsAlerts(c echo.Context) error {
	opts := stats.DefaultAlertOptions()
	if raw := c.QueryParam("min_baseline"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			opts.MinBaseline = n
		}
	}
	if raw := c.QueryParam("min_delta_percent"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
			opts.MinDeltaPercent = v
		}
	}
	if raw := c.QueryParam("min_z_score"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
			opts.MinZScore = v
		}
	}

	resp, err := s.Stats.Alerts(c.Request().Context(), timeWindowParam(c, "24h"), opts)
	return s.statsJSON(c, resp, err)
}

func (s *Server) handleStatsRisk(c echo.Context) error {
	resp, err := s.Stats.Risk(c.Request().Context(), timeWindowParam(c, "24h"))
	return s.statsJSON(c, resp, err)
}

func (s *Server) handleStatsRiskTrend(c echo.Context) error {
	resp, err := s.Stats.RiskTrend(c.Request().Context(), timeWindowParam(c, "24h"))
	return s.statsJSON(c, resp, err)
}

func (s *Server) handleStatsSummary(c echo.Context) error {
	resp, err := s.Stats.Summary(c.Request().Context(), timeWindowParam(c, "24h"))
	return s.statsJSON(c, resp, err)
}

func (s *Server) handleStatsCoverage(c echo.Context) error {
	resp, err := s.Stats.Coverage(c.Request().Context(), timeWindowParam(c, "7d"))
	return s.statsJSON(c, resp, err)
}

func (s *Server) statsJSON(c echo.Context, resp any, err error) error {
	if err != nil {
		c.Logger().Errorf("stats query: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleSourcesHealth(c echo.Context) error {
	snapshot, err := ingest.ReadHealthSnapshot(c.Request().Context(), s.Redis)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, snapshot)
}

func (s *Server) handleSourcesCatalog(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"sources": s.Registry.List(true)})
}

func (s *Server) handleSourcesRuns(c echo.Context) error {
	runs, err := s.Store.ListSourceRuns(c.Request().Context(), c.QueryParam("source"), limitParam(c, 50))
	if err != nil {
		c.Logger().Errorf("list source runs: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	return c.JSON(http.StatusOK, map[string]any{"runs": runs})
}

type backfillRequestBody struct {
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
	PerPage          int    `json:"per_page"`
	MaxPagesPerMonth int    `json:"max_pages_per_month"`
}

func (s *Server) handleBackfillRun(c echo.Context) error {
	var body backfillRequestBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	startDate, err := time.Parse("2006-01-02", body.StartDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "start_date must be YYYY-MM-DD"})
	}
	req := ingest.BackfillRequest{
		StartDate:        startDate,
		PerPage:          body.PerPage,
		MaxPagesPerMonth: body.MaxPagesPerMonth,
	}
	if body.EndDate != "" {
		endDate, err := time.Parse("2006-01-02", body.EndDate)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "end_date must be YYYY-MM-DD"})
		}
		if endDate.Before(startDate) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "end_date before start_date"})
		}
		req.EndDate = endDate
	}

	// context.WithoutCancel detaches the sweep from the HTTP lifecycle so
	// the response returning does not cancel it.
	if err := s.Scheduler.RunBackfill(context.WithoutCancel(c.Request().Context()), req); err != nil {
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *Server) handleBackfillStatus(c echo.Context) error {
	status, err := ingest.ReadBackfillStatus(c.Request().Context(), s.Redis)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, status)
}

func (s *Server) handlePurgeSynthetic(c echo.Context) error {
	execute := strings.EqualFold(c.QueryParam("execute"), "true")
	result, err := s.Store.PurgeSynthetic(c.Request().Context(), execute)
	if err != nil {
		c.Logger().Errorf("purge synthetic: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) Start(addr string) error {
	return s.Echo.Start(addr)
}
