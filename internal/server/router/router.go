package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mamadbah2/shiftlog/internal/server/handlers"
)

// Handlers groups the HTTP adapters the router dispatches to.
type Handlers struct {
	Entries *handlers.EntryHandler
	Tables  *handlers.TableHandler
	Reports *handlers.ReportHandler
}

// New wires the Gin engine with required routes and middlewares. Metrics are
// served from gatherer when it is set.
func New(h Handlers, gatherer prometheus.Gatherer, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")

	api.GET("/machines", h.Entries.Machines)
	api.GET("/options", h.Entries.Options)
	api.POST("/entries/suggest", h.Entries.Suggest)
	api.POST("/entries/validate", h.Entries.Validate)
	api.POST("/entries", h.Entries.Submit)

	tables := api.Group("/tables/:table")
	tables.GET("/rows", h.Tables.Rows)
	tables.GET("/dates", h.Tables.Dates)
	tables.GET("/machines", h.Tables.Machines)
	tables.GET("/candidates", h.Tables.Candidates)
	tables.DELETE("/rows/:index", h.Tables.Delete)

	api.GET("/summary/:table/shift", h.Reports.ShiftSummary)
	api.GET("/summary/:table/monthly", h.Reports.MonthlySummary)
	api.GET("/export/:table/shift.csv", h.Reports.ExportShiftCSV)
	api.GET("/export/:table/monthly.csv", h.Reports.ExportMonthlyCSV)
	api.GET("/export/:table/summary.xlsx", h.Reports.ExportWorkbook)
	api.GET("/dashboard", h.Reports.Dashboard)
	api.GET("/reports/shift", h.Reports.ShiftReport)
	api.GET("/reports/archive", h.Reports.Archive)
	api.POST("/reports/send", h.Reports.SendReport)

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("request completed", fields...)
			return
		}
		logger.Info("request completed", fields...)
	}
}
