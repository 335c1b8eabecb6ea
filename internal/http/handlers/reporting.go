package handlers

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ouvidoriag/ogdash2/internal/http/response"
	"github.com/ouvidoriag/ogdash2/internal/platform/apierr"
	"github.com/ouvidoriag/ogdash2/internal/reporting/aggregate"
	"github.com/ouvidoriag/ogdash2/internal/reporting/filter"
	"github.com/ouvidoriag/ogdash2/internal/services"
)

const (
	defaultMonthLimit = 12
	maxMonthLimit     = 120
	defaultUpcoming   = 15
	maxFilterBody     = 1 << 20
)

type ReportingHandler struct {
	reports services.ReportingService
}

func NewReportingHandler(reports services.ReportingService) *ReportingHandler {
	return &ReportingHandler{reports: reports}
}

func scopeFrom(c *gin.Context) services.Scope {
	return services.Scope{
		Unit:   c.Query("unit"),
		Server: c.Query("server"),
		Organ:  c.Query("organ"),
	}
}

// intQuery reads a non-negative integer query parameter, falling back to def
// when absent.
func intQuery(c *gin.Context, name string, def, max int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apierr.BadInput(fmt.Errorf("%s must be a non-negative integer", name))
	}
	if max > 0 && n > max {
		n = max
	}
	return n, nil
}

// GET /api/aggregate/field/:field
func (h *ReportingHandler) GroupBy(c *gin.Context) {
	groups, err := h.reports.GroupBy(c.Request.Context(), c.Param("field"), scopeFrom(c))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"field": c.Param("field"), "groups": groups})
}

// GET /api/aggregate/field/:field/resolution
func (h *ReportingHandler) AverageResolution(c *gin.Context) {
	avgs, err := h.reports.AverageResolution(c.Request.Context(), c.Param("field"), scopeFrom(c))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"field": c.Param("field"), "groups": avgs})
}

// GET /api/aggregate/by-month?limit=12
func (h *ReportingHandler) ByMonth(c *gin.Context) {
	limit, err := intQuery(c, "limit", defaultMonthLimit, maxMonthLimit)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	months, err := h.reports.ByMonth(c.Request.Context(), limit, scopeFrom(c))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"months": months})
}

// GET /api/aggregate/by-period?period=day|week|month
func (h *ReportingHandler) ByPeriod(c *gin.Context) {
	period, err := aggregate.ParsePeriod(c.Query("period"))
	if err != nil {
		response.RespondErr(c, apierr.BadInput(err))
		return
	}
	rows, err := h.reports.ByPeriod(c.Request.Context(), period, scopeFrom(c))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"period": period, "counts": rows})
}

// GET /api/aggregate/cross?field1=&field2=
func (h *ReportingHandler) Cross(c *gin.Context) {
	f1 := strings.TrimSpace(c.Query("field1"))
	f2 := strings.TrimSpace(c.Query("field2"))
	if f1 == "" || f2 == "" {
		response.RespondErr(c, apierr.BadInput(fmt.Errorf("field1 and field2 are required")))
		return
	}
	rows, err := h.reports.Cross(c.Request.Context(), f1, f2, scopeFrom(c))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"field1": f1, "field2": f2, "counts": rows})
}

// GET /api/aggregate/count
func (h *ReportingHandler) Count(c *gin.Context) {
	n, err := h.reports.Count(c.Request.Context(), scopeFrom(c))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"count": n})
}

// POST /api/records/filter
func (h *ReportingHandler) Filter(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxFilterBody))
	if err != nil {
		response.RespondErr(c, apierr.BadInput(fmt.Errorf("read body: %w", err)))
		return
	}
	spec, err := filter.ParseSpec(raw)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	records, err := h.reports.Filter(c.Request.Context(), spec)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"count": len(records), "records": records})
}

// GET /api/sla/summary
func (h *ReportingHandler) SLASummary(c *gin.Context) {
	sum, err := h.reports.SLASummary(c.Request.Context(), scopeFrom(c))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"summary": sum, "total": sum.Total()})
}

// GET /api/deadlines/upcoming?within=15
func (h *ReportingHandler) Upcoming(c *gin.Context) {
	within, err := intQuery(c, "within", defaultUpcoming, 0)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	due, err := h.reports.Upcoming(c.Request.Context(), within, scopeFrom(c))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"within": within, "records": due})
}
