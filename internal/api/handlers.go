package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	jerrors "discipline-journal/internal/errors"
	"discipline-journal/internal/journal"
	"discipline-journal/internal/models"
	"discipline-journal/internal/report"
	"discipline-journal/internal/resilience"
)

// JournalHandler serves the plan, review and report routes.
type JournalHandler struct {
	journal *journal.Service
	reports *report.Service
	health  *resilience.HealthChecker
	version string
}

// HandlerOption configures a JournalHandler.
type HandlerOption func(*JournalHandler)

// WithHealthChecker reports dependency health on /health.
func WithHealthChecker(hc *resilience.HealthChecker) HandlerOption {
	return func(h *JournalHandler) { h.health = hc }
}

// NewJournalHandler creates the handler.
func NewJournalHandler(j *journal.Service, r *report.Service, version string, opts ...HandlerOption) *JournalHandler {
	h := &JournalHandler{journal: j, reports: r, version: version}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes mounts the public routes on e and the authenticated ones on g.
func (h *JournalHandler) RegisterRoutes(e *echo.Echo, g *echo.Group) {
	e.GET("/health", h.Health)

	g.GET("/plans", h.ListPlans)
	g.GET("/plans/archived", h.ListArchived)
	g.POST("/plans/create", h.CreatePlan)
	g.GET("/plans/:id", h.GetPlan)
	g.POST("/plans/:id/arm", h.Arm)
	g.POST("/plans/:id/update", h.Update)
	g.POST("/plans/:id/add-event", h.AddEvent)
	g.POST("/plans/:id/close", h.Close)
	g.POST("/plans/:id/archive", h.Archive)
	g.POST("/plans/:id/unarchive", h.Unarchive)

	g.POST("/reviews/self", h.SubmitReview)
	g.GET("/reviews/self/:plan_id", h.GetReview)

	g.GET("/report/weekly", h.WeeklyReport)
}

// Health answers 503 only when a critical dependency is down.
func (h *JournalHandler) Health(c echo.Context) error {
	if h.health == nil {
		return SuccessResponse(c, map[string]interface{}{"version": h.version})
	}

	sys := h.health.Check(c.Request().Context())
	status := http.StatusOK
	if sys.Status == resilience.HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	return DataResponse(c, status, map[string]interface{}{
		"version": h.version,
		"health":  sys,
	})
}

func (h *JournalHandler) ListPlans(c echo.Context) error {
	plans, err := h.journal.ListPlans(c.Request().Context(), UserID(c), c.QueryParam("status"))
	if err != nil {
		return ErrorResponse(c, err)
	}
	return ListResponse(c, plans, len(plans))
}

func (h *JournalHandler) ListArchived(c echo.Context) error {
	plans, err := h.journal.ListArchived(c.Request().Context(), UserID(c), c.QueryParam("status"))
	if err != nil {
		return ErrorResponse(c, err)
	}
	return ListResponse(c, plans, len(plans))
}

func (h *JournalHandler) CreatePlan(c echo.Context) error {
	req := &CreatePlanRequest{}
	if verr := ReadAndValidateRequest(c, req); verr != nil {
		return BadRequestResponse(c, verr)
	}
	plan, err := h.journal.CreatePlan(c.Request().Context(), UserID(c), req.toInput())
	if err != nil {
		return ErrorResponse(c, err)
	}
	return CreatedResponse(c, plan)
}

func (h *JournalHandler) GetPlan(c echo.Context) error {
	detail, err := h.journal.GetPlan(c.Request().Context(), UserID(c), c.Param("id"))
	if err != nil {
		return ErrorResponse(c, err)
	}
	return SuccessResponse(c, detail)
}

func (h *JournalHandler) Arm(c echo.Context) error {
	req := &ArmRequest{}
	if verr := ReadAndValidateRequest(c, req); verr != nil {
		return BadRequestResponse(c, verr)
	}
	plan, err := h.journal.Arm(c.Request().Context(), UserID(c), c.Param("id"), req.toInput())
	if err != nil {
		return ErrorResponse(c, err)
	}
	return SuccessResponse(c, plan)
}

// Update takes a flat object of field values; which fields apply directly and
// which become revision records depends on the plan status.
func (h *JournalHandler) Update(c echo.Context) error {
	raw, verr := readObject(c)
	if verr != nil {
		return BadRequestResponse(c, verr)
	}
	out, err := h.journal.UpdateFromJSON(c.Request().Context(), UserID(c), c.Param("id"), raw)
	if err != nil {
		return ErrorResponse(c, err)
	}
	return SuccessResponse(c, out)
}

func (h *JournalHandler) AddEvent(c echo.Context) error {
	req := &EventRequest{}
	if verr := ReadAndValidateRequest(c, req); verr != nil {
		return BadRequestResponse(c, verr)
	}
	event, err := h.journal.AddEvent(c.Request().Context(), UserID(c), c.Param("id"), req.toInput())
	if err != nil {
		return ErrorResponse(c, err)
	}
	return CreatedResponse(c, event)
}

func (h *JournalHandler) Close(c echo.Context) error {
	req := &CloseRequest{}
	if verr := ReadAndValidateRequest(c, req); verr != nil {
		return BadRequestResponse(c, verr)
	}
	result, err := h.journal.Close(c.Request().Context(), UserID(c), c.Param("id"), req.toInput())
	if err != nil {
		return ErrorResponse(c, err)
	}
	return SuccessResponse(c, CloseResponse{
		SystemJudgement:   result.Judgement,
		ConclusionText:    result.ConclusionText,
		EPCOpportunityPct: result.EPCOpportunity,
	})
}

func (h *JournalHandler) Archive(c echo.Context) error {
	plan, err := h.journal.Archive(c.Request().Context(), UserID(c), c.Param("id"))
	if err != nil {
		return ErrorResponse(c, err)
	}
	return SuccessResponse(c, plan)
}

func (h *JournalHandler) Unarchive(c echo.Context) error {
	plan, err := h.journal.Unarchive(c.Request().Context(), UserID(c), c.Param("id"))
	if err != nil {
		return ErrorResponse(c, err)
	}
	return SuccessResponse(c, plan)
}

func (h *JournalHandler) SubmitReview(c echo.Context) error {
	raw, verr := readObject(c)
	if verr != nil {
		return BadRequestResponse(c, verr)
	}
	in, err := reviewInput(raw)
	if err != nil {
		return ErrorResponse(c, err)
	}
	review, err := h.journal.SubmitSelfReview(c.Request().Context(), UserID(c), in)
	if err != nil {
		return ErrorResponse(c, err)
	}
	return CreatedResponse(c, review)
}

// GetReview answers with a null review rather than 404 when none exists.
func (h *JournalHandler) GetReview(c echo.Context) error {
	review, err := h.journal.GetSelfReview(c.Request().Context(), UserID(c), c.Param("plan_id"))
	if err != nil {
		return ErrorResponse(c, err)
	}
	return SuccessResponse(c, struct {
		Review *models.SelfReview `json:"review"`
	}{review})
}

func (h *JournalHandler) WeeklyReport(c echo.Context) error {
	ctx := c.Request().Context()
	start, end := c.QueryParam("week_start"), c.QueryParam("week_end")

	var (
		rep *models.WeeklyReport
		err error
	)
	switch {
	case start == "" && end == "":
		rep, err = h.reports.Weekly(ctx, UserID(c))
	case start == "":
		err = jerrors.MissingField("week_start")
	default:
		var w report.Window
		if w, err = parseWindow(start, end); err == nil {
			rep, err = h.reports.WeeklyFor(ctx, UserID(c), w)
		}
	}
	if err != nil {
		return ErrorResponse(c, err)
	}

	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return DataResponse(c, http.StatusOK, rep)
}
