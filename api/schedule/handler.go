// Package schedule exposes schemes and schedule building over HTTP.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kilianp07/vaxcal/core/bounds"
	"github.com/kilianp07/vaxcal/core/calendar"
	"github.com/kilianp07/vaxcal/core/catalog"
	"github.com/kilianp07/vaxcal/core/logger"
	"github.com/kilianp07/vaxcal/core/metrics"
	"github.com/kilianp07/vaxcal/core/model"
	"github.com/kilianp07/vaxcal/core/planlog"
	"github.com/kilianp07/vaxcal/core/planner"
	coreschedule "github.com/kilianp07/vaxcal/core/schedule"
	"github.com/kilianp07/vaxcal/internal/eventbus"
	"github.com/kilianp07/vaxcal/pkg/export"
)

var errUnknownOp = errors.New("unknown edit operation")

// Deps are the collaborators shared by every request.
type Deps struct {
	Sink          metrics.PlannerSink
	Store         planlog.Store
	Bus           *eventbus.TypedBus[planner.Event]
	Log           logger.Logger
	Floor         calendar.Date
	Ceiling       calendar.Date
	DefaultScheme string
}

// Handler serves the schedule API. Every request runs its own planner
// session.
type Handler struct {
	deps Deps
}

func NewHandler(d Deps) *Handler {
	if d.Sink == nil {
		d.Sink = metrics.NopSink{}
	}
	if d.DefaultScheme == "" {
		d.DefaultScheme = catalog.DefaultScheme()
	}
	return &Handler{deps: d}
}

// Register mounts the routes on r.
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")
	api.GET("/schemes", h.listSchemes)
	api.GET("/schemes/:id/vaccines", h.listVaccines)
	api.POST("/schedule", h.buildSchedule)
	api.POST("/schedule/export", h.exportSchedule)
}

// VaccineView describes a catalog definition.
type VaccineView struct {
	ID       int                `json:"id"`
	Name     string             `json:"name"`
	Disease  string             `json:"disease,omitempty"`
	Offsets  []int              `json:"offsets"`
	Variants []string           `json:"variants,omitempty"`
	Selected bool               `json:"selected"`
	Boxes    []model.DisplayBox `json:"boxes,omitempty"`
}

// EditRequest is applied to the built calendar in order. Ops are
// move_entry, move_dose, remove_dose and remove_vaccine.
type EditRequest struct {
	Op        string `json:"op"`
	Date      string `json:"date"`
	VaccineID int    `json:"vaccine_id"`
	To        string `json:"to"`
}

// ScheduleRequest builds one calendar. A nil Selected keeps the scheme's
// default selection.
type ScheduleRequest struct {
	Scheme           string        `json:"scheme"`
	DateOfBirth      string        `json:"date_of_birth"`
	FirstVaccination string        `json:"first_vaccination"`
	LicenseAccepted  bool          `json:"license_accepted"`
	Selected         *[]int        `json:"selected"`
	Edits            []EditRequest `json:"edits"`
}

// ScheduleResponse is returned by POST /api/schedule.
type ScheduleResponse struct {
	SessionID string                   `json:"session_id"`
	Scheme    string                   `json:"scheme"`
	Entries   []coreschedule.EntryView `json:"entries"`
	Summary   coreschedule.Summary     `json:"summary"`
}

func (h *Handler) listSchemes(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, catalog.Schemes())
}

func (h *Handler) listVaccines(c *gin.Context) {
	p, err := catalog.NewProvider(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]VaccineView, 0, len(p.Vaccines()))
	for _, v := range p.Vaccines() {
		out = append(out, VaccineView{
			ID:       v.ID(),
			Name:     v.Name(),
			Disease:  v.Disease(),
			Offsets:  v.Offsets(),
			Variants: v.Variants(),
			Selected: v.Selected(),
			Boxes:    v.DisplayBoxes(),
		})
	}
	c.IndentedJSON(http.StatusOK, out)
}

func (h *Handler) buildSchedule(c *gin.Context) {
	s, ok := h.run(c)
	if !ok {
		return
	}
	view, err := s.View()
	if err != nil {
		h.fail(c, err)
		return
	}
	sum, err := s.Summary()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, ScheduleResponse{SessionID: s.ID(), Scheme: s.Scheme(), Entries: view, Summary: sum})
}

func (h *Handler) exportSchedule(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", export.FormatCSV))
	if !export.Supported(format) {
		h.fail(c, fmt.Errorf("%w: %s", export.ErrUnknownFormat, format))
		return
	}
	s, ok := h.run(c)
	if !ok {
		return
	}
	view, err := s.View()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Type", export.ContentType(format))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=vaxcal.%s", format))
	if err := export.Write(c.Writer, format, view); err != nil {
		h.fail(c, err)
		return
	}
	if rec, ok := h.deps.Sink.(metrics.ExportRecorder); ok {
		if err := rec.RecordExport(metrics.ExportEvent{Format: format, Entries: len(view), Time: time.Now()}); err != nil {
			h.logf("record export: %v", err)
		}
	}
}

// run decodes the request and drives a session through selection,
// submission and edits. It writes the error response itself.
func (h *Handler) run(c *gin.Context) (*planner.Session, bool) {
	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		_ = c.Error(err)
		return nil, false
	}
	if req.Scheme == "" {
		req.Scheme = h.deps.DefaultScheme
	}
	s, err := h.session(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	return s, true
}

func (h *Handler) session(ctx context.Context, req ScheduleRequest) (*planner.Session, error) {
	p, err := catalog.NewProvider(req.Scheme)
	if err != nil {
		return nil, err
	}
	opts := []planner.Option{planner.WithSink(h.deps.Sink)}
	if h.deps.Store != nil {
		opts = append(opts, planner.WithStore(h.deps.Store))
	}
	if h.deps.Bus != nil {
		opts = append(opts, planner.WithBus(h.deps.Bus))
	}
	if h.deps.Log != nil {
		opts = append(opts, planner.WithLogger(h.deps.Log))
	}
	if !h.deps.Floor.IsZero() && !h.deps.Ceiling.IsZero() {
		opts = append(opts, planner.WithLimits(h.deps.Floor, h.deps.Ceiling))
	}
	s := planner.New(p, opts...)
	if req.Selected != nil {
		if err := s.Select(ctx, *req.Selected...); err != nil {
			return nil, err
		}
	}
	s.SetForm(bounds.Form{
		DateOfBirth:      req.DateOfBirth,
		FirstVaccination: req.FirstVaccination,
		LicenseAccepted:  req.LicenseAccepted,
	})
	if _, err := s.Submit(ctx); err != nil {
		return nil, err
	}
	for i, e := range req.Edits {
		if err := applyEdit(ctx, s, e); err != nil {
			return nil, fmt.Errorf("edit %d: %w", i, err)
		}
	}
	return s, nil
}

func applyEdit(ctx context.Context, s *planner.Session, e EditRequest) error {
	date, err := calendar.Parse(e.Date)
	if err != nil {
		return err
	}
	switch e.Op {
	case "move_entry":
		return s.MoveEntry(ctx, date, e.To)
	case "move_dose":
		return s.MoveDose(ctx, date, e.VaccineID, e.To)
	case "remove_dose":
		return s.RemoveDose(ctx, date, e.VaccineID)
	case "remove_vaccine":
		_, err := s.RemoveAllOfType(ctx, e.VaccineID)
		return err
	}
	return fmt.Errorf("%w: %q", errUnknownOp, e.Op)
}

// Status maps an error to an HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, catalog.ErrUnknownScheme):
		return http.StatusNotFound
	case errors.Is(err, bounds.ErrLicenseNotAccepted),
		errors.Is(err, bounds.ErrMissingDate),
		errors.Is(err, bounds.ErrFirstVaccinationTooEarly),
		errors.Is(err, bounds.ErrOutOfRange),
		errors.Is(err, coreschedule.ErrOutOfBounds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, calendar.ErrInvalidDateFormat),
		errors.Is(err, planner.ErrUnknownVaccine),
		errors.Is(err, planner.ErrEntryNotFound),
		errors.Is(err, planner.ErrDoseNotFound),
		errors.Is(err, model.ErrSelectionCycle),
		errors.Is(err, export.ErrUnknownFormat),
		errors.Is(err, errUnknownOp):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *Handler) fail(c *gin.Context, err error) {
	code := Status(err)
	if code >= http.StatusInternalServerError {
		h.logf("request failed: %v", err)
	}
	c.IndentedJSON(code, gin.H{"error": err.Error(), "reason": planner.Reason(err)})
	_ = c.AbortWithError(code, err)
}

func (h *Handler) logf(format string, args ...any) {
	if h.deps.Log != nil {
		h.deps.Log.Errorf(format, args...)
	}
}
