package http

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"painel/internal/core"
	"painel/internal/dashboard"
	plog "painel/internal/log"
	"painel/internal/report"
	"painel/internal/services"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type presetBody struct {
	Name      dashboard.Preset `json:"name"`
	DateRange *core.DateRange  `json:"dateRange"`
}

type metricBody struct {
	Name string `json:"name"`
}

func (s *Server) session(r *http.Request) (*services.Session, error) {
	return s.deps.Sessions.Get(r.Context(), userID(r))
}

// viewRequest is the session state overridden by the query string.
func (s *Server) viewRequest(r *http.Request) (dashboard.ViewRequest, error) {
	sess, err := s.session(r)
	if err != nil {
		return dashboard.ViewRequest{}, err
	}
	q := r.URL.Query()
	req := sess.ViewRequest(ParseTableFilter(q))
	spec, ok, err := ParseSortParams(q)
	if err != nil {
		return dashboard.ViewRequest{}, err
	}
	if ok {
		req.Sort = spec
	}
	if sel, ok := ParseMetricsParam(q); ok {
		req.Selection = sel
	}
	return req, nil
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	req, err := s.viewRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Dashboard.View(req))
}

func (s *Server) handleToggleSort(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	spec, err := sess.ToggleSort(dashboard.SortColumn(chi.URLParam(r, "col")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, spec)
}

func (s *Server) handleSetMetric(w http.ResponseWriter, r *http.Request) {
	index, err := ParseIndex(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body metricBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	name := sanitizeInput(body.Name)
	if name == "" {
		writeError(w, r, core.NewValidationError("name", "métrica obrigatória"))
		return
	}
	sess, err := s.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sel, err := sess.SetMetric(index, name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"selection": sel})
}

// handlePresets lists the presets resolved against today.
func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	today := core.DayOf(s.today())
	out := make([]presetBody, 0, len(dashboard.Presets()))
	for _, p := range dashboard.Presets() {
		rng, err := dashboard.PresetRange(p, today)
		if err != nil {
			writeError(w, r, err)
			return
		}
		out = append(out, presetBody{Name: p, DateRange: rng})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleApplyPreset(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.deps.Ledger.ApplyPreset(r.Context(), userID(r), dashboard.Preset(chi.URLParam(r, "name")), s.today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Config())
}

func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	var patch core.ConfigPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	if patch.Name != nil {
		name := sanitizeInput(*patch.Name)
		patch.Name = &name
	}
	if patch.Theme != nil && !patch.Theme.Valid() {
		writeError(w, r, core.NewValidationError("theme", "tema inválido"))
		return
	}
	cfg, err := s.deps.Ledger.SaveConfig(r.Context(), userID(r), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, "csv", contentTypeCSV, report.WriteCSV)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, "xlsx", contentTypeXLSX, report.WriteXLSX)
}

// export renders the current dashboard table into a downloadable report.
// The body is buffered so a failed render still yields a clean 500.
func (s *Server) export(w http.ResponseWriter, r *http.Request, ext, contentType string, write func(io.Writer, *report.Report) error) {
	req, err := s.viewRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	now := s.today()
	rep := report.FromView(req.Snapshot, s.deps.Dashboard.View(req), now)

	var buf bytes.Buffer
	if err := write(&buf, rep); err != nil {
		writeError(w, r, err)
		return
	}
	plog.FromContext(r.Context()).InfoContext(r.Context(), "Report exported",
		plog.FieldOperation, plog.OpExport,
		"format", strings.ToUpper(ext),
		"rows", len(rep.Rows))

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.Filename(ext, now)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
