package api

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/adperf/internal/analysis"
	"github.com/sells-group/adperf/internal/cascade"
	"github.com/sells-group/adperf/internal/dataset"
	"github.com/sells-group/adperf/internal/export"
	"github.com/sells-group/adperf/internal/kpi"
	"github.com/sells-group/adperf/internal/model"
	"github.com/sells-group/adperf/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// selectionFrom reads from, to, campaign, page, version and creative.
// Label parameters repeat to select several values.
func selectionFrom(q url.Values, prefix string) (cascade.Selection, error) {
	dr, err := cascade.ParseDateRange(q.Get(prefix+"from"), q.Get(prefix+"to"))
	if err != nil {
		return cascade.Selection{}, err
	}
	return cascade.Select(dr,
		cascade.TrimLabels(q["campaign"]),
		cascade.TrimLabels(q["page"]),
		cascade.TrimLabels(q["version"]),
		cascade.TrimLabels(q["creative"]),
	), nil
}

func contextFrom(q url.Values, sel cascade.Selection) (kpi.Context, error) {
	view, err := kpi.ParseView(q.Get("view"))
	if err != nil {
		return kpi.Context{}, err
	}
	return kpi.Context{View: view, VersionFilterActive: sel.VersionFilterActive()}, nil
}

func intParam(q url.Values, name string, def int) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return n, nil
}

// load fetches the dataset and writes a 503 on failure.
func (s *Server) load(w http.ResponseWriter, r *http.Request) (*dataset.Dataset, bool) {
	ds, err := s.data.Dataset(r.Context())
	if err != nil {
		zap.L().Error("api: load dataset", zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "data is not available")
		return nil, false
	}
	return ds, true
}

// filtered parses the selection and returns the matching rows.
func (s *Server) filtered(w http.ResponseWriter, r *http.Request) ([]model.Record, kpi.Context, bool) {
	q := r.URL.Query()
	sel, err := selectionFrom(q, "")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return nil, kpi.Context{}, false
	}
	kctx, err := contextFrom(q, sel)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return nil, kpi.Context{}, false
	}
	ds, ok := s.load(w, r)
	if !ok {
		return nil, kpi.Context{}, false
	}
	return cascade.New(ds.Records).Apply(sel), kctx, true
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	sel, err := selectionFrom(r.URL.Query(), "")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	ds, ok := s.load(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, cascade.New(ds.Records).Options(sel))
}

func (s *Server) handleKPI(w http.ResponseWriter, r *http.Request) {
	rows, kctx, ok := s.filtered(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, kpi.Aggregate(rows, kctx))
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	rows, kctx, ok := s.filtered(w, r)
	if !ok {
		return
	}
	byCampaign := r.URL.Query().Get("by_campaign") == "true"
	respondJSON(w, http.StatusOK, kpi.Daily(rows, kctx, byCampaign))
}

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	order, err := kpi.ParseRankOrder(q.Get("order"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := intParam(q, "limit", 0)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, _, ok := s.filtered(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, kpi.Rank(rows, order, limit))
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	dim, err := kpi.ParseDimension(r.URL.Query().Get("by"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, kctx, ok := s.filtered(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, kpi.Breakdown(rows, kctx, dim))
}

// handleCompare compares the from/to period with the compare_from/compare_to
// period under the same label selection.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	a, err := selectionFrom(q, "")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	b, err := selectionFrom(q, "compare_")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if b.DateRange.IsZero() {
		respondError(w, http.StatusBadRequest, "compare_from or compare_to is required")
		return
	}
	kctx, err := contextFrom(q, a)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	ds, ok := s.load(w, r)
	if !ok {
		return
	}

	c := cascade.New(ds.Records)
	respondJSON(w, http.StatusOK, kpi.Compare(
		kpi.Aggregate(c.Apply(a), kctx),
		kpi.Aggregate(c.Apply(b), kctx),
	))
}

type analysisResponse struct {
	analysis.Result
	SummaryText string     `json:"summary_text"`
	Narrative   string     `json:"narrative,omitempty"`
	Run         *store.Run `json:"run,omitempty"`
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	campaign := strings.TrimSpace(q.Get("campaign"))
	if campaign == "" {
		respondError(w, http.StatusBadRequest, "campaign is required")
		return
	}
	window, err := intParam(q, "window", 0)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	ds, ok := s.load(w, r)
	if !ok {
		return
	}

	res, err := analysis.NewEngine(ds.Baselines).Run(ds.Records, campaign, window, ds.Today)
	if err != nil && !errors.Is(err, analysis.ErrNoBaseline) {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := analysisResponse{Result: res, SummaryText: res.Summary.Text()}

	if q.Get("narrate") == "true" && s.narrator != nil && res.Status == analysis.StatusOK {
		text, err := s.narrator.Narrate(r.Context(), res)
		if err != nil {
			zap.L().Warn("api: narrate", zap.String("campaign", campaign), zap.Error(err))
		}
		out.Narrative = text
	}

	if q.Get("save") == "true" {
		if s.store == nil {
			respondError(w, http.StatusNotImplemented, "run history is not configured")
			return
		}
		run, err := s.store.SaveRun(r.Context(), res, window)
		if err != nil {
			zap.L().Error("api: save run", zap.Error(err))
			respondError(w, http.StatusInternalServerError, "could not save run")
			return
		}
		out.Run = run
	}

	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(cmp.Or(r.URL.Query().Get("format"), string(export.FormatCSV)))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, kctx, ok := s.filtered(w, r)
	if !ok {
		return
	}
	daily := kpi.Daily(rows, kctx, r.URL.Query().Get("by_campaign") == "true")

	var buf bytes.Buffer
	if err := export.Write(&buf, format, daily); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	contentType := "text/csv"
	if format == export.FormatXLSX {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="daily.%s"`, format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		respondError(w, http.StatusNotImplemented, "run history is not configured")
		return false
	}
	return true
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	q := r.URL.Query()
	limit, err := intParam(q, "limit", 0)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := intParam(q, "offset", 0)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	runs, err := s.store.ListRuns(r.Context(), store.RunFilter{
		Campaign:   q.Get("campaign"),
		Bottleneck: model.Metric(strings.ToUpper(q.Get("bottleneck"))),
		Status:     analysis.Status(q.Get("status")),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		zap.L().Error("api: list runs", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "could not list runs")
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	respondJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		zap.L().Error("api: get run", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "could not load run")
		return
	}
	respondJSON(w, http.StatusOK, run)
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	err := s.store.DeleteRun(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		zap.L().Error("api: delete run", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "could not delete run")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
