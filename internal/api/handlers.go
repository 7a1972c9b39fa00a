package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/readyrobots/leadengine/internal/ingest"
	"github.com/readyrobots/leadengine/internal/leads"
	"github.com/readyrobots/leadengine/internal/lexicon"
	"github.com/readyrobots/leadengine/internal/registry"
	"github.com/readyrobots/leadengine/internal/search"
	"github.com/readyrobots/leadengine/internal/store"
)

type triggerRequest struct {
	Kind     leads.ScraperKind `json:"kind,omitempty"`
	Industry string            `json:"industry,omitempty"`
}

func (s *Server) triggerScrape(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	switch req.Kind {
	case "", leads.KindJobBoard, leads.KindNewsFeed, leads.KindDirectory:
	default:
		writeError(w, http.StatusBadRequest, "unknown scraper kind")
		return
	}

	queued, err := s.deps.Dispatcher.Trigger(r.Context(), req.Kind, req.Industry)
	if err != nil {
		s.log.Error("trigger failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to enqueue scrape runs")
		return
	}
	if queued == 0 {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "skipped",
			"reason": "no eligible targets matched the filter",
		})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status": "queued",
		"queued": queued,
	})
}

func (s *Server) scraperHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Monitor.Status())
}

type resetRequest struct {
	URL string `json:"url,omitempty"`
}

func (s *Server) resetHealth(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	if req.URL == "" {
		if err := s.deps.Monitor.ResetAll(r.Context()); err != nil {
			s.log.Error("health reset failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "reset failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"reset_all": true})
		return
	}
	known, err := s.deps.Monitor.Reset(r.Context(), req.URL)
	if err != nil {
		s.log.Error("health reset failed", zap.String("url", req.URL), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "reset failed")
		return
	}
	if !known {
		writeError(w, http.StatusNotFound, "url not tracked")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reset": true, "url": req.URL})
}

type leadEntry struct {
	Company leads.Company  `json:"company"`
	Score   leads.Score    `json:"score"`
	Signals []leads.Signal `json:"signals"`
}

func (s *Server) listLeads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tier := leads.Tier(q.Get("tier"))
	switch tier {
	case "", leads.TierHot, leads.TierWarm, leads.TierCold:
	default:
		writeError(w, http.StatusBadRequest, "unknown tier")
		return
	}
	industry := q.Get("industry")
	signalType := leads.SignalType(q.Get("signal_type"))
	minScore := queryFloat(r, "min_score", 0)
	excludeJunk := q.Get("exclude_junk") != "false"
	sortKey := q.Get("sort")
	switch sortKey {
	case "", "score", "recent", "name":
	default:
		writeError(w, http.StatusBadRequest, "unknown sort key")
		return
	}
	limit := queryInt(r, "limit", 50)

	scores, err := s.deps.Scores.ListScores(r.Context())
	if err != nil {
		s.log.Error("listing scores failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list leads")
		return
	}

	entries := make([]leadEntry, 0, len(scores))
	for _, sc := range scores {
		if sc.Junk && excludeJunk {
			continue
		}
		if tier != "" && sc.Tier != tier {
			continue
		}
		if sc.Overall < minScore {
			continue
		}
		company, err := s.deps.Companies.GetCompany(r.Context(), sc.CompanyID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			s.log.Error("loading company failed", zap.String("company_id", sc.CompanyID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to list leads")
			return
		}
		if industry != "" && !strings.EqualFold(company.Industry, industry) {
			continue
		}
		sigs, err := s.deps.Signals.ListSignalsByCompany(r.Context(), sc.CompanyID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list leads")
			return
		}
		if signalType != "" && !hasSignalType(sigs, signalType) {
			continue
		}
		entries = append(entries, leadEntry{Company: company, Score: sc, Signals: sigs})
	}

	sort.Slice(entries, func(i, j int) bool {
		switch sortKey {
		case "recent":
			return entries[i].Score.ComputedAt.After(entries[j].Score.ComputedAt)
		case "name":
			return entries[i].Company.Name < entries[j].Company.Name
		default:
			return entries[i].Score.Overall > entries[j].Score.Overall
		}
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"leads": entries,
		"count": len(entries),
	})
}

func (s *Server) leadsSummary(w http.ResponseWriter, r *http.Request) {
	excludeJunk := r.URL.Query().Get("exclude_junk") != "false"
	scores, err := s.deps.Scores.ListScores(r.Context())
	if err != nil {
		s.log.Error("listing scores failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to summarize leads")
		return
	}

	tiers := map[leads.Tier]int{leads.TierHot: 0, leads.TierWarm: 0, leads.TierCold: 0}
	total, junk := 0, 0
	for _, sc := range scores {
		if sc.Junk {
			junk++
			if excludeJunk {
				continue
			}
		}
		total++
		if !sc.Junk {
			tiers[sc.Tier]++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":         total,
		"hot":           tiers[leads.TierHot],
		"warm":          tiers[leads.TierWarm],
		"cold":          tiers[leads.TierCold],
		"junk_filtered": junk,
	})
}

func hasSignalType(sigs []leads.Signal, typ leads.SignalType) bool {
	for _, sig := range sigs {
		if sig.Type == typ {
			return true
		}
	}
	return false
}

func (s *Server) getLead(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "company_id")
	company, err := s.deps.Companies.GetCompany(r.Context(), companyID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "company not found")
			return
		}
		s.log.Error("loading company failed", zap.String("company_id", companyID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load lead")
		return
	}
	signals, err := s.deps.Signals.ListSignalsByCompany(r.Context(), companyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load lead")
		return
	}

	payload := map[string]any{
		"company": company,
		"signals": signals,
	}
	if score, err := s.deps.Scores.GetScore(r.Context(), companyID); err == nil {
		payload["score"] = score
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := search.Params{
		Query:       q.Get("q"),
		Category:    q.Get("category"),
		Tier:        leads.Tier(q.Get("tier")),
		IncludeJunk: q.Get("include_junk") == "true",
		Limit:       queryInt(r, "limit", 0),
	}
	results, err := s.deps.Search.Search(r.Context(), params)
	if err != nil {
		if errors.Is(err, search.ErrInvalidParams) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.log.Error("search failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	if results == nil {
		results = []search.Result{}
	}
	payload := map[string]any{
		"total":   len(results),
		"results": results,
	}
	if params.Query != "" {
		payload["query"] = params.Query
	}
	if params.Category != "" {
		if cat, ok := lexicon.CategoryByKey(params.Category); ok {
			payload["category_label"] = cat.Label
		}
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) searchCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": s.deps.Search.Categories(),
	})
}

func (s *Server) recomputeAll(w http.ResponseWriter, r *http.Request) {
	count, err := s.deps.Scoring.RecomputeAll(r.Context())
	if err != nil {
		s.log.Error("recompute all failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "recompute failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recomputed": count})
}

func (s *Server) recomputeCompany(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "company_id")
	score, err := s.deps.Scoring.RecomputeCompany(r.Context(), companyID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "company not found")
			return
		}
		s.log.Error("recompute failed", zap.String("company_id", companyID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "recompute failed")
		return
	}
	writeJSON(w, http.StatusOK, score)
}

type importTargetsRequest struct {
	// Targets carries fully specified rows; URLs is the shorthand form
	// where the shared fields below apply to every row.
	Targets    []registry.TargetInput `json:"targets,omitempty"`
	URLs       []string               `json:"urls,omitempty"`
	Industry   string                 `json:"industry,omitempty"`
	SignalHint leads.SignalType       `json:"signal_hint,omitempty"`
	Cadence    leads.Cadence          `json:"cadence,omitempty"`
	ScrapeNow  bool                   `json:"scrape_now,omitempty"`
}

func (s *Server) importTargets(w http.ResponseWriter, r *http.Request) {
	var req importTargetsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	rows := req.Targets
	for _, raw := range req.URLs {
		row := registry.TargetInput{URL: raw, Cadence: req.Cadence}
		if req.Industry != "" {
			row.Industries = []string{req.Industry}
		}
		if req.SignalHint != "" {
			row.SignalHints = []leads.SignalType{req.SignalHint}
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		writeError(w, http.StatusBadRequest, "no targets provided")
		return
	}
	report, err := s.deps.Registry.ImportURLs(r.Context(), rows)
	if err != nil {
		s.log.Error("target import failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "import failed")
		return
	}

	queued := 0
	if req.ScrapeNow && len(report.Created) > 0 {
		queued, err = s.deps.Dispatcher.TriggerTargets(r.Context(), report.Created)
		if err != nil {
			s.log.Warn("scrape-now enqueue failed", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"added":           len(report.Created),
		"skipped":         len(report.Skipped),
		"skipped_details": report.Skipped,
		"targets":         report.Created,
		"queued":          queued,
	})
}

func (s *Server) listTargets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.TargetFilter{
		Kind:       leads.ScraperKind(q.Get("kind")),
		Industry:   q.Get("industry"),
		ActiveOnly: q.Get("active") == "true",
	}
	targets, err := s.deps.Registry.List(r.Context(), filter)
	if err != nil {
		s.log.Error("listing targets failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list targets")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"targets": targets,
		"count":   len(targets),
	})
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

func (s *Server) setTargetActive(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "target_id")
	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.deps.Registry.SetActive(r.Context(), targetID, req.Active); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "target not found")
			return
		}
		s.log.Error("set active failed", zap.String("target_id", targetID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "update failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": targetID, "active": req.Active})
}

type importCompaniesRequest struct {
	Companies []ingest.CompanyInput `json:"companies"`
}

func (s *Server) importCompanies(w http.ResponseWriter, r *http.Request) {
	var req importCompaniesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Companies) == 0 {
		writeError(w, http.StatusBadRequest, "no companies provided")
		return
	}
	result, err := s.deps.Normalizer.ImportCompanies(r.Context(), req.Companies)
	if err != nil {
		s.log.Error("company import failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "import failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"added":           len(result.Created),
		"skipped":         len(result.Skipped),
		"skipped_details": result.Skipped,
		"companies":       result.Created,
	})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	targets, err := s.deps.Registry.List(ctx, store.TargetFilter{})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to gather stats")
		return
	}
	companies, err := s.deps.Companies.ListCompanies(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to gather stats")
		return
	}
	signals, err := s.deps.Signals.ListSignals(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to gather stats")
		return
	}
	scores, err := s.deps.Scores.ListScores(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to gather stats")
		return
	}

	activeTargets := 0
	for _, t := range targets {
		if t.Active {
			activeTargets++
		}
	}
	byType := map[leads.SignalType]int{}
	for _, sig := range signals {
		byType[sig.Type]++
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"targets":         len(targets),
		"active_targets":  activeTargets,
		"companies":       len(companies),
		"signals":         len(signals),
		"signals_by_type": byType,
		"scored":          len(scores),
		"open_circuits":   s.deps.Monitor.Status().Summary.OpenCircuits,
	})
}

func queryFloat(r *http.Request, name string, fallback float64) float64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return f
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
