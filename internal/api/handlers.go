package api

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/jobradar/jobradar/internal/radar"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// jobsResponse is the wire shape of a search result page.
type jobsResponse struct {
	Jobs      []radar.Record `json:"jobs"`
	Total     int            `json:"total"`
	Page      int            `json:"page"`
	PerPage   int            `json:"per_page"`
	Pages     int            `json:"pages"`
	Breakdown map[string]int `json:"category_breakdown,omitempty"`
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	q, page, perPage, err := queryFromRequest(r, false)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), s.logger)
		return
	}
	s.search(w, r, q, page, perPage)
}

// listSmartJobs is listJobs plus the relevance dimensions: a score
// floor, a category filter, and per-category counts in the response.
func (s *Server) listSmartJobs(w http.ResponseWriter, r *http.Request) {
	q, page, perPage, err := queryFromRequest(r, true)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), s.logger)
		return
	}
	if q.MinScore == 0 {
		q.MinScore = 1
	}
	s.search(w, r, q, page, perPage)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request, q radar.Query, page, perPage int) {
	result, err := s.store.Search(r.Context(), q)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "search failed", s.logger)
		return
	}

	pages := result.Total / perPage
	if result.Total%perPage != 0 {
		pages++
	}
	if result.Records == nil {
		result.Records = []radar.Record{}
	}
	writeJSON(w, http.StatusOK, jobsResponse{
		Jobs:      result.Records,
		Total:     result.Total,
		Page:      page,
		PerPage:   perPage,
		Pages:     pages,
		Breakdown: result.Breakdown,
	}, s.logger)
}

func (s *Server) filterOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := s.store.FilterOptions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "filter options failed", s.logger)
		return
	}
	writeJSON(w, http.StatusOK, opts, s.logger)
}

// queryFromRequest maps URL parameters onto a store query. Smart
// parameters are only honored on the smart route.
func queryFromRequest(r *http.Request, smart bool) (radar.Query, int, int, error) {
	v := r.URL.Query()
	q := radar.Query{
		Title:           v.Get("title"),
		Company:         v.Get("company"),
		Source:          v.Get("source"),
		Location:        v.Get("location"),
		JobType:         v.Get("job_type"),
		ExperienceLevel: v.Get("experience"),
	}

	if raw := v.Get("remote"); raw != "" {
		remote, err := strconv.ParseBool(raw)
		if err != nil {
			return q, 0, 0, errBadParam("remote")
		}
		q.Remote = &remote
	}
	var err error
	if q.SalaryMin, err = intParam(v.Get("salary_min"), 0); err != nil {
		return q, 0, 0, errBadParam("salary_min")
	}
	if q.SalaryMax, err = intParam(v.Get("salary_max"), 0); err != nil {
		return q, 0, 0, errBadParam("salary_max")
	}

	if smart {
		if q.MinScore, err = intParam(v.Get("min_score"), 0); err != nil {
			return q, 0, 0, errBadParam("min_score")
		}
		if raw := v.Get("categories"); raw != "" {
			for _, c := range strings.Split(raw, ",") {
				if c = strings.TrimSpace(c); c != "" {
					q.Categories = append(q.Categories, c)
				}
			}
		}
	}

	page, err := intParam(v.Get("page"), 1)
	if err != nil || page < 1 {
		return q, 0, 0, errBadParam("page")
	}
	perPage, err := intParam(v.Get("per_page"), defaultPerPage)
	if err != nil || perPage < 1 {
		return q, 0, 0, errBadParam("per_page")
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	q.Offset = (page - 1) * perPage
	q.Limit = perPage
	return q, page, perPage, nil
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

type paramError string

func (e paramError) Error() string { return "invalid parameter: " + string(e) }

func errBadParam(name string) error { return paramError(name) }
