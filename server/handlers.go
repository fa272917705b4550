package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/nmitic/sunat-noticia/pkg/domain"
	"github.com/nmitic/sunat-noticia/pkg/repository"
	"github.com/nmitic/sunat-noticia/pkg/scheduler"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 100
)

// feedResponse is a page of the published feed with ads mixed in
type feedResponse struct {
	Items       []domain.FeedEntry `json:"items"`
	HasMore     bool               `json:"hasMore"`
	NextCursor  string             `json:"nextCursor,omitempty"`
	AdsInjected int                `json:"adsInjected"`
}

// newsHandler serves GET /api/v1/news, the cursor-paginated published feed
func (s *Server) newsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := defaultPageLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			renderError(w, r, fmt.Errorf("invalid limit %q", v), http.StatusBadRequest)
			return
		}
		limit = n
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	filter := repository.Filter{Limit: limit + 1} // one extra row to detect more pages

	if v := q.Get("category"); v != "" {
		category := domain.Category(v)
		if !category.Valid() {
			renderError(w, r, fmt.Errorf("unknown category %q", v), http.StatusBadRequest)
			return
		}
		filter.Category = category
	}

	if v := q.Get("flags"); v != "" {
		for _, raw := range strings.Split(v, ",") {
			flag := domain.Flag(strings.TrimSpace(raw))
			if !flag.Valid() {
				renderError(w, r, fmt.Errorf("unknown flag %q", raw), http.StatusBadRequest)
				return
			}
			filter.Flags = append(filter.Flags, flag)
		}
	}

	if v := q.Get("cursor"); v != "" {
		cursor, err := time.Parse(time.RFC3339, v)
		if err != nil {
			renderError(w, r, fmt.Errorf("invalid cursor %q", v), http.StatusBadRequest)
			return
		}
		filter.Cursor = &cursor
	}

	startFrom := 0
	if v := q.Get("start_from"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			renderError(w, r, fmt.Errorf("invalid start_from %q", v), http.StatusBadRequest)
			return
		}
		startFrom = n
	}

	items, err := s.news.ListPublished(r.Context(), filter)
	if err != nil {
		lgr.Printf("[ERROR] can't list published news: %v", err)
		renderError(w, r, fmt.Errorf("can't list news"), http.StatusInternalServerError)
		return
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	entries := make([]domain.FeedEntry, len(items))
	for i := range items {
		entries[i] = domain.FeedEntry{News: &items[i]}
	}
	entries, adsInjected := s.injector.Inject(entries, startFrom)

	resp := feedResponse{Items: entries, HasMore: hasMore, AdsInjected: adsInjected}
	if len(items) > 0 {
		resp.NextCursor = items[len(items)-1].OriginalDate.Format(time.RFC3339)
	}
	renderJSON(w, r, http.StatusOK, resp)
}

// moderateHandler serves PATCH /api/v1/news/{id}: publish or unpublish one
// item with a replacement flag set. Publishing pushes the item to SSE
// clients.
func (s *Server) moderateHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		renderError(w, r, fmt.Errorf("invalid id"), http.StatusBadRequest)
		return
	}

	var req struct {
		Published bool          `json:"published"`
		Flags     []domain.Flag `json:"flags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, fmt.Errorf("invalid request body"), http.StatusBadRequest)
		return
	}
	for _, flag := range req.Flags {
		if !flag.Valid() {
			renderError(w, r, fmt.Errorf("unknown flag %q", flag), http.StatusBadRequest)
			return
		}
	}

	item, err := s.news.SetPublished(r.Context(), id, req.Published, req.Flags)
	if errors.Is(err, repository.ErrNotFound) {
		renderError(w, r, err, http.StatusNotFound)
		return
	}
	if err != nil {
		lgr.Printf("[ERROR] can't update news %d: %v", id, err)
		renderError(w, r, fmt.Errorf("can't update news"), http.StatusInternalServerError)
		return
	}

	if req.Published {
		s.live.Broadcast(*item)
	}
	renderJSON(w, r, http.StatusOK, item)
}

// deleteHandler serves DELETE /api/v1/news/{id}, a hard delete
func (s *Server) deleteHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		renderError(w, r, fmt.Errorf("invalid id"), http.StatusBadRequest)
		return
	}

	err = s.news.Delete(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		renderError(w, r, err, http.StatusNotFound)
		return
	}
	if err != nil {
		lgr.Printf("[ERROR] can't delete news %d: %v", id, err)
		renderError(w, r, fmt.Errorf("can't delete news"), http.StatusInternalServerError)
		return
	}

	renderJSON(w, r, http.StatusOK, map[string]interface{}{"deleted": true, "id": id})
}

// batchError reports one failed id in a bulk operation
type batchError struct {
	ID    int64  `json:"id"`
	Error string `json:"error"`
}

// batchPublishHandler serves POST /api/v1/news/batch: bulk publish with
// per-id flag sets. Failures are collected per id, not aborting the batch.
func (s *Server) batchPublishHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs   []int64                  `json:"ids"`
		Flags map[string][]domain.Flag `json:"flags"` // keyed by stringified id
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, fmt.Errorf("invalid request body"), http.StatusBadRequest)
		return
	}
	if len(req.IDs) == 0 {
		renderError(w, r, fmt.Errorf("ids required"), http.StatusBadRequest)
		return
	}

	processed := 0
	var failures []batchError
	for _, id := range req.IDs {
		flags := req.Flags[strconv.FormatInt(id, 10)]
		badFlag := false
		for _, flag := range flags {
			if !flag.Valid() {
				failures = append(failures, batchError{ID: id, Error: fmt.Sprintf("unknown flag %q", flag)})
				badFlag = true
				break
			}
		}
		if badFlag {
			continue
		}

		item, err := s.news.SetPublished(r.Context(), id, true, flags)
		if err != nil {
			failures = append(failures, batchError{ID: id, Error: err.Error()})
			continue
		}
		s.live.Broadcast(*item)
		processed++
	}

	renderJSON(w, r, http.StatusOK, map[string]interface{}{
		"success":        len(failures) == 0,
		"processedCount": processed,
		"errors":         failures,
	})
}

// batchDeleteHandler serves DELETE /api/v1/news/batch, bulk reject
func (s *Server) batchDeleteHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []int64 `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, fmt.Errorf("invalid request body"), http.StatusBadRequest)
		return
	}
	if len(req.IDs) == 0 {
		renderError(w, r, fmt.Errorf("ids required"), http.StatusBadRequest)
		return
	}

	deleted, err := s.news.DeleteBatch(r.Context(), req.IDs)
	if err != nil {
		lgr.Printf("[ERROR] can't delete news batch: %v", err)
		renderError(w, r, fmt.Errorf("can't delete news"), http.StatusInternalServerError)
		return
	}

	renderJSON(w, r, http.StatusOK, map[string]interface{}{
		"success":        true,
		"processedCount": deleted,
	})
}

// pendingHandler serves GET /api/v1/admin/pending, the moderation queue
func (s *Server) pendingHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultPageLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			renderError(w, r, fmt.Errorf("invalid limit %q", v), http.StatusBadRequest)
			return
		}
		limit = n
	}

	items, err := s.news.ListUnpublished(r.Context(), limit)
	if err != nil {
		lgr.Printf("[ERROR] can't list pending news: %v", err)
		renderError(w, r, fmt.Errorf("can't list pending news"), http.StatusInternalServerError)
		return
	}
	renderJSON(w, r, http.StatusOK, map[string]interface{}{"items": items})
}

// runsHandler serves GET /api/v1/admin/runs, the run-history log
func (s *Server) runsHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultPageLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			renderError(w, r, fmt.Errorf("invalid limit %q", v), http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := s.runs.ListRuns(r.Context(), limit)
	if err != nil {
		lgr.Printf("[ERROR] can't list runs: %v", err)
		renderError(w, r, fmt.Errorf("can't list runs"), http.StatusInternalServerError)
		return
	}
	renderJSON(w, r, http.StatusOK, map[string]interface{}{"runs": runs})
}

// scraperInfo is the registry status of one scraper
type scraperInfo struct {
	Name     string `json:"name"`
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule"`
}

// scrapersHandler serves GET /api/v1/scrapers
func (s *Server) scrapersHandler(w http.ResponseWriter, r *http.Request) {
	configs := s.scrapers.List()
	infos := make([]scraperInfo, len(configs))
	for i, cfg := range configs {
		infos[i] = scraperInfo{Name: cfg.Name, Enabled: cfg.Enabled, Schedule: cfg.Schedule}
	}
	renderJSON(w, r, http.StatusOK, map[string]interface{}{"scrapers": infos})
}

// triggerHandler serves POST /api/v1/scrapers/{name}/run, a synchronous
// manual run. The result carries the error text on failure; only an
// unknown name is an HTTP error.
func (s *Server) triggerHandler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	res, err := s.scrapers.RunManually(r.Context(), name)
	if errors.Is(err, scheduler.ErrScraperNotFound) {
		renderError(w, r, err, http.StatusNotFound)
		return
	}
	if err != nil {
		lgr.Printf("[ERROR] manual run of %s failed: %v", name, err)
		renderError(w, r, fmt.Errorf("can't run scraper"), http.StatusInternalServerError)
		return
	}
	renderJSON(w, r, http.StatusOK, res)
}
