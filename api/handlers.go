package api

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lexandro/docindex-mcp/indexer"
	"github.com/lexandro/docindex-mcp/search"
	"github.com/lexandro/docindex-mcp/tree"
)

func handleBanner() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": Banner})
	}
}

// treeStatus maps walker errors to HTTP status codes.
func treeStatus(err error) (int, string) {
	switch {
	case errors.Is(err, tree.ErrInvalidPath):
		return http.StatusBadRequest, "Invalid path"
	case errors.Is(err, tree.ErrNotFound):
		return http.StatusNotFound, "Path not found"
	case errors.Is(err, tree.ErrNotADirectory):
		return http.StatusConflict, "Not a folder"
	case errors.Is(err, tree.ErrPermission):
		return http.StatusForbidden, "Permission denied"
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func handleTree(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Query().Get("path")

		listing, err := deps.Walker.List(r.Context(), path)
		if err != nil {
			status, detail := treeStatus(err)
			if status == http.StatusInternalServerError {
				deps.Logger.Error("listing failed", "path", path, "error", err)
			}
			writeError(w, status, detail)
			return
		}
		writeJSON(w, http.StatusOK, listing)
	}
}

func handleServe(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rel := chi.URLParam(r, "*")
		if r.URL.RawPath != "" {
			unescaped, err := url.PathUnescape(rel)
			if err != nil {
				writeError(w, http.StatusBadRequest, "Invalid path")
				return
			}
			rel = unescaped
		}

		file, err := deps.Walker.Open(rel)
		if err != nil {
			status, detail := treeStatus(err)
			if errors.Is(err, tree.ErrNotFound) {
				detail = "File not found"
			}
			writeError(w, status, detail)
			return
		}
		defer file.Close()

		w.Header().Set("Content-Type", file.ContentType)
		w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": file.Name}))
		http.ServeContent(w, r, file.Name, file.ModifiedAt, file)
	}
}

type indexResponse struct {
	indexer.Report
	Message string `json:"message"`
}

func handleIndex(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

		report, err := deps.Indexer.Run(r.Context(), indexer.RunOptions{Force: force})
		switch {
		case errors.Is(err, indexer.ErrAlreadyIndexing):
			writeError(w, http.StatusConflict, "Indexing is already in progress")
			return
		case errors.Is(err, context.Canceled) && report.Cancelled:
			deps.Logger.Info("indexing cancelled by client", "runID", report.RunID, "indexed", report.FilesIndexed)
			return
		case err != nil:
			deps.Logger.Error("indexing failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Detail: "Index store unavailable", Retryable: true})
			return
		}

		writeJSON(w, http.StatusOK, indexResponse{
			Report:  report,
			Message: fmt.Sprintf("Indexed %d files", report.FilesIndexed),
		})
	}
}

type searchResponse struct {
	Query   string          `json:"query"`
	Results []search.Result `json:"results"`
	Total   int             `json:"total"`
}

func handleSearch(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		text := q.Get("q")

		limit := 0
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
				return
			}
			limit = n
		}

		results, err := deps.Engine.Search(r.Context(), search.Query{Text: text, Limit: limit})
		if err != nil {
			if r.Context().Err() != nil {
				return
			}
			deps.Logger.Error("search failed", "query", text, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Detail: "Search is temporarily unavailable", Retryable: true})
			return
		}
		writeJSON(w, http.StatusOK, searchResponse{Query: text, Results: results, Total: len(results)})
	}
}

type statusResponse struct {
	Root          string          `json:"root"`
	Backend       string          `json:"backend"`
	Documents     *int            `json:"documents"` // null while the store is unavailable
	Indexing      bool            `json:"indexing"`
	LastRun       *indexer.Report `json:"last_run,omitempty"`
	UptimeSeconds int64           `json:"uptime_seconds"`
}

func handleStatus(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := statusResponse{
			Root:          deps.Walker.Root(),
			Backend:       deps.Backend,
			Indexing:      deps.Indexer.Running(),
			UptimeSeconds: int64(time.Since(deps.StartTime).Seconds()),
		}
		if count, err := deps.Store.Count(r.Context()); err == nil {
			resp.Documents = &count
		}
		if report, ok := deps.Indexer.LastReport(); ok {
			resp.LastRun = &report
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
