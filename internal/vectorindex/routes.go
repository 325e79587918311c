package vectorindex

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the search endpoint on the given router.
func RegisterRoutes(r chi.Router, m *Manager) {
	r.Get("/api/search", searchHandler(m))
}

func searchHandler(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")
		if query == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query parameter 'q' is required"})
			return
		}

		k := 10
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				k = n
			}
		}

		filter := Filter{
			DocumentID: r.URL.Query().Get("document_id"),
		}
		if v := r.URL.Query().Get("max_chapter"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "max_chapter must be a non-negative integer"})
				return
			}
			filter.MaxChapter = &n
		}
		if v := r.URL.Query().Get("include_backmatter"); v == "true" || v == "1" {
			filter.IncludeBackmatter = true
		}

		results, err := m.Search(r.Context(), query, k, filter)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if results == nil {
			results = []Result{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"query":   query,
			"count":   len(results),
			"results": results,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
