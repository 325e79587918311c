package lifecycle

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/lorekeeper/internal/extract"
)

// maxUploadBytes caps multipart uploads.
const maxUploadBytes = 64 << 20

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RegisterRoutes mounts the document lifecycle endpoints on the given router.
func RegisterRoutes(r chi.Router, m *Manager) {
	r.Post("/api/documents", addHandler(m))
	r.Post("/api/documents/upload", uploadHandler(m))
	r.Get("/api/documents", listHandler(m))
	r.Get("/api/documents/{id}", statusHandler(m))
	r.Post("/api/documents/{id}/process", processHandler(m))
	r.Delete("/api/documents/{id}", deleteHandler(m))
	r.Delete("/api/documents", deleteAllHandler(m))
	r.Post("/api/rebuild", rebuildHandler(m))
	r.Get("/api/rebuild/status", rebuildStatusHandler(m))
	r.Get("/api/rebuild/progress", rebuildProgressHandler(m))
	r.Get("/api/stats", statsHandler(m))
}

func addHandler(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
			return
		}

		result, err := m.AddDocument(r.Context(), req)
		if err != nil {
			writeLifecycleError(w, err)
			return
		}
		status := http.StatusCreated
		if result.Status != StatusProcessed {
			status = http.StatusOK
		}
		writeJSON(w, status, result)
	}
}

func uploadHandler(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form: " + err.Error()})
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "form field 'file' is required"})
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}

		text, sourceType, err := extract.FromFile(header.Filename, data)
		if err != nil {
			writeJSON(w, http.StatusUnsupportedMediaType, map[string]string{"error": err.Error()})
			return
		}

		result, err := m.AddDocument(r.Context(), AddRequest{
			Title:      r.FormValue("title"),
			Filename:   header.Filename,
			Content:    text,
			SourceType: sourceType,
		})
		if err != nil {
			writeLifecycleError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, result)
	}
}

func listHandler(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		includeDeleted := r.URL.Query().Get("include_deleted") == "true" ||
			r.URL.Query().Get("include_deleted") == "1"

		docs, err := m.List(r.Context(), includeDeleted)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if docs == nil {
			docs = []DocumentStatus{}
		}
		writeJSON(w, http.StatusOK, docs)
	}
}

func statusHandler(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := m.Status(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeLifecycleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func processHandler(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := m.ProcessDocument(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeLifecycleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func deleteHandler(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := m.DeleteDocument(r.Context(), id); err != nil {
			writeLifecycleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
	}
}

func deleteAllHandler(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("confirm") != "true" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "pass confirm=true to delete every document"})
			return
		}
		if err := m.DeleteAll(r.Context()); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted_all"})
	}
}

func rebuildHandler(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := m.StartRebuild(r.Context()); err != nil {
			if errors.Is(err, ErrRebuildRunning) {
				writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "rebuild_started"})
	}
}

func rebuildStatusHandler(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, m.RebuildStatus())
	}
}

func rebuildProgressHandler(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("lifecycle: websocket upgrade: %v", err)
			return
		}
		defer conn.Close()

		updates, cancel := m.SubscribeRebuild()
		defer cancel()

		for {
			select {
			case <-r.Context().Done():
				return
			case st := <-updates:
				if err := conn.WriteJSON(st); err != nil {
					if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
						log.Printf("lifecycle: websocket write: %v", err)
					}
					return
				}
			}
		}
	}
}

func statsHandler(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := m.Stats(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func writeLifecycleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrEmptyContent):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
