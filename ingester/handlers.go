package ingester

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/myiephero/ieppipe/docpipe"
	"github.com/myiephero/ieppipe/observability"
)

// Heartbeats older than this mark the service degraded in /v1/health.
const heartbeatStaleness = 45 * time.Second

// API wires the ingest service into an HTTP router.
type API struct {
	cfg   *Config
	ing   *Ingester
	store *Store
	obsDB *sql.DB // optional, backs the health endpoint
}

// NewAPI creates the HTTP layer. obsDB may be nil when the service runs
// without an observability database.
func NewAPI(cfg *Config, ing *Ingester, store *Store, obsDB *sql.DB) *API {
	return &API{cfg: cfg, ing: ing, store: store, obsDB: obsDB}
}

// Routes returns the versioned API router. Document routes sit behind
// JWT auth; health is public.
func (a *API) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/v1/health", a.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(a.cfg.JWTSecret))
		r.Post("/v1/documents", a.handleUpload)
		r.Get("/v1/documents", a.handleListDocuments)
		r.Get("/v1/documents/{id}", a.handleGetDocument)
		r.Get("/v1/documents/{id}/chunks", a.handleListChunks)
		r.Delete("/v1/documents/{id}", a.handleDeleteDocument)
	})
	return r
}

func (a *API) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Multipart memory threshold; larger parts spill to temp files.
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("parse multipart form: %w", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New(`multipart field "file" is required`))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, a.cfg.MaxFileBytes()+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
		return
	}
	if int64(len(data)) > a.cfg.MaxFileBytes() {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Errorf("file exceeds max size (%d MB)", a.cfg.MaxFileMB))
		return
	}

	result, err := a.ing.Ingest(r.Context(), header.Filename,
		header.Header.Get("Content-Type"), data, Subject(r.Context()))
	if err != nil {
		writeError(w, ingestStatus(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (a *API) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := a.store.GetDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if doc == nil || doc.OwnerSub != Subject(r.Context()) {
		writeError(w, http.StatusNotFound, errors.New("document not found"))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (a *API) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	docs, err := a.store.ListDocuments(r.Context(), Subject(r.Context()), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if docs == nil {
		docs = []*DocumentRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (a *API) handleListChunks(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "id")
	doc, err := a.store.GetDocument(r.Context(), docID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if doc == nil || doc.OwnerSub != Subject(r.Context()) {
		writeError(w, http.StatusNotFound, errors.New("document not found"))
		return
	}
	chunks, err := a.store.ListChunks(r.Context(), docID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if chunks == nil {
		chunks = []*ChunkRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"docId": docID, "chunks": chunks})
}

func (a *API) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	found, err := a.ing.Delete(r.Context(), chi.URLParam(r, "id"), Subject(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, errors.New("document not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}
	if a.obsDB != nil {
		hs, err := observability.LatestHeartbeat(r.Context(), a.obsDB, "ieppipe", heartbeatStaleness)
		if err == nil && hs != nil {
			resp["heartbeat"] = hs
			if !hs.Alive {
				resp["status"] = "degraded"
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ingestStatus maps pipeline errors to HTTP status codes.
func ingestStatus(err error) int {
	switch {
	case errors.Is(err, docpipe.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, docpipe.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, docpipe.ErrExtraction):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
