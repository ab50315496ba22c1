package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ruteri/record-store/interfaces"
	"github.com/ruteri/record-store/metrics"
	"github.com/ruteri/record-store/records"
	"github.com/ruteri/record-store/serializer"
)

// maxBodySize is the maximum allowed request body size (1MB).
const maxBodySize = 1024 * 1024

// RequestError provides structured error information for HTTP responses.
// It includes both an HTTP status code and the underlying error.
type RequestError struct {
	// StatusCode is the HTTP status code to return.
	StatusCode int

	// Err is the underlying error.
	Err error
}

// Error returns the error message from the underlying error.
func (e *RequestError) Error() string {
	return e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Handler serves records of a records.Manager over HTTP. Request and response
// bodies are JSON regardless of the manager's storage format.
type Handler struct {
	manager  *records.Manager[serializer.Document]
	recorder *metrics.Recorder
	log      *slog.Logger
}

// NewHandler creates a new HTTP request handler. recorder may be nil.
func NewHandler(manager *records.Manager[serializer.Document], recorder *metrics.Recorder, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		manager:  manager,
		recorder: recorder,
		log:      log,
	}
}

// HandleList returns every record as a JSON array.
//
// URL: GET /api/records
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	docs, err := h.manager.ListContents(r.Context())
	if err != nil {
		h.writeError(w, "list", "", err)
		return
	}
	h.writeJSON(w, http.StatusOK, docs)
}

// HandleExists answers 200 when the record exists and 404 otherwise. In dual
// mode a record held by only one backend is reported as a server error.
//
// URL: HEAD /api/records/{name}
func (h *Handler) HandleExists(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, err := h.manager.Exists(r.Context(), name, records.MustExist(), records.RequireConsistent()); err != nil {
		h.writeError(w, "exists", name, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HandleRead returns one record.
//
// URL: GET /api/records/{name}
func (h *Handler) HandleRead(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	doc, err := h.manager.Read(r.Context(), name)
	if err != nil {
		h.writeError(w, "read", name, err)
		return
	}
	h.writeJSON(w, http.StatusOK, doc)
}

// HandleCreate creates a record. Without a body the record is empty. With a
// body the record is serialized before any backend is touched, then created
// and written. Creating and writing are separate backend calls, so a backend
// failure between them leaves the empty record behind.
//
// URL: POST /api/records/{name}
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	doc, hasBody, err := readDocument(r)
	if err != nil {
		h.writeError(w, "create", name, err)
		return
	}

	if !hasBody {
		if err := h.manager.Create(r.Context(), name); err != nil {
			h.writeError(w, "create", name, err)
			return
		}
	} else {
		exists, err := h.manager.Exists(r.Context(), name, records.RequireConsistent())
		if err != nil {
			h.writeError(w, "create", name, err)
			return
		}
		if exists {
			h.writeError(w, "create", name, fmt.Errorf("%w: %s", records.ErrAlreadyExists, name))
			return
		}
		if err := h.manager.Write(r.Context(), name, doc, true); err != nil {
			h.writeError(w, "create", name, err)
			return
		}
	}

	key, _ := h.manager.Key(name)
	h.writeJSON(w, http.StatusCreated, map[string]string{"key": key.String()})
}

// HandleWrite replaces a record. The record is created first when the
// create=true query parameter is given, otherwise it must exist.
//
// URL: PUT /api/records/{name}?create=true
func (h *Handler) HandleWrite(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	doc, hasBody, err := readDocument(r)
	if err != nil {
		h.writeError(w, "write", name, err)
		return
	}
	if !hasBody {
		h.writeError(w, "write", name, &RequestError{StatusCode: http.StatusBadRequest, Err: errors.New("empty request body")})
		return
	}

	createIfAbsent := r.URL.Query().Get("create") == "true"
	if err := h.manager.Write(r.Context(), name, doc, createIfAbsent); err != nil {
		h.writeError(w, "write", name, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete removes a record.
//
// URL: DELETE /api/records/{name}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.manager.Delete(r.Context(), name); err != nil {
		h.writeError(w, "delete", name, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// readDocument decodes an optional JSON object body.
func readDocument(r *http.Request) (serializer.Document, bool, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return nil, false, &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("failed to read request body: %w", err)}
	}
	if len(body) > maxBodySize {
		return nil, false, &RequestError{StatusCode: http.StatusRequestEntityTooLarge, Err: errors.New("request body too large")}
	}
	if len(body) == 0 {
		return nil, false, nil
	}

	var doc serializer.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, false, &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("invalid record body: %w", err)}
	}
	return doc, true, nil
}

// statusFor maps manager errors onto HTTP status codes. Partial failures are
// checked first since they wrap the backend error that caused them.
func statusFor(err error) int {
	var reqErr *RequestError
	switch {
	case errors.As(err, &reqErr):
		return reqErr.StatusCode
	case errors.Is(err, records.ErrPartialFailure):
		return http.StatusBadGateway
	case errors.Is(err, records.ErrMismatch):
		return http.StatusInternalServerError
	case errors.Is(err, records.ErrInvalidName), errors.Is(err, records.ErrInvalidMode):
		return http.StatusBadRequest
	case errors.Is(err, records.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, records.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, interfaces.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, op, name string, err error) {
	status := statusFor(err)
	if h.recorder != nil {
		h.recorder.ObserveError(op, err)
	}

	if status >= http.StatusInternalServerError {
		h.log.Error("Record operation failed",
			slog.String("op", op),
			slog.String("name", name),
			"err", err)
	} else {
		h.log.Debug("Record operation rejected",
			slog.String("op", op),
			slog.String("name", name),
			slog.Int("status", status),
			"err", err)
	}

	http.Error(w, err.Error(), status)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}
