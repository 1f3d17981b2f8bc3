package userapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/dusk-indust/usercrud/internal/user"
)

// Error messages returned in the "error" field of failed responses.
const (
	MsgNotFound     = "Usuario no encontrado"
	MsgCreateFailed = "Error al crear usuario"
	MsgListFailed   = "Error al leer usuarios"
	MsgGetFailed    = "Error al obtener usuario"
	MsgUpdateFailed = "Error al actualizar usuario"
	MsgDeleteFailed = "Error al eliminar usuario"
	MsgBadRequest   = "Cuerpo de la solicitud inválido"
	MsgInternal     = "Error interno del servidor"
	MsgNoPage       = "Página no disponible"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Handler returns the routed handler, wrapped in the logging and recovery
// middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /users", s.handleCreate)
	mux.HandleFunc("GET /users", s.handleList)
	mux.HandleFunc("GET /users/events", s.handleEvents)
	mux.HandleFunc("GET /users/{id}", s.handleGet)
	mux.HandleFunc("PUT /users/{id}", s.handleUpdate)
	mux.HandleFunc("DELETE /users/{id}", s.handleDelete)
	mux.HandleFunc("GET /", s.handleStatic)

	return s.recoverPanics(s.logRequests(mux))
}

// handleCreate serves POST /users.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in user.CreateInput
	if err := decodeBody(w, r, &in); err != nil {
		s.logger.Debug("userapi: bad create body", "error", err)
		writeError(w, http.StatusBadRequest, MsgBadRequest)
		return
	}

	u, err := s.svc.Create(r.Context(), in)
	if err != nil {
		s.logger.Error("userapi: create failed", "error", err)
		writeError(w, http.StatusInternalServerError, MsgCreateFailed)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// handleList serves GET /users.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	users, err := s.svc.List(r.Context())
	if err != nil {
		s.logger.Error("userapi: list failed", "error", err)
		writeError(w, http.StatusInternalServerError, MsgListFailed)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// handleGet serves GET /users/{id}.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := user.ParseID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, MsgNotFound)
		return
	}

	u, err := s.svc.Get(r.Context(), id)
	switch {
	case errors.Is(err, user.ErrNotFound):
		writeError(w, http.StatusNotFound, MsgNotFound)
	case err != nil:
		s.logger.Error("userapi: get failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, MsgGetFailed)
	default:
		writeJSON(w, http.StatusOK, u)
	}
}

// handleUpdate serves PUT /users/{id}.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := user.ParseID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, MsgNotFound)
		return
	}

	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, MsgBadRequest)
		return
	}
	patch, err := user.ParsePatch(body)
	if err != nil {
		s.logger.Debug("userapi: bad update body", "id", id, "error", err)
		writeError(w, http.StatusBadRequest, MsgBadRequest)
		return
	}

	u, err := s.svc.Update(r.Context(), id, patch)
	switch {
	case errors.Is(err, user.ErrNotFound):
		writeError(w, http.StatusNotFound, MsgNotFound)
	case err != nil:
		s.logger.Error("userapi: update failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, MsgUpdateFailed)
	default:
		writeJSON(w, http.StatusOK, u)
	}
}

// handleDelete serves DELETE /users/{id}.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := user.ParseID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, MsgNotFound)
		return
	}

	err = s.svc.Delete(r.Context(), id)
	switch {
	case errors.Is(err, user.ErrNotFound):
		writeError(w, http.StatusNotFound, MsgNotFound)
	case err != nil:
		s.logger.Error("userapi: delete failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, MsgDeleteFailed)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleEvents streams change events until the client goes away or the
// server stops.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	events, cancel := s.svc.Events().Subscribe()
	defer cancel()

	sw := NewSSEWriter(w)
	sw.Init()

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			if err := sw.WriteComment("keep-alive"); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := sw.WriteEvent(ev); err != nil {
				s.logger.Debug("userapi: event stream closed", "error", err)
				return
			}
		}
	}
}

// handleStatic serves the landing page assets. Any path that is not an
// existing file gets index.html, so client-side routes resolve.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if s.assets == nil {
		writeError(w, http.StatusNotFound, MsgNoPage)
		return
	}

	name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	if name != "" && name != "index.html" {
		if info, err := fs.Stat(s.assets, name); err == nil && !info.IsDir() {
			http.ServeFileFS(w, r, s.assets, name)
			return
		}
	}

	index, err := fs.ReadFile(s.assets, "index.html")
	if err != nil {
		s.logger.Error("userapi: landing page missing", "error", err)
		writeError(w, http.StatusNotFound, MsgNoPage)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(index)
}

// readBody reads at most maxBodyBytes of the request body.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", user.ErrInvalidInput, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return []byte("{}"), nil
	}
	return body, nil
}

// decodeBody reads the body into v. An empty body decodes as {}.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", user.ErrInvalidInput, err)
	}
	return nil
}

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, MsgInternal)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError writes {"error": msg} with the given status.
func writeError(w http.ResponseWriter, status int, msg string) {
	data, _ := json.Marshal(ErrorResponse{Error: msg})
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}
