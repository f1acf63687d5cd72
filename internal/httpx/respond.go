package httpx

import (
	"encoding/json"
	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"io"
	"net/http"
	"strconv"
	"strings"
)

var (
	errInvalidJSON = apperr.Validation("invalid json")
	errInvalidID   = apperr.Validation("invalid id")
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeOK answers {"success":true,"message":...,<key>:<v>}. key may be
// empty for message-only responses.
func writeOK(w http.ResponseWriter, code int, message, key string, v any) {
	body := map[string]any{"success": true, "message": message}
	if key != "" {
		body[key] = v
	}
	writeJSON(w, code, body)
}

// writeError maps an error to {"success":false,"message":...}. Internal
// causes are logged, never sent.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	body := map[string]any{"success": false, "message": "internal server error"}

	if e, ok := apperr.As(err); ok && kind != apperr.KindInternal {
		body["message"] = e.Message
		if len(e.Details) > 0 {
			body["details"] = e.Details
		}
	}
	if kind == apperr.KindInternal {
		log.WithError(err).WithFields(log.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": middleware.GetReqID(r.Context()),
		}).Error("request failed")
	}
	writeJSON(w, kind.HTTPStatus(), body)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && err != io.EOF {
		return errInvalidJSON
	}
	return nil
}

func urlID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, errInvalidID
	}
	return id, nil
}

func queryInt(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(name))
	return n
}

func queryBool(r *http.Request, name string) *bool {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil
	}
	b := v == "true" || v == "1"
	return &b
}

// queryFlags reads include=a,b and name=true style switches.
func queryFlags(r *http.Request) map[string]bool {
	out := map[string]bool{}
	q := r.URL.Query()
	for _, part := range strings.Split(q.Get("include"), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out[p] = true
		}
	}
	for k, vs := range q {
		if len(vs) > 0 && vs[0] == "true" {
			out[k] = true
		}
	}
	return out
}

func sortDesc(r *http.Request) bool {
	t := strings.ToLower(r.URL.Query().Get("sortType"))
	return t == "desc"
}
