package httpx

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
	"net/http"
	"time"
)

func NewRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: log.StandardLogger(), NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

type Registrar interface {
	Register(r chi.Router)
}

// Mount puts the handlers under /v1. Every route gets a request timeout
// except the event stream, which stays open until the client leaves.
func Mount(root *chi.Mux, events Registrar, hs ...Registrar) {
	root.Route("/v1", func(r chi.Router) {
		if events != nil {
			events.Register(r)
		}
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(15 * time.Second))
			for _, h := range hs {
				h.Register(r)
			}
		})
	})
}
