package httpx

import (
	"context"
	"fmt"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"net/http"
	"time"
)

type ProgressSource interface {
	Subscribe(ctx context.Context, channel string) *redis.PubSub
}

// EventsHandler streams upload progress for one channel as server-sent
// events. Clients pick the channel and pass it along with the upload.
type EventsHandler struct {
	Progress  ProgressSource
	Heartbeat time.Duration
}

func (h *EventsHandler) Register(r chi.Router) {
	r.Get("/events/{channel}", h.stream)
}

func (h *EventsHandler) stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	channel := chi.URLParam(r, "channel")
	ctx := r.Context()

	sub := h.Progress.Subscribe(ctx, channel)
	defer sub.Close()
	// tunggu konfirmasi subscribe biar event pertama tidak hilang
	if _, err := sub.Receive(ctx); err != nil {
		log.WithError(err).WithField("channel", channel).Warn("progress subscribe failed")
		http.Error(w, "subscribe failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	beat := h.Heartbeat
	if beat <= 0 {
		beat = 25 * time.Second
	}
	ticker := time.NewTicker(beat)
	defer ticker.Stop()

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case m, ok := <-msgs:
			if !ok {
				return
			}
			_, _ = fmt.Fprintf(w, "event: progress\ndata: %s\n\n", m.Payload)
			flusher.Flush()
		}
	}
}
