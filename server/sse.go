package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/nmitic/sunat-noticia/pkg/domain"
)

// keepaliveInterval keeps idle SSE connections from being reaped by
// intermediaries
const keepaliveInterval = 30 * time.Second

// sseEvent is the wire envelope of one live update
type sseEvent struct {
	Type string          `json:"type"`
	Data domain.NewsItem `json:"data"`
}

// streamHandler serves GET /api/v1/news/stream: a server-sent-events feed
// of items as they get published. The client is unregistered when the
// connection drops.
func (s *Server) streamHandler(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		renderError(w, r, fmt.Errorf("streaming not supported"), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, unregister := s.live.Register()
	defer unregister()
	lgr.Printf("[DEBUG] sse client connected, %d total", s.live.Count())

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			lgr.Printf("[DEBUG] sse client disconnected")
			return
		case item, open := <-ch:
			if !open {
				return
			}
			payload, err := json.Marshal(sseEvent{Type: "new-news", Data: item})
			if err != nil {
				lgr.Printf("[WARN] can't marshal sse event: %v", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}
