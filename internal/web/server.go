// Package web exposes the receiver's state over HTTP: a JSON status
// API and a websocket feed of live fixes.
package web

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vaultecki/py-positioning-stuff/internal/metrics"
	"github.com/vaultecki/py-positioning-stuff/internal/track"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler builds the HTTP mux over the store, live feed and metrics.
// feed and collector may be nil; the matching endpoints then report
// 404.
func Handler(store *track.Store, feed *Broadcaster, collector *metrics.Collector) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, store.Statistics())
	})

	mux.HandleFunc("/api/positions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		count := 0
		if raw := r.URL.Query().Get("count"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil || v < 0 {
				http.Error(w, "invalid count", http.StatusBadRequest)
				return
			}
			count = v
		}
		writeJSON(w, store.Positions(count))
	})

	mux.HandleFunc("/api/metrics", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if collector == nil {
			http.Error(w, "metrics unavailable", http.StatusNotFound)
			return
		}
		writeJSON(w, collector.Snapshot())
	})

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if feed == nil {
			http.Error(w, "live feed unavailable", http.StatusNotFound)
			return
		}
		serveWS(feed, w, r)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
	_, _ = w.Write([]byte("\n"))
}

// serveWS streams fixes as JSON text messages until the client
// disconnects.
func serveWS(feed *Broadcaster, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade error: %v", err)
		return
	}

	id, ch := feed.Subscribe(16)
	log.Printf("[ws] client connected: %s", r.RemoteAddr)

	// Reader goroutine: drain control frames, detect disconnect.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	go func() {
		defer func() {
			feed.Unsubscribe(id)
			conn.Close()
			log.Printf("[ws] client disconnected: %s", r.RemoteAddr)
		}()
		for {
			select {
			case <-gone:
				return
			case fix, ok := <-ch:
				if !ok {
					return
				}
				b, err := json.Marshal(fix)
				if err != nil {
					continue
				}
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					return
				}
			}
		}
	}()
}

// Serve runs the HTTP server until ctx is cancelled.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()

	log.Printf("[web] listening on %s", addr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
