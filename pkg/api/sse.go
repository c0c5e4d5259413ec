package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// setSSEHeaders configures the response for Server-Sent Events streaming.
func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

// writeSSEEvent writes one event and flushes it to the client.
func writeSSEEvent(w http.ResponseWriter, id uint64, event, data string) {
	fmt.Fprintf(w, "id: %d\n", id)
	if event != "" {
		fmt.Fprintf(w, "event: %s\n", event)
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// logStreamHandler streams new log records via SSE.
// Supports ?level= and ?text= filters.
func (s *Server) logStreamHandler(w http.ResponseWriter, r *http.Request) {
	if s.diag == nil {
		writeError(w, http.StatusServiceUnavailable, "log buffer not available")
		return
	}
	filter, err := logFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	setSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	sub := s.diag.Subscribe(128)
	defer sub.Close()

	var seq uint64
	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-sub.C:
			if !filter.Match(e) {
				continue
			}
			seq++
			data, err := json.Marshal(logEntry(e))
			if err != nil {
				continue
			}
			writeSSEEvent(w, seq, "log", string(data))
		}
	}
}
