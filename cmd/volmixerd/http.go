package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"volmixer/mixer"
)

// ============================================================================
// HTTP Server
// ============================================================================
// JSON API over the daemon loop plus the state WebSocket:
//
//   GET /api/channels                      every channel
//   GET /api/channels/{name}[?card=N]      one channel
//   PUT /api/channels/{name}/volume        {"value": 0..100}
//   PUT /api/channels/{name}/balance       {"value": -100..100}
//   GET /ws/state                          WebSocket feed
// ============================================================================

// valueBody is the request body of the PUT endpoints.
type valueBody struct {
	Value *int `json:"value"`
}

type apiError struct {
	Error string `json:"error"`
}

// apiHandler serves the JSON endpoints.
type apiHandler struct {
	events chan<- Event
	logger *slog.Logger
}

// newHTTPHandler builds the daemon's HTTP routes. ws may be nil.
func newHTTPHandler(events chan<- Event, ws *Server, logger *slog.Logger) http.Handler {
	h := &apiHandler{events: events, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/channels", h.listChannels)
	mux.HandleFunc("GET /api/channels/{name}", h.getChannel)
	mux.HandleFunc("PUT /api/channels/{name}/volume", h.setValue(func(ref ChannelRef, v int) Command {
		return SetVolume{ChannelRef: ref, Value: v}
	}))
	mux.HandleFunc("PUT /api/channels/{name}/balance", h.setValue(func(ref ChannelRef, v int) Command {
		return SetBalance{ChannelRef: ref, Value: v}
	}))
	if ws != nil {
		ws.Register(mux, "GET /ws/state")
	}
	return mux
}

func (h *apiHandler) listChannels(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, ListChannels{}, false)
}

func (h *apiHandler) getChannel(w http.ResponseWriter, r *http.Request) {
	ref, err := channelRefFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}
	h.run(w, r, GetChannel{ref}, true)
}

func (h *apiHandler) setValue(build func(ChannelRef, int) Command) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, err := channelRefFromRequest(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
			return
		}

		var body valueBody
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, apiError{Error: fmt.Sprintf("decode body: %v", err)})
			return
		}
		if body.Value == nil {
			writeJSON(w, http.StatusBadRequest, apiError{Error: "value is required"})
			return
		}

		h.run(w, r, build(ref, *body.Value), true)
	}
}

// run submits cmd and writes the reply. With single set, the lone channel is
// returned as an object instead of a list.
func (h *apiHandler) run(w http.ResponseWriter, r *http.Request, cmd Command, single bool) {
	reply, err := submit(r.Context(), h.events, cmd)
	if err == nil {
		err = reply.Err
	}
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, mixer.ErrChannelNotFound):
			status = http.StatusNotFound
		case errors.Is(err, errDaemonBusy):
			status = http.StatusServiceUnavailable
		default:
			h.logger.Warn("http command failed", "path", r.URL.Path, "error", err)
		}
		writeJSON(w, status, apiError{Error: err.Error()})
		return
	}

	if single && len(reply.Channels) == 1 {
		writeJSON(w, http.StatusOK, reply.Channels[0])
		return
	}
	channels := reply.Channels
	if channels == nil {
		channels = []mixer.Snapshot{}
	}
	writeJSON(w, http.StatusOK, channels)
}

func channelRefFromRequest(r *http.Request) (ChannelRef, error) {
	ref := ChannelRef{Name: r.PathValue("name")}
	if s := r.URL.Query().Get("card"); s != "" {
		card, err := strconv.Atoi(s)
		if err != nil || card < 0 {
			return ChannelRef{}, fmt.Errorf("invalid card %q", s)
		}
		ref.Card = &card
	}
	return ref, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// runHTTPServer serves handler on port and shuts it down gracefully when ctx
// is canceled. Port 0 disables the server.
func runHTTPServer(ctx context.Context, port int, handler http.Handler, logger *slog.Logger) error {
	if port == 0 {
		logger.Info("HTTP server disabled")
		return nil
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("HTTP listen: %w", err)
	}
	logger.Info("HTTP server listening", "port", port)

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		// Serve returns http.ErrServerClosed on Shutdown; treat that as clean exit.
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown: %w", err)
		}
		<-errCh
		return nil

	case err := <-errCh:
		return err
	}
}
