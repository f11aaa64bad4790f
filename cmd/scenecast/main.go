package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"os/signal"
	"strings"
	"syscall"

	"scenecast/internal/audio"
	"scenecast/internal/capture"
	"scenecast/internal/compose"
	"scenecast/internal/config"
	"scenecast/internal/stream"
)

func main() {
	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Println("scenecast starting up...")

	if err := capture.ProbeHost(); err != nil {
		// Not fatal here: Compose probes again and rejects per-call.
		log.Printf("Warning: %v", err)
	}

	hueBase := cfg.HueBase
	if hueBase < 0 {
		hueBase = rand.IntN(360)
	}
	log.Printf("Session hue base: %d", hueBase)

	store := capture.NewStore()
	monitor := stream.NewBroadcaster()
	monitorHandler := stream.NewMonitorHandler(monitor)

	orch := compose.New(compose.Config{
		Width:         cfg.Width,
		Height:        cfg.Height,
		FlushInterval: cfg.FlushInterval,
		HueBase:       hueBase,
	}, store, monitor)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/compose", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		var payload compose.Payload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}

		// Runs live on the server context: a client that disconnects while
		// waiting does not tear down a composition in flight.
		run, err := orch.Compose(ctx, payload)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, compose.ErrBusy) {
				status = http.StatusConflict
			} else if errors.Is(err, compose.ErrHostUnavailable) {
				status = http.StatusServiceUnavailable
			}
			http.Error(w, err.Error(), status)
			return
		}

		res, err := run.Wait(r.Context())
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, audio.ErrDecode) {
				status = http.StatusUnprocessableEntity
			}
			http.Error(w, err.Error(), status)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(res)
	})

	mux.HandleFunc("/api/cancel", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		orch.Cancel()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		st := orch.Status()
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		json.NewEncoder(w).Encode(map[string]any{
			"isRendering":      st.Rendering,
			"error":            st.Err,
			"monitor_peers":    monitorHandler.PeerCount(),
			"stored_artifacts": store.Len(),
		})
	})

	mux.HandleFunc("/artifacts/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/artifacts/")
		switch r.Method {
		case http.MethodGet:
			data, mime, ok := store.Get(id)
			if !ok {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", mime)
			w.Write(data)
		case http.MethodDelete:
			if !store.Release(id) {
				http.NotFound(w, r)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, "GET or DELETE required", http.StatusMethodNotAllowed)
		}
	})

	// Live monitor: hear the voiceover while a composition renders
	mux.Handle("/offer", monitorHandler)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		server.Close()
	}()

	log.Printf("scenecast live on %s", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("HTTP server error: %v", err)
	}
}
