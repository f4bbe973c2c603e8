package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"npdetector/internal/config"
	"npdetector/internal/crawler"
	"npdetector/internal/ioformats"
	"npdetector/internal/models"
	"npdetector/internal/pipeline"
	"npdetector/internal/schema"
	"npdetector/pkg/logger"
)

type detectReq struct {
	URL    string            `json:"url"`
	Fields map[string]string `json:"fields,omitempty"`
}

type detectResp struct {
	Bundle models.SignalBundle     `json:"bundle"`
	Record *models.CondensedRecord `json:"record"`
}

type batchReq struct {
	Sites []detectReq `json:"sites"`
}

type batchResp struct {
	Records []models.CondensedRecord `json:"records"`
	Report  models.AggregateReport   `json:"report"`
}

func main() {
	cfg, err := config.Load(viper.New(), os.Getenv("NPDETECTOR_CONFIG"))
	if err != nil {
		logger.New().Errorf("%v", err)
		os.Exit(1)
	}
	l := logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON})

	reg, err := schema.Load(cfg.Patterns)
	if err != nil {
		l.Errorf("%v", err)
		os.Exit(1)
	}
	client := crawler.NewHTTPClient(cfg.Fetch.Timeout, cfg.Fetch.DialTimeout, cfg.Fetch.SizeCap).
		WithUserAgent(cfg.Fetch.UserAgent)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      logRequest(l, newMux(l, reg, crawler.Live{Fetcher: client})),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		l.Infof("server listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			l.Errorf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	l.Infof("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	l.Infof("bye")
}

func newMux(l *logger.Logger, reg *schema.Registry, pages pipeline.PageSource) *http.ServeMux {
	mux := http.NewServeMux()

	// every request gets its own runner so error logs and counts never mix
	runner := func() *pipeline.Runner {
		return pipeline.New(pipeline.Options{Pages: pages, Registry: reg, Logger: l})
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// POST /detect  { "url": "https://...", "fields": {"taxID": "..."} }
	mux.HandleFunc("/detect", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}
		var req detectReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		run := runner()
		b := run.ScrapeSite(ctx, org(req))
		resp := detectResp{Bundle: b}
		if rec, ok := run.CondenseBundle(b); ok {
			resp.Record = &rec
		}
		writeJSON(w, http.StatusOK, resp)
	})

	// POST /detect/batch  { "sites": [{"url": "..."}, ...] }
	mux.HandleFunc("/detect/batch", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}
		var req batchReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Sites) == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}

		run := runner()
		resp := batchResp{Records: []models.CondensedRecord{}}
		for _, s := range req.Sites {
			if err := r.Context().Err(); err != nil {
				return
			}
			if s.URL == "" {
				continue
			}
			ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
			b := run.ScrapeSite(ctx, org(s))
			cancel()
			if rec, ok := run.CondenseBundle(b); ok {
				resp.Records = append(resp.Records, rec)
			}
		}
		resp.Report = run.Report()
		writeJSON(w, http.StatusOK, resp)
	})

	return mux
}

func org(req detectReq) ioformats.Org {
	o := ioformats.Org{}
	for k, v := range req.Fields {
		o[k] = v
	}
	o["website"] = req.URL
	return o
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func logRequest(l *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		l.Infof("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
