// Entry point for the chronique HTTP service: chi router over the
// monitor/ingest/read API, SQLite storage, background scheduler.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/chronique/chronique"
	"github.com/hazyhaar/chronique/dbopen"
	"github.com/hazyhaar/chronique/shield"
)

// fileConfig is the optional YAML configuration, pointed at by CONFIG.
// Environment variables override file values.
type fileConfig struct {
	Port             string `yaml:"port"`
	DatabasePath     string `yaml:"database_path"`
	LogLevel         string `yaml:"log_level"`
	MaxMonitors      int    `yaml:"max_monitors"`
	CheckIntervalSec int    `yaml:"check_interval_seconds"`
	MaxFailCount     int    `yaml:"max_fail_count"`
}

func loadConfig() (*fileConfig, error) {
	cfg := &fileConfig{
		Port:         "8090",
		DatabasePath: "db/chronique.db",
		LogLevel:     "info",
	}
	if path := os.Getenv("CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.Port = env("PORT", cfg.Port)
	cfg.DatabasePath = env("DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = env("LOG_LEVEL", cfg.LogLevel)
	return cfg, nil
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	// Logging.
	var lvl slog.Level
	switch cfg.LogLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Database.
	db, err := dbopen.Open(cfg.DatabasePath, dbopen.WithMkdirAll())
	if err != nil {
		slog.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := chronique.ApplySchema(db); err != nil {
		slog.Error("apply schema", "error", err)
		os.Exit(1)
	}

	// Service.
	svc, err := chronique.New(db, &chronique.Config{
		CheckInterval: time.Duration(cfg.CheckIntervalSec) * time.Second,
		MaxFailCount:  cfg.MaxFailCount,
		MaxMonitors:   cfg.MaxMonitors,
	}, logger)
	if err != nil {
		slog.Error("chronique service", "error", err)
		os.Exit(1)
	}
	defer svc.Close()

	svc.Start(ctx)

	// Router.
	limiter := shield.NewRateLimiter(120, time.Minute, "/health")
	limiter.StartGC(ctx.Done(), 5*time.Minute)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(shield.APIHeaders())
	r.Use(shield.MaxBody(1 << 20))
	r.Use(limiter.Middleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Route("/api/monitors", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			monitors, err := svc.ListMonitors(r.Context())
			if err != nil {
				writeError(w, 500, err)
				return
			}
			writeJSON(w, 200, monitors)
		})

		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var m chronique.Monitor
			if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
				writeError(w, 400, err)
				return
			}
			if err := svc.AddMonitor(r.Context(), &m); err != nil {
				writeError(w, statusFor(err), err)
				return
			}
			writeJSON(w, 201, m)
		})

		r.Route("/{monitorID}", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				m, err := svc.GetMonitor(r.Context(), chi.URLParam(r, "monitorID"))
				if err != nil {
					writeError(w, statusFor(err), err)
					return
				}
				writeJSON(w, 200, m)
			})

			r.Put("/", func(w http.ResponseWriter, r *http.Request) {
				var m chronique.Monitor
				if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
					writeError(w, 400, err)
					return
				}
				m.ID = chi.URLParam(r, "monitorID")
				if err := svc.UpdateMonitor(r.Context(), &m); err != nil {
					writeError(w, statusFor(err), err)
					return
				}
				writeJSON(w, 200, m)
			})

			r.Delete("/", func(w http.ResponseWriter, r *http.Request) {
				if err := svc.DeleteMonitor(r.Context(), chi.URLParam(r, "monitorID")); err != nil {
					writeError(w, 500, err)
					return
				}
				writeJSON(w, 200, map[string]string{"status": "deleted"})
			})

			r.Post("/ingest", func(w http.ResponseWriter, r *http.Request) {
				var result chronique.SearchResult
				if err := json.NewDecoder(r.Body).Decode(&result); err != nil {
					writeError(w, 400, err)
					return
				}
				start := time.Now()
				sum, err := svc.Ingest(r.Context(), chi.URLParam(r, "monitorID"), &result)
				if err != nil {
					writeError(w, statusFor(err), err)
					return
				}
				writeJSON(w, 200, map[string]any{
					"created":     sum.Created,
					"skipped":     sum.Skipped,
					"duration_ms": time.Since(start).Milliseconds(),
				})
			})

			r.Post("/run", func(w http.ResponseWriter, r *http.Request) {
				sum, err := svc.RunMonitorNow(r.Context(), chi.URLParam(r, "monitorID"))
				if err != nil {
					writeError(w, statusFor(err), err)
					return
				}
				writeJSON(w, 200, sum)
			})

			r.Post("/reset", func(w http.ResponseWriter, r *http.Request) {
				if err := svc.ResetMonitor(r.Context(), chi.URLParam(r, "monitorID")); err != nil {
					writeError(w, 500, err)
					return
				}
				writeJSON(w, 200, map[string]string{"status": "reset"})
			})

			r.Get("/events", func(w http.ResponseWriter, r *http.Request) {
				events, err := svc.ListEvents(r.Context(), chi.URLParam(r, "monitorID"), queryInt(r, "limit", 50))
				if err != nil {
					writeError(w, statusFor(err), err)
					return
				}
				writeJSON(w, 200, events)
			})

			r.Get("/history", func(w http.ResponseWriter, r *http.Request) {
				history, err := svc.IngestHistory(r.Context(), chi.URLParam(r, "monitorID"), queryInt(r, "limit", 50))
				if err != nil {
					writeError(w, 500, err)
					return
				}
				writeJSON(w, 200, history)
			})
		})
	})

	r.Route("/api/events/{eventID}", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			e, err := svc.GetEvent(r.Context(), chi.URLParam(r, "eventID"))
			if err != nil {
				writeError(w, statusFor(err), err)
				return
			}
			writeJSON(w, 200, e)
		})

		r.Get("/articles", func(w http.ResponseWriter, r *http.Request) {
			articles, err := svc.ListArticles(r.Context(), chi.URLParam(r, "eventID"))
			if err != nil {
				writeError(w, 500, err)
				return
			}
			writeJSON(w, 200, articles)
		})
	})

	r.Get("/api/figures/{figureID}/events", func(w http.ResponseWriter, r *http.Request) {
		events, err := svc.EventsForFigure(r.Context(), chi.URLParam(r, "figureID"), queryInt(r, "limit", 50))
		if err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, events)
	})

	r.Get("/api/search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if q == "" {
			writeError(w, 400, errors.New("q is required"))
			return
		}
		hits, err := svc.Search(r.Context(), q, queryInt(r, "limit", 20))
		if err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, hits)
	})

	r.Get("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.GetStats(r.Context())
		if err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, stats)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("chronique: listening", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server", "error", err)
		os.Exit(1)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, chronique.ErrInvalidInput):
		return 400
	case errors.Is(err, chronique.ErrNotFound):
		return 404
	case errors.Is(err, chronique.ErrDuplicateMonitor):
		return 409
	case errors.Is(err, chronique.ErrQuotaExceeded):
		return 429
	case errors.Is(err, chronique.ErrNoSearcher):
		return 501
	default:
		return 500
	}
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
