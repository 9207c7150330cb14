// Package main runs a scriptable fake gallery server so cardlift can be
// exercised end to end without a real backend. Duplicate verdicts, per-file
// rejections, latency, and transient failures are all driven by flags.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/cardlift/cardlift/internal/gallerytest"
	"github.com/cardlift/cardlift/internal/logging"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownGrace     = 5 * time.Second
)

func main() {
	var (
		addr       = flag.String("addr", ":8787", "listen address")
		token      = flag.String("token", "", "bearer token to require (empty disables auth)")
		apiVersion = flag.String("api-version", gallerytest.DefaultAPIVersion, "API version reported in the response header")
		latency    = flag.Duration("latency", 0, "artificial delay per batch exchange")
		failEvery  = flag.Int("fail-every", 0, "fail every Nth batch call with 503 (0 disables)")
		warn       = flag.String("warn", "", "warning message attached to every success response")
		exists     = flag.String("exists", "", "comma-separated character names that already exist (uploads conflict)")
		near       = flag.String("near", "", "comma-separated name=score pairs flagged as near duplicates")
		reject     = flag.String("reject", "", "comma-separated filename=message pairs rejected per file")
		debug      = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	level := "info"
	if *debug {
		level = "debug"
	}
	logger := logging.NewWriterLogger(logging.Config{Level: level, Format: logging.FormatConsole}, os.Stderr)

	opts := gallerytest.Options{
		Token:        *token,
		APIVersion:   *apiVersion,
		Latency:      *latency,
		BatchWarning: *warn,
		FailEvery:    *failEvery,
		Existing:     splitList(*exists),
	}

	nearDupes, err := parseScorePairs(*near)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid --near value")
	}
	opts.NearDuplicates = nearDupes

	server := gallerytest.New(opts)

	rejections, err := parsePairs(*reject)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid --reject value")
	}
	for filename, message := range rejections {
		server.RejectFile(filename, gallerytest.Rejection{Message: message})
	}

	logger.Info().
		Str("addr", *addr).
		Str("api_version", *apiVersion).
		Bool("auth", *token != "").
		Int("seeded", len(opts.Existing)).
		Int("near_duplicates", len(opts.NearDuplicates)).
		Int("rejections", len(rejections)).
		Msg("mockgallery starting")

	srv := &http.Server{
		Addr:              *addr,
		Handler:           requestLogger(logger, server.Handler()),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info().Str("signal", sig.String()).Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
	}
	logger.Info().Int("batch_calls", server.Calls()).Msg("mockgallery stopped")
}

// requestLogger logs one line per request with the response status.
func requestLogger(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// splitList splits a comma-separated flag value, dropping empty entries.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// parsePairs parses "key=value,key2=value2" flag values.
func parsePairs(s string) (map[string]string, error) {
	pairs := map[string]string{}
	for _, part := range splitList(s) {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("expected key=value, got %q", part)
		}
		pairs[key] = value
	}
	return pairs, nil
}

// parseScorePairs parses "name=0.92" pairs into similarity scores.
func parseScorePairs(s string) (map[string]float64, error) {
	raw, err := parsePairs(s)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	scores := make(map[string]float64, len(raw))
	for name, value := range raw {
		score, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid similarity score %q for %q", value, name)
		}
		if score < 0 || score > 1 {
			return nil, fmt.Errorf("similarity score for %q must be between 0 and 1, got %g", name, score)
		}
		scores[name] = score
	}
	return scores, nil
}
