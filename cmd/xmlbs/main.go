// Command xmlbs repairs malformed HTML-like markup.
//
//	xmlbs [flags] [FILE]    repair FILE (or stdin) and write the result to stdout
//	xmlbs serve [flags]     serve repairs over HTTP and WebSocket
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/pflag"

	"github.com/dpotapov/xmlbs"
	"github.com/dpotapov/xmlbs/internal/config"
	"github.com/dpotapov/xmlbs/schema"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("xmlbs", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	annotate := fs.BoolP("annotate", "a", false, "leave comments in place of dropped markup")
	ignoreCase := fs.BoolP("ignore-case", "i", false, "match tag and attribute names case-insensitively")
	schemaPath := fs.String("schema", "", "grammar file (.properties or .xml); built-in XHTML when empty")
	configPath := fs.String("config", "", "YAML configuration file")
	listen := fs.String("listen", "", "listen address for serve")
	verbose := fs.BoolP("verbose", "v", false, "log repair actions")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: xmlbs [flags] [FILE]\n       xmlbs serve [flags]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if fs.Changed("annotate") {
		cfg.Annotate = *annotate
	}
	if fs.Changed("ignore-case") {
		cfg.IgnoreCase = *ignoreCase
	}
	if fs.Changed("schema") {
		cfg.Schema = *schemaPath
	}
	if fs.Changed("listen") {
		cfg.Listen = *listen
	}
	if *verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, "invalid configuration:", err)
		return 1
	}

	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	sch, err := loadSchema(cfg)
	if err != nil {
		logger.Error("Load schema", "error", err)
		return 1
	}

	rest := fs.Args()
	if len(rest) > 0 && rest[0] == "serve" {
		if err := serve(cfg, sch, logger); err != nil {
			logger.Error("HTTP server error", "error", err)
			return 1
		}
		return 0
	}
	if len(rest) > 1 {
		fs.Usage()
		return 2
	}

	in := stdin
	if len(rest) == 1 && rest[0] != "-" {
		f, err := os.Open(rest[0])
		if err != nil {
			logger.Error("Open input", "error", err)
			return 1
		}
		defer f.Close()
		in = f
	}

	fixes, err := xmlbs.Repair(in, stdout, sch, xmlbs.WithAnnotate(cfg.Annotate), xmlbs.WithLogger(logger))
	if err != nil {
		logger.Error("Repair document", "error", err)
		return 1
	}
	logger.Info("Repaired document", "fixes", len(fixes))
	return 0
}

func loadSchema(cfg config.Config) (*schema.Schema, error) {
	if cfg.Schema == "" {
		return schema.XHTML(), nil
	}

	f, err := os.Open(cfg.Schema)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var s *schema.Schema
	switch cfg.SchemaFormat() {
	case "xml":
		s, err = schema.LoadXML(f)
	default:
		s, err = schema.LoadProperties(f)
	}
	if err != nil {
		return nil, fmt.Errorf("load schema %s: %w", cfg.Schema, err)
	}
	if cfg.IgnoreCase {
		s.SetIgnoreCase(true)
	}
	return s, nil
}

func LoggerMiddleware(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Info("HTTP request", "method", r.Method, "url", r.URL, "request_id", middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r)
	})
}

func newRouter(h *xmlbs.Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(func(next http.Handler) http.Handler { return LoggerMiddleware(next, logger) })

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Post("/repair", h.ServeHTTP)
	r.Get("/ws", h.ServeHTTP)
	return r
}

func serve(cfg config.Config, sch *schema.Schema, logger *slog.Logger) error {
	h := &xmlbs.Handler{
		Schema:       sch,
		Annotate:     cfg.Annotate,
		MaxBodyBytes: cfg.MaxBodyBytes,
		Logger:       logger,
	}

	srv := &http.Server{
		Addr:         cfg.Listen,
		Handler:      newRouter(h, logger),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Starting HTTP server", "address", cfg.Listen)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
