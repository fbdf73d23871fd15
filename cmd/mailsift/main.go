// Command mailsift extracts email addresses from documents.
//
// Usage:
//
//	mailsift report.pdf                    # scan one file, write emails.txt
//	mailsift -json archive.docx            # scan and print the result as JSON
//	mailsift -serve -db mailsift.db        # HTTP API with scan history
//	mailsift -mcp                          # MCP server on stdio
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"github.com/J-Schoepplenberg/mailsift/harvester"
)

func main() {
	configPath := flag.String("config", "", "path to mailsift.yaml config file")
	outputPath := flag.String("o", "", "output file for addresses (default emails.txt)")
	dbPath := flag.String("db", "", "path to SQLite scan-history database")
	serve := flag.Bool("serve", false, "run the HTTP API")
	mcpMode := flag.Bool("mcp", false, "run as an MCP server on stdio")
	listen := flag.String("listen", "", "HTTP listen address (default :8085)")
	asJSON := flag.Bool("json", false, "print the scan result as JSON instead of writing the output file")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, options{
		configPath: *configPath,
		outputPath: *outputPath,
		dbPath:     *dbPath,
		listen:     *listen,
		serve:      *serve,
		mcpMode:    *mcpMode,
		asJSON:     *asJSON,
		inputPath:  flag.Arg(0),
	}); err != nil {
		logger.Error("mailsift: fatal", "error", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	outputPath string
	dbPath     string
	listen     string
	serve      bool
	mcpMode    bool
	asJSON     bool
	inputPath  string
}

func run(ctx context.Context, logger *slog.Logger, opts options) error {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return err
	}

	svc, err := harvester.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer svc.Close()

	switch {
	case opts.mcpMode:
		return runMCP(ctx, svc)
	case opts.serve:
		return runServe(ctx, logger, svc)
	default:
		return runScan(ctx, logger, svc, opts)
	}
}

func resolveConfig(opts options) (*harvester.Config, error) {
	var cfg *harvester.Config
	if opts.configPath != "" {
		c, err := harvester.LoadConfigFile(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = c
	} else {
		cfg = &harvester.Config{}
	}
	if opts.outputPath != "" {
		cfg.OutputPath = opts.outputPath
	}
	if opts.dbPath != "" {
		cfg.DBPath = opts.dbPath
	}
	if opts.listen != "" {
		cfg.Listen = opts.listen
	}
	return cfg, nil
}

// One-shot: scan a single file.
func runScan(ctx context.Context, logger *slog.Logger, svc *harvester.Service, opts options) error {
	if opts.inputPath == "" {
		fmt.Fprintln(os.Stderr, "usage: mailsift [flags] <file> | mailsift -serve | mailsift -mcp")
		flag.PrintDefaults()
		os.Exit(2)
	}

	res, err := svc.ScanFile(ctx, opts.inputPath)
	if err != nil {
		return err
	}
	if len(res.Emails) == 0 {
		logger.Warn("no addresses found", "file", opts.inputPath, "format", res.Format)
	}

	if opts.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	out := svc.Config().OutputPath
	if err := svc.WriteOutput(res, out); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "%d address(es) written to %s\n", len(res.Emails), out)
	return nil
}

func runServe(ctx context.Context, logger *slog.Logger, svc *harvester.Service) error {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if pw := os.Getenv("AUTH_PASSWORD"); pw != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash auth password: %w", err)
		}
		r.Use(basicAuth(hash))
	}
	svc.RegisterHTTP(r)

	srv := &http.Server{
		Addr:              svc.Config().Listen,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func runMCP(ctx context.Context, svc *harvester.Service) error {
	srv := mcp.NewServer(&mcp.Implementation{Name: "mailsift", Version: "0.1.0"}, nil)
	svc.RegisterMCP(srv)
	return srv.Run(ctx, &mcp.StdioTransport{})
}

func basicAuth(hash []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, pw, ok := r.BasicAuth()
			if !ok || bcrypt.CompareHashAndPassword(hash, []byte(pw)) != nil {
				w.Header().Set("WWW-Authenticate", `Basic realm="mailsift"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
