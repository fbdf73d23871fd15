// Package harvester wires the classification, extraction, and scanning stages
// into a service usable from the CLI, the HTTP API, and MCP tools.
//
// The stages themselves are pure buffer transforms; everything stateful
// (filesystem reads, size limits, the optional scan-history store, output
// files) lives here.
package harvester

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/J-Schoepplenberg/mailsift/extract"
	"github.com/J-Schoepplenberg/mailsift/harvester/internal/store"
	"github.com/J-Schoepplenberg/mailsift/scan"
	"github.com/J-Schoepplenberg/mailsift/sniff"
)

// ErrNoStore is returned by history queries when no DBPath was configured.
var ErrNoStore = errors.New("history store not configured")

// Result is the outcome of scanning one input.
type Result struct {
	ID      string        `json:"id,omitempty"`
	Name    string        `json:"name"`
	Format  sniff.Format  `json:"format"`
	Size    int64         `json:"size"`
	Blocks  int           `json:"blocks"`
	Emails  []string      `json:"emails"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// Service runs scans and owns the optional history store.
type Service struct {
	cfg    Config
	logger *slog.Logger
	store  *store.Store
}

// New creates a Service. When cfg.DBPath is set the SQLite history store is
// opened; a missing parent directory is created.
func New(cfg *Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := *cfg
	c.defaults()

	s := &Service{cfg: c, logger: logger}
	if c.DBPath != "" {
		st, err := store.Open(c.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		s.store = st
	}
	return s, nil
}

// Close releases the history store, if any.
func (s *Service) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

// Config returns the effective configuration after defaults.
func (s *Service) Config() Config { return s.cfg }

// ScanBytes classifies data, extracts its text, and scans for addresses.
// The buffer is borrowed for the duration of the call and never retained.
func (s *Service) ScanBytes(ctx context.Context, name string, data []byte) (*Result, error) {
	if int64(len(data)) > s.cfg.MaxFileSize {
		return nil, fmt.Errorf("input too large: %d bytes (max %d)", len(data), s.cfg.MaxFileSize)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	format := sniff.Detect(data)
	s.logger.Debug("classified input", "name", name, "format", format, "size", len(data))

	blocks, err := extract.Extract(format, data)
	if err != nil {
		return nil, fmt.Errorf("extract %s (%s): %w", name, format, err)
	}

	emails := scan.Emails(blocks)
	res := &Result{
		Name:    name,
		Format:  format,
		Size:    int64(len(data)),
		Blocks:  len(blocks),
		Emails:  emails,
		Elapsed: time.Since(start),
	}

	if s.store != nil {
		id, err := s.store.Record(ctx, store.Scan{
			Name:   name,
			Format: string(format),
			Size:   res.Size,
			Emails: emails,
		})
		if err != nil {
			// History must never break a successful scan.
			s.logger.Warn("record scan", "name", name, "error", err)
		} else {
			res.ID = id
		}
	}

	s.logger.Info("scan complete",
		"name", name, "format", format, "blocks", res.Blocks,
		"emails", len(emails), "elapsed", res.Elapsed)
	return res, nil
}

// ScanFile reads path into memory and scans it. All filesystem access happens
// here, before the buffer enters the core.
func (s *Service) ScanFile(ctx context.Context, path string) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > s.cfg.MaxFileSize {
		return nil, fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), s.cfg.MaxFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return s.ScanBytes(ctx, path, data)
}

// WriteOutput writes the addresses as newline-terminated records. An empty
// result still produces the file: zero matches is a normal outcome.
func (s *Service) WriteOutput(res *Result, path string) error {
	if path == "" {
		path = s.cfg.OutputPath
	}
	var sb strings.Builder
	for _, addr := range res.Emails {
		sb.WriteString(addr)
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Addresses returns every distinct address ever recorded, sorted.
func (s *Service) Addresses(ctx context.Context) ([]string, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.Addresses(ctx)
}

// History returns the most recent scans, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]store.ScanInfo, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.History(ctx, limit)
}
