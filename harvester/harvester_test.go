package harvester

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/J-Schoepplenberg/mailsift/extract"
	"github.com/J-Schoepplenberg/mailsift/sniff"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(t *testing.T, cfg Config) *Service {
	t.Helper()
	s, err := New(&cfg, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func docxWith(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	w.Write([]byte(body))
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestScanBytes_PlainText(t *testing.T) {
	s := newService(t, Config{})

	res, err := s.ScanBytes(context.Background(), "notes.txt",
		[]byte("contact a@b.com or c@d.org\nalso a@b.com again"))
	if err != nil {
		t.Fatalf("ScanBytes: %v", err)
	}
	if res.Format != sniff.FormatText {
		t.Errorf("Format = %q, want %q", res.Format, sniff.FormatText)
	}
	want := []string{"a@b.com", "c@d.org"}
	if len(res.Emails) != len(want) {
		t.Fatalf("Emails = %v, want %v", res.Emails, want)
	}
	for i, addr := range want {
		if res.Emails[i] != addr {
			t.Errorf("Emails[%d] = %q, want %q", i, res.Emails[i], addr)
		}
	}
	if res.ID != "" {
		t.Errorf("expected empty ID without a store, got %q", res.ID)
	}
}

func TestScanBytes_Docx(t *testing.T) {
	s := newService(t, Config{})

	data := docxWith(t, "<w:t>write to office@example.com today</w:t>")
	res, err := s.ScanBytes(context.Background(), "report.docx", data)
	if err != nil {
		t.Fatalf("ScanBytes: %v", err)
	}
	if res.Format != sniff.FormatDocx {
		t.Errorf("Format = %q, want %q", res.Format, sniff.FormatDocx)
	}
	if len(res.Emails) != 1 || res.Emails[0] != "office@example.com" {
		t.Errorf("Emails = %v", res.Emails)
	}
}

func TestScanBytes_Unsupported(t *testing.T) {
	s := newService(t, Config{})

	_, err := s.ScanBytes(context.Background(), "pic.jpg",
		[]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10})
	if !errors.Is(err, extract.ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestScanBytes_SizeLimit(t *testing.T) {
	s := newService(t, Config{MaxFileSize: 8})

	if _, err := s.ScanBytes(context.Background(), "big", make([]byte, 9)); err == nil {
		t.Fatal("expected size error")
	}
	if _, err := s.ScanBytes(context.Background(), "fits", []byte("x@y.com!")); err != nil {
		t.Fatalf("at limit: %v", err)
	}
}

func TestScanBytes_ZeroMatches(t *testing.T) {
	s := newService(t, Config{})

	res, err := s.ScanBytes(context.Background(), "empty.txt", []byte("nothing here"))
	if err != nil {
		t.Fatalf("ScanBytes: %v", err)
	}
	if res.Emails == nil || len(res.Emails) != 0 {
		t.Errorf("Emails = %#v, want empty non-nil slice", res.Emails)
	}
}

func TestScanFile(t *testing.T) {
	s := newService(t, Config{})
	dir := t.TempDir()
	path := filepath.Join(dir, "input.txt")
	os.WriteFile(path, []byte("mail me: someone@example.org"), 0o644)

	res, err := s.ScanFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ScanFile: %v", err)
	}
	if len(res.Emails) != 1 || res.Emails[0] != "someone@example.org" {
		t.Errorf("Emails = %v", res.Emails)
	}

	if _, err := s.ScanFile(context.Background(), filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestScanFile_TooLarge(t *testing.T) {
	s := newService(t, Config{MaxFileSize: 4})
	path := filepath.Join(t.TempDir(), "big.txt")
	os.WriteFile(path, []byte("abcdef"), 0o644)

	if _, err := s.ScanFile(context.Background(), path); err == nil {
		t.Fatal("expected size error")
	}
}

func TestWriteOutput(t *testing.T) {
	s := newService(t, Config{})
	path := filepath.Join(t.TempDir(), "emails.txt")

	res := &Result{Emails: []string{"a@b.com", "c@d.org"}}
	if err := s.WriteOutput(res, path); err != nil {
		t.Fatalf("WriteOutput: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "a@b.com\nc@d.org\n" {
		t.Errorf("output = %q", data)
	}
}

func TestWriteOutput_Empty(t *testing.T) {
	s := newService(t, Config{})
	path := filepath.Join(t.TempDir(), "emails.txt")

	if err := s.WriteOutput(&Result{Emails: []string{}}, path); err != nil {
		t.Fatalf("WriteOutput: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("output file missing: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("output = %q, want empty file", data)
	}
}

func TestHistory_NoStore(t *testing.T) {
	s := newService(t, Config{})

	if _, err := s.Addresses(context.Background()); !errors.Is(err, ErrNoStore) {
		t.Errorf("Addresses err = %v, want ErrNoStore", err)
	}
	if _, err := s.History(context.Background(), 10); !errors.Is(err, ErrNoStore) {
		t.Errorf("History err = %v, want ErrNoStore", err)
	}
}

func TestHistory_WithStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "scans.db")
	s := newService(t, Config{DBPath: dbPath})
	ctx := context.Background()

	res, err := s.ScanBytes(ctx, "a.txt", []byte("x@y.com and z@w.net"))
	if err != nil {
		t.Fatalf("ScanBytes: %v", err)
	}
	if res.ID == "" {
		t.Fatal("expected recorded scan ID")
	}
	if _, err := s.ScanBytes(ctx, "b.txt", []byte("x@y.com")); err != nil {
		t.Fatalf("ScanBytes: %v", err)
	}

	addrs, err := s.Addresses(ctx)
	if err != nil {
		t.Fatalf("Addresses: %v", err)
	}
	if len(addrs) != 2 || addrs[0] != "x@y.com" || addrs[1] != "z@w.net" {
		t.Errorf("Addresses = %v", addrs)
	}

	hist, err := s.History(ctx, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("History len = %d, want 2", len(hist))
	}
	if hist[0].Name != "b.txt" {
		t.Errorf("newest scan = %q, want b.txt", hist[0].Name)
	}
}

func TestConfigDefaults(t *testing.T) {
	s := newService(t, Config{})
	cfg := s.Config()
	if cfg.MaxFileSize != 100<<20 {
		t.Errorf("MaxFileSize = %d", cfg.MaxFileSize)
	}
	if cfg.OutputPath != "emails.txt" {
		t.Errorf("OutputPath = %q", cfg.OutputPath)
	}
	if cfg.Listen != ":8085" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
}
