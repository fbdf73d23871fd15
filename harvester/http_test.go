package harvester

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
)

func testServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	s := newService(t, cfg)
	r := chi.NewRouter()
	s.RegisterHTTP(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTP_Healthz(t *testing.T) {
	srv := testServer(t, Config{})

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestHTTP_Scan_Text(t *testing.T) {
	srv := testServer(t, Config{})

	resp, err := http.Post(srv.URL+"/v1/scan?name=notes.txt", "application/octet-stream",
		bytes.NewReader([]byte("reach me at dev@example.com")))
	if err != nil {
		t.Fatalf("POST /v1/scan: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var res Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Name != "notes.txt" {
		t.Errorf("Name = %q", res.Name)
	}
	if len(res.Emails) != 1 || res.Emails[0] != "dev@example.com" {
		t.Errorf("Emails = %v", res.Emails)
	}
}

func TestHTTP_Scan_Unsupported(t *testing.T) {
	srv := testServer(t, Config{})

	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}
	resp, err := http.Post(srv.URL+"/v1/scan", "application/octet-stream", bytes.NewReader(jpeg))
	if err != nil {
		t.Fatalf("POST /v1/scan: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", resp.StatusCode)
	}
}

func TestHTTP_Scan_CorruptArchive(t *testing.T) {
	srv := testServer(t, Config{})

	corrupt := append([]byte{'P', 'K', 0x03, 0x04}, []byte("not a real archive")...)
	resp, err := http.Post(srv.URL+"/v1/scan", "application/octet-stream", bytes.NewReader(corrupt))
	if err != nil {
		t.Fatalf("POST /v1/scan: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", resp.StatusCode)
	}
	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["error"] == "" {
		t.Error("expected error message in body")
	}
}

func TestHTTP_Scan_TooLarge(t *testing.T) {
	srv := testServer(t, Config{MaxFileSize: 16})

	resp, err := http.Post(srv.URL+"/v1/scan", "application/octet-stream",
		bytes.NewReader(make([]byte, 64)))
	if err != nil {
		t.Fatalf("POST /v1/scan: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", resp.StatusCode)
	}
}

func TestHTTP_Addresses_NoStore(t *testing.T) {
	srv := testServer(t, Config{})

	resp, err := http.Get(srv.URL + "/v1/addresses")
	if err != nil {
		t.Fatalf("GET /v1/addresses: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestHTTP_AddressesAndScans_WithStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "scans.db")
	srv := testServer(t, Config{DBPath: dbPath})

	resp, err := http.Post(srv.URL+"/v1/scan?name=in.txt", "application/octet-stream",
		bytes.NewReader([]byte("a@b.com and c@d.org")))
	if err != nil {
		t.Fatalf("POST /v1/scan: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("scan status = %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/v1/addresses")
	if err != nil {
		t.Fatalf("GET /v1/addresses: %v", err)
	}
	defer resp.Body.Close()
	var addrBody struct {
		Addresses []string `json:"addresses"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&addrBody); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(addrBody.Addresses) != 2 {
		t.Errorf("addresses = %v", addrBody.Addresses)
	}

	resp2, err := http.Get(srv.URL + "/v1/scans?limit=5")
	if err != nil {
		t.Fatalf("GET /v1/scans: %v", err)
	}
	defer resp2.Body.Close()
	var scanBody struct {
		Scans []struct {
			Name   string `json:"name"`
			Emails int    `json:"emails"`
		} `json:"scans"`
	}
	if err := json.NewDecoder(resp2.Body).Decode(&scanBody); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(scanBody.Scans) != 1 || scanBody.Scans[0].Name != "in.txt" {
		t.Errorf("scans = %+v", scanBody.Scans)
	}
}
