package selfupdate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestDownloadTo(t *testing.T) {
	t.Parallel()

	body := []byte("release asset bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/octet-stream" {
			t.Errorf("Accept: got %q", got)
		}
		w.Write(body)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "asset")
	headers := http.Header{"Accept": []string{"application/octet-stream"}}

	var lastReceived, lastTotal int64
	onProgress := func(received, total int64) {
		lastReceived, lastTotal = received, total
	}

	if err := downloadTo(context.Background(), srv.Client(), srv.URL, headers, dest, onProgress); err != nil {
		t.Fatalf("downloadTo: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if string(data) != string(body) {
		t.Fatalf("got %q want %q", data, body)
	}
	if lastReceived != int64(len(body)) {
		t.Fatalf("progress received: got %d want %d", lastReceived, len(body))
	}
	if lastTotal != int64(len(body)) {
		t.Fatalf("progress total: got %d want %d", lastTotal, len(body))
	}
}

func TestDownloadToUnknownLength(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Flushing between writes forces chunked encoding, so the
		// response declares no Content-Length.
		w.Write([]byte("first"))
		w.(http.Flusher).Flush()
		w.Write([]byte("second"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "asset")
	totals := map[int64]bool{}
	var lastReceived int64
	onProgress := func(received, total int64) {
		totals[total] = true
		lastReceived = received
	}

	if err := downloadTo(context.Background(), srv.Client(), srv.URL, nil, dest, onProgress); err != nil {
		t.Fatalf("downloadTo: %v", err)
	}
	if !totals[-1] || len(totals) != 1 {
		t.Fatalf("unknown length must be reported as total -1, got totals %v", totals)
	}
	if want := int64(len("first") + len("second")); lastReceived != want {
		t.Fatalf("progress received: got %d want %d", lastReceived, want)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if string(data) != "firstsecond" {
		t.Fatalf("got %q want %q", data, "firstsecond")
	}
}

func TestDownloadToStatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "asset")
	err := downloadTo(context.Background(), srv.Client(), srv.URL, nil, dest, nil)

	var he *HTTPStatusError
	if !errors.As(err, &he) || he.StatusCode != http.StatusForbidden {
		t.Fatalf("expected HTTPStatusError(403), got %v", err)
	}
	if _, serr := os.Stat(dest); !os.IsNotExist(serr) {
		t.Fatalf("dest must not exist after a failed download")
	}
}

func TestDownloadToCanceledContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dest := filepath.Join(t.TempDir(), "asset")
	if err := downloadTo(ctx, srv.Client(), srv.URL, nil, dest, nil); err == nil {
		t.Fatalf("expected error for canceled context")
	}
	if _, serr := os.Stat(dest); !os.IsNotExist(serr) {
		t.Fatalf("dest must not exist after a failed download")
	}
}
