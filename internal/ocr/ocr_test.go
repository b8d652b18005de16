package ocr

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExtractor(endpoint string) *Extractor {
	cfg := model.DefaultConfig().OCR
	cfg.APIKey = "test-key"
	cfg.Endpoint = endpoint
	cfg.Timeout = 5 * time.Second
	e := New(cfg, model.HTTPConfig{}, nil)
	e.sleep = func(context.Context, time.Duration) error { return nil }
	return e
}

func TestExtract_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "test-key", r.FormValue("apikey"))
		assert.Equal(t, "eng", r.FormValue("language"))
		assert.Equal(t, "2", r.FormValue("OCREngine"))

		file, header, err := r.FormFile("file")
		if assert.NoError(t, err) {
			_ = file.Close()
			assert.Equal(t, "shot.png", header.Filename)
		}

		_, _ = fmt.Fprint(w, `{"ParsedResults":[{"ParsedText":"NASA launched Artemis I "},{"ParsedText":"in 2022."}],"IsErroredOnProcessing":false}`)
	}))
	defer server.Close()

	text, err := newTestExtractor(server.URL).Extract(context.Background(), []byte("png-bytes"), "/tmp/shot.png")
	require.NoError(t, err)
	assert.Equal(t, "NASA launched Artemis I \nin 2022.", text)
}

func TestExtract_RetriesThenSucceeds(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch attempts.Add(1) {
		case 1:
			_, _ = fmt.Fprint(w, `{"IsErroredOnProcessing":true,"ErrorMessage":["Timed out waiting for results"]}`)
		case 2:
			_, _ = fmt.Fprint(w, `{"ParsedResults":[{"ParsedText":"  "}]}`)
		default:
			_, _ = fmt.Fprint(w, `{"ParsedResults":[{"ParsedText":"third time"}]}`)
		}
	}))
	defer server.Close()

	text, err := newTestExtractor(server.URL).Extract(context.Background(), []byte("img"), "a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "third time", text)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestExtract_GivesUpAfterAttempts(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = fmt.Fprint(w, "bad gateway")
	}))
	defer server.Close()

	e := newTestExtractor(server.URL)
	var slept atomic.Int32
	e.sleep = func(context.Context, time.Duration) error { slept.Add(1); return nil }

	text, err := e.Extract(context.Background(), []byte("img"), "a.jpg")
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, int32(2), slept.Load())
}

func TestExtract_TesseractFallback(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stub")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `{"IsErroredOnProcessing":true,"ErrorMessage":"E500"}`)
	}))
	defer server.Close()

	script := filepath.Join(t.TempDir(), "tesseract")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho 'text from tesseract'\n"), 0o755))

	e := newTestExtractor(server.URL)
	e.tesseractPath = script

	text, err := e.Extract(context.Background(), []byte("img"), "a.png")
	require.NoError(t, err)
	assert.Equal(t, "text from tesseract", text)
}

func TestExtract_Empty(t *testing.T) {
	text, err := newTestExtractor("http://127.0.0.1:1").Extract(context.Background(), nil, "a.png")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestExtractURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "https://example.com/a.png", r.FormValue("url"))
		_, _ = fmt.Fprint(w, `{"ParsedResults":[{"ParsedText":"from url"}]}`)
	}))
	defer server.Close()

	text, err := newTestExtractor(server.URL).ExtractURL(context.Background(), "https://example.com/a.png")
	require.NoError(t, err)
	assert.Equal(t, "from url", text)
}

func TestExtract_Cancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `{"ParsedResults":[{"ParsedText":"x"}]}`)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestExtractor(server.URL).Extract(ctx, []byte("img"), "a.png")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "a; b", errorMessage([]byte(`["a","b"]`)))
	assert.Equal(t, "single", errorMessage([]byte(`"single"`)))
	assert.Equal(t, "unknown error", errorMessage(nil))
}
