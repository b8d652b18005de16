// Package ocr extracts text from images with the OCR.space API and an
// optional local Tesseract fallback
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/util"
	"go.uber.org/zap"
)

// Extractor runs OCR. Every method returns "" when no text could be read;
// errors are reserved for cancellation.
type Extractor struct {
	apiKey        string
	endpoint      string
	language      string
	engine        int
	attempts      int
	backoff       time.Duration
	tesseractPath string
	client        *http.Client
	logger        *zap.Logger
	sleep         func(context.Context, time.Duration) error
}

// New creates an extractor from config
func New(cfg model.OCRConfig, httpCfg model.HTTPConfig, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = 3
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Extractor{
		apiKey:        cfg.APIKey,
		endpoint:      cfg.Endpoint,
		language:      cfg.Language,
		engine:        cfg.Engine,
		attempts:      attempts,
		backoff:       cfg.Backoff,
		tesseractPath: cfg.TesseractPath,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(httpCfg.HTTPProxy, httpCfg.HTTPSProxy, httpCfg.NoProxy),
			},
		},
		logger: logger,
		sleep:  sleepCtx,
	}
}

type ocrResponse struct {
	ParsedResults []struct {
		ParsedText string `json:"ParsedText"`
	} `json:"ParsedResults"`
	IsErroredOnProcessing bool            `json:"IsErroredOnProcessing"`
	ErrorMessage          json.RawMessage `json:"ErrorMessage"`
}

// Extract reads text from image bytes: OCR.space first, then Tesseract
func (e *Extractor) Extract(ctx context.Context, image []byte, filename string) (string, error) {
	if len(image) == 0 {
		return "", nil
	}
	if filename == "" {
		filename = "image.png"
	}

	text, err := e.withRetry(ctx, "file", func() (*http.Request, error) {
		return e.fileRequest(ctx, image, filename)
	})
	if err != nil || text != "" {
		return text, err
	}

	if e.tesseractPath == "" {
		return "", nil
	}
	e.logger.Info("OCR.space failed, trying Tesseract fallback")
	return e.tesseract(ctx, image, filename)
}

// ExtractURL reads text from a remote image through OCR.space only
func (e *Extractor) ExtractURL(ctx context.Context, imageURL string) (string, error) {
	return e.withRetry(ctx, "url", func() (*http.Request, error) {
		form := e.fields()
		form.Set("url", imageURL)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
}

// withRetry makes up to e.attempts calls. A processing error or an empty
// result counts as a failed attempt; the fixed backoff follows transport
// failures.
func (e *Extractor) withRetry(ctx context.Context, variant string, build func() (*http.Request, error)) (string, error) {
	for attempt := 1; attempt <= e.attempts; attempt++ {
		req, err := build()
		if err != nil {
			e.logger.Warn("OCR request could not be built", zap.Error(err))
			return "", nil
		}

		text, retryDelay, err := e.call(req)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if err != nil {
			e.logger.Warn("OCR.space attempt failed",
				zap.String("adapter", "ocr"),
				zap.String("variant", variant),
				zap.Int("attempt", attempt),
				zap.Error(err))
			if retryDelay && attempt < e.attempts {
				if err := e.sleep(ctx, e.backoff); err != nil {
					return "", err
				}
			}
			continue
		}
		if text != "" {
			return text, nil
		}
		e.logger.Info("OCR.space returned no text",
			zap.String("variant", variant),
			zap.Int("attempt", attempt))
	}

	e.logger.Warn("all OCR.space attempts failed", zap.String("variant", variant))
	return "", nil
}

// call performs one request. The bool reports a transport failure, which
// is followed by the backoff before the next attempt.
func (e *Extractor) call(req *http.Request) (string, bool, error) {
	resp, err := e.client.Do(req)
	if err != nil {
		return "", true, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", true, err
	}

	var parsed ocrResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", true, fmt.Errorf("status %d: decode response: %w", resp.StatusCode, err)
	}
	if parsed.IsErroredOnProcessing {
		return "", false, fmt.Errorf("processing error: %s", errorMessage(parsed.ErrorMessage))
	}

	parts := make([]string, 0, len(parsed.ParsedResults))
	for _, page := range parsed.ParsedResults {
		parts = append(parts, page.ParsedText)
	}
	return strings.TrimSpace(strings.Join(parts, "\n")), false, nil
}

func (e *Extractor) fields() url.Values {
	v := url.Values{}
	v.Set("apikey", e.apiKey)
	v.Set("language", e.language)
	v.Set("isOverlayRequired", "false")
	v.Set("detectOrientation", "true")
	v.Set("scale", "true")
	v.Set("OCREngine", strconv.Itoa(e.engine))
	return v
}

func (e *Extractor) fileRequest(ctx context.Context, image []byte, filename string) (*http.Request, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for key, values := range e.fields() {
		if err := w.WriteField(key, values[0]); err != nil {
			return nil, err
		}
	}
	part, err := w.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(image); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req, nil
}

// tesseract runs "tesseract <file> stdout" on a temporary copy of image
func (e *Extractor) tesseract(ctx context.Context, image []byte, filename string) (string, error) {
	tmp, err := os.CreateTemp("", "claimcheck-ocr-*"+filepath.Ext(filename))
	if err != nil {
		e.logger.Warn("tesseract temp file", zap.Error(err))
		return "", nil
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(image); err != nil {
		_ = tmp.Close()
		e.logger.Warn("tesseract temp file", zap.Error(err))
		return "", nil
	}
	_ = tmp.Close()

	out, err := exec.CommandContext(ctx, e.tesseractPath, tmp.Name(), "stdout").Output()
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if err != nil {
		e.logger.Warn("tesseract extraction failed", zap.Error(err))
		return "", nil
	}

	text := strings.TrimSpace(string(out))
	if text == "" {
		e.logger.Warn("no text extracted with tesseract")
	}
	return text, nil
}

// errorMessage flattens OCR.space's ErrorMessage, a string or a list
func errorMessage(raw json.RawMessage) string {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, "; ")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s
	}
	return "unknown error"
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
