package inference

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"incidentwatch/internal/visual"
	"incidentwatch/pkg/models"
)

func TestDetectorPostsImageAndFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/detect" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("min_confidence"); got != "0.5" {
			t.Errorf("expected min_confidence 0.5, got %q", got)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/octet-stream" {
			t.Errorf("unexpected content type %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "jpeg-bytes" {
			t.Errorf("unexpected body %q", body)
		}
		w.Write([]byte(`{"detections":[{"class":"person","confidence":0.9,"bbox":[1,2,3,4]},{"class":"car","confidence":0.3,"bbox":[0,0,1,1]}]}`))
	}))
	defer srv.Close()

	d, err := NewDetector(ClientConfig{URL: srv.URL + "/"}, 0.5)
	if err != nil {
		t.Fatalf("new detector: %v", err)
	}
	dets, err := d.Detect(context.Background(), visual.Frame{Image: []byte("jpeg-bytes")})
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(dets) != 1 || dets[0].ClassLabel != "person" || dets[0].BoundingBox[3] != 4 {
		t.Fatalf("unexpected detections %+v", dets)
	}
}

func TestDetectorStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d, _ := NewDetector(ClientConfig{URL: srv.URL}, 0.5)
	if _, err := d.Detect(context.Background(), visual.Frame{Image: []byte("x")}); err == nil {
		t.Fatalf("expected error on 500")
	}
}

func TestClassifierAcceptsObjectAndList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		switch r.URL.Path {
		case "/sentiment":
			w.Write([]byte(`[{"label":"NEGATIVE","score":0.97},{"label":"POSITIVE","score":0.03}]`))
		case "/threat":
			w.Write([]byte(`{"label":"offensive","score":0.91}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c, err := NewClassifier(ClientConfig{URL: srv.URL})
	if err != nil {
		t.Fatalf("new classifier: %v", err)
	}
	s, err := c.ClassifySentiment(context.Background(), "everything is on fire")
	if err != nil || s.Label != "NEGATIVE" || s.Score != 0.97 {
		t.Fatalf("unexpected sentiment %+v, err %v", s, err)
	}
	th, err := c.ClassifyThreat(context.Background(), "everything is on fire")
	if err != nil || th != (models.ClassifierResult{Label: "offensive", Score: 0.91}) {
		t.Fatalf("unexpected threat %+v, err %v", th, err)
	}
}

func TestClassifierTruncatesInput(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		got = req["text"]
		w.Write([]byte(`{"label":"neither","score":0.8}`))
	}))
	defer srv.Close()

	c, _ := NewClassifier(ClientConfig{URL: srv.URL})
	if _, err := c.ClassifyThreat(context.Background(), strings.Repeat("é", 600)); err != nil {
		t.Fatalf("classify: %v", err)
	}
	if n := utf8.RuneCountInString(got); n != maxClassifierRunes {
		t.Fatalf("expected %d runes, got %d", maxClassifierRunes, n)
	}
}

func TestDecodeClassifierResultRejectsEmpty(t *testing.T) {
	for _, body := range []string{`[]`, `{"score":0.4}`, `not json`} {
		if _, err := decodeClassifierResult([]byte(body)); !errors.Is(err, ErrBadResponse) {
			t.Fatalf("body %q: expected ErrBadResponse, got %v", body, err)
		}
	}
}

func TestGuardOpensAfterFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, _ := NewClassifier(ClientConfig{
		URL:     srv.URL,
		Breaker: BreakerConfig{MinRequests: 2, FailureRatio: 0.5},
	})
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := c.ClassifyThreat(ctx, "some text here"); err == nil || errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("call %d: expected upstream failure, got %v", i, err)
		}
	}
	if c.guard.State() != gobreaker.StateOpen {
		t.Fatalf("expected open breaker, got %s", c.guard.State())
	}
	if _, err := c.ClassifyThreat(ctx, "some text here"); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 upstream calls, got %d", calls.Load())
	}
}
