package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), "volunteerverse", "")
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown() error = %v", err)
	}
}

func TestInitRequiresServiceName(t *testing.T) {
	if _, err := Init(context.Background(), "", ""); err == nil {
		t.Fatal("Init() error = nil, want error")
	}
}

func TestInitWithHostPortEndpoint(t *testing.T) {
	shutdown, err := Init(context.Background(), "volunteerverse", "otel-collector:4318")
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = shutdown(ctx)
}

func TestExporterOptions(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		want     int
		wantErr  bool
	}{
		{name: "bare host", endpoint: "collector:4318", want: 2},
		{name: "hyphenated host", endpoint: "otel-collector:4318", want: 2},
		{name: "http url with path", endpoint: "http://otel-collector:4318/v1/traces", want: 3},
		{name: "http url", endpoint: "http://collector:4318", want: 2},
		{name: "https url with path", endpoint: "https://collector/otlp/v1/traces", want: 2},
		{name: "scheme without host", endpoint: "http://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := exporterOptions(tt.endpoint)
			if (err != nil) != tt.wantErr {
				t.Fatalf("exporterOptions(%q) error = %v, wantErr %v", tt.endpoint, err, tt.wantErr)
			}
			if !tt.wantErr && len(opts) != tt.want {
				t.Fatalf("exporterOptions(%q) = %d options, want %d", tt.endpoint, len(opts), tt.want)
			}
		})
	}
}

func TestMiddlewareLogsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	h := Middleware("volunteerverse", logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v (%q)", err, buf.String())
	}
	if got := entry["status"]; got != float64(http.StatusTeapot) {
		t.Fatalf("status = %v, want %d", got, http.StatusTeapot)
	}
	if got := entry["path"]; got != "/events" {
		t.Fatalf("path = %v, want /events", got)
	}
}

func TestMiddlewareLogsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	h := middleware.RequestID(Middleware("volunteerverse", logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})))

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-123")
	h.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v (%q)", err, buf.String())
	}
	if got := entry["request_id"]; got != "req-123" {
		t.Fatalf("request_id = %v, want req-123", got)
	}
	if got := entry["level"]; got != "error" {
		t.Fatalf("level = %v, want error", got)
	}
	if got := entry["method"]; got != http.MethodPost {
		t.Fatalf("method = %v, want POST", got)
	}
}
