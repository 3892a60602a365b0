package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthCheckHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	HealthCheckHandler()(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Status = %d, want 200", rec.Code)
	}

	var status HealthStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if status.Status != "healthy" {
		t.Errorf("Status = %q, want healthy", status.Status)
	}
	if status.Service != "speechpipe" {
		t.Errorf("Service = %q, want speechpipe", status.Service)
	}
}

func TestReadinessHandler_AllHealthy(t *testing.T) {
	checks := map[string]HealthCheckFunc{
		"cartesia": func(ctx context.Context) (bool, error) { return true, nil },
	}

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()

	ReadinessHandler(checks)(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Status = %d, want 200", rec.Code)
	}

	var status HealthStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if status.Status != "ready" {
		t.Errorf("Status = %q, want ready", status.Status)
	}
	if dep := status.Dependencies["cartesia"]; dep.Status != "healthy" {
		t.Errorf("Dependency status = %q, want healthy", dep.Status)
	}
}

func TestReadinessHandler_UnhealthyDependency(t *testing.T) {
	checks := map[string]HealthCheckFunc{
		"cartesia": func(ctx context.Context) (bool, error) {
			return false, errors.New("missing api key")
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()

	ReadinessHandler(checks)(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Status = %d, want 503", rec.Code)
	}

	var status HealthStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if status.Status != "not_ready" {
		t.Errorf("Status = %q, want not_ready", status.Status)
	}
	if dep := status.Dependencies["cartesia"]; dep.Message != "missing api key" {
		t.Errorf("Dependency message = %q, want the check's error", dep.Message)
	}
}
