package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/zonenet/splashgate/pkg/models"
)

func TestFetchNetInfoSendsIdentityHeaders(t *testing.T) {
	var gotRouter, gotContract string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRouter = r.Header.Get("X-Router-Id")
		gotContract = r.Header.Get("X-Contract-Id")
		w.Write([]byte(`{"success":true,"ssid":"Zone"}`))
	}))
	defer srv.Close()

	c := New(zap.NewNop(), srv.URL, "ZN-0A1B2C3D4E5F", "CT-12345")
	data, err := c.FetchNetInfo(context.Background())
	if err != nil {
		t.Fatalf("FetchNetInfo() error = %v", err)
	}
	if len(data) == 0 {
		t.Error("FetchNetInfo() returned empty body")
	}
	if gotRouter != "ZN-0A1B2C3D4E5F" {
		t.Errorf("X-Router-Id = %q, want ZN-0A1B2C3D4E5F", gotRouter)
	}
	if gotContract != "CT-12345" {
		t.Errorf("X-Contract-Id = %q, want CT-12345", gotContract)
	}
}

func TestFetchNetInfoBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(zap.NewNop(), srv.URL, "ZN-X", "CT-1")
	if _, err := c.FetchNetInfo(context.Background()); err == nil {
		t.Error("FetchNetInfo() error = nil, want failure on 503")
	}
}

func TestPushUsagePostsBatch(t *testing.T) {
	var got models.UsageBatch
	var method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := New(zap.NewNop(), srv.URL, "ZN-X", "CT-1")
	records := []models.UsageRecord{
		{ClientMAC: "aa:bb:cc:dd:ee:ff", BytesUp: 10, BytesDown: 20, SessionSeconds: 30},
	}
	if err := c.PushUsage(context.Background(), records); err != nil {
		t.Fatalf("PushUsage() error = %v", err)
	}
	if method != http.MethodPost || path != "/api/usage" {
		t.Errorf("request = %s %s, want POST /api/usage", method, path)
	}
	if len(got.Records) != 1 || got.Records[0].ClientMAC != "aa:bb:cc:dd:ee:ff" {
		t.Errorf("posted batch = %+v, want the collected record", got)
	}
}

func TestPushUsageNonSuccessKeepsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "try later", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(zap.NewNop(), srv.URL, "ZN-X", "CT-1")
	err := c.PushUsage(context.Background(), []models.UsageRecord{{ClientMAC: "aa:bb:cc:dd:ee:ff"}})
	if err == nil {
		t.Error("PushUsage() error = nil, want failure so records stay spooled")
	}
}
