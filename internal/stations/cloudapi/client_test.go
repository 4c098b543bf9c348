package cloudapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chrissnell/gwstationd/pkg/config"
	"go.uber.org/zap"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(config.DeviceData{
		Name:           "cloud-test",
		APIEndpoint:    srv.URL,
		APIKey:         "key",
		ApplicationKey: "appkey",
		MAC:            "AA:BB:CC:DD:EE:FF",
	}, zap.NewNop().Sugar())
}

func TestClientCredentialAndUnitParams(t *testing.T) {
	var gotQuery map[string][]string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		fmt.Fprint(w, `{"code": 0, "msg": "success", "time": "1000", "data": {}}`)
	})

	if _, err := c.RealTime(context.Background()); err != nil {
		t.Fatalf("RealTime: %v", err)
	}

	for param, want := range map[string]string{
		"application_key":   "appkey",
		"api_key":           "key",
		"mac":               "AA:BB:CC:DD:EE:FF",
		"temp_unitid":       "1",
		"pressure_unitid":   "3",
		"wind_speed_unitid": "6",
		"rainfall_unitid":   "12",
		"call_back":         "all",
	} {
		if got := gotQuery[param]; len(got) != 1 || got[0] != want {
			t.Errorf("query param %s = %v, want %q", param, got, want)
		}
	}
	if _, ok := gotQuery["imei"]; ok {
		t.Error("imei sent alongside mac")
	}
}

func TestClientRetriesTransientCodes(t *testing.T) {
	calls := 0
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			fmt.Fprint(w, `{"code": -1, "msg": "system busy", "time": "1000", "data": null}`)
			return
		}
		fmt.Fprint(w, `{"code": 0, "msg": "success", "time": "1000", "data": {"ok": true}}`)
	})

	data, err := c.RealTime(context.Background())
	if err != nil {
		t.Fatalf("RealTime after transient codes: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if string(data) != `{"ok": true}` {
		t.Errorf("data = %s", data)
	}
}

func TestClientPermanentCodeFailsImmediately(t *testing.T) {
	calls := 0
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"code": 40010, "msg": "illegal application key", "time": "1000", "data": null}`)
	})

	if _, err := c.RealTime(context.Background()); err == nil {
		t.Fatal("permanent error code accepted")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on permanent codes)", calls)
	}
}

func TestClientHonorsCancellationBetweenRetries(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code": -1, "msg": "system busy", "time": "1000", "data": null}`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.RealTime(ctx)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Error("cancelled call returned no error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("call did not abort on cancellation")
	}
}

func TestClientHistoryParams(t *testing.T) {
	var gotQuery map[string][]string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		fmt.Fprint(w, `{"code": 0, "msg": "success", "time": "1000", "data": {}}`)
	})

	start := time.Date(2026, 7, 14, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	if _, err := c.History(context.Background(), start, end, "outdoor,wind"); err != nil {
		t.Fatalf("History: %v", err)
	}

	for param, want := range map[string]string{
		"start_date": "2026-07-14 00:00:00",
		"end_date":   "2026-07-15 00:00:00",
		"cycle_type": "5min",
		"call_back":  "outdoor,wind",
	} {
		if got := gotQuery[param]; len(got) != 1 || got[0] != want {
			t.Errorf("query param %s = %v, want %q", param, got, want)
		}
	}
}
