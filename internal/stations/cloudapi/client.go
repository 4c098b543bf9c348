// Package cloudapi implements the cloud REST station driver: the HTTP
// client with the platform's envelope and retry semantics, the history and
// current-data decoders, and the polling/catch-up driver that feeds the
// aggregation engine.
package cloudapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/chrissnell/gwstationd/pkg/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://api.ecowitt.net/api/v3"

	retryDelay  = 5 * time.Second
	maxAttempts = 3

	historyDateLayout = "2006-01-02 15:04:05"
)

// Response codes.  Zero is success; busy and rate-limited are transient
// and retried with a fixed delay; anything else fails the call outright.
const (
	codeOK          = 0
	codeBusy        = -1
	codeRateLimited = 45001
)

// envelope is the fixed response wrapper on every API call.
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Time flexNumber      `json:"time"`
	Data json.RawMessage `json:"data"`
}

// Client issues authenticated calls against the cloud API for one device.
type Client struct {
	base   string
	http   *http.Client
	cfg    config.DeviceData
	logger *zap.SugaredLogger
}

// NewClient creates a client for a device.  An empty APIEndpoint in the
// config selects the public API base URL.
func NewClient(cfg config.DeviceData, logger *zap.SugaredLogger) *Client {
	base := cfg.APIEndpoint
	if base == "" {
		base = defaultBaseURL
	}
	return &Client{
		base:   base,
		http:   &http.Client{Timeout: 30 * time.Second},
		cfg:    cfg,
		logger: logger,
	}
}

// commonParams returns the credential and unit-selector query parameters
// present on every call.  Unit IDs pin the API to metric output: Celsius,
// hPa, m/s, millimeters.
func (c *Client) commonParams() url.Values {
	p := url.Values{}
	p.Set("application_key", c.cfg.ApplicationKey)
	p.Set("api_key", c.cfg.APIKey)
	if c.cfg.MAC != "" {
		p.Set("mac", c.cfg.MAC)
	} else {
		p.Set("imei", c.cfg.IMEI)
	}
	p.Set("temp_unitid", "1")
	p.Set("pressure_unitid", "3")
	p.Set("wind_speed_unitid", "6")
	p.Set("rainfall_unitid", "12")
	return p
}

// get performs one API call with the transient-code retry policy.  The
// context is honored between attempts so shutdown aborts promptly.
func (c *Client) get(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	endpoint := c.base + path + "?" + params.Encode()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		reqID := uuid.NewString()
		data, code, err := c.doRequest(ctx, endpoint)
		switch {
		case err != nil:
			lastErr = err
			c.logger.Warnf("api call %s [%s] attempt %d/%d failed: %v", path, reqID, attempt, maxAttempts, err)
		case code == codeOK:
			return data, nil
		case code == codeBusy || code == codeRateLimited:
			lastErr = fmt.Errorf("transient api code %d", code)
			c.logger.Warnf("api call %s [%s] attempt %d/%d: transient code %d, retrying in %v",
				path, reqID, attempt, maxAttempts, code, retryDelay)
		default:
			return nil, fmt.Errorf("api call %s failed with code %d", path, code)
		}

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}
	return nil, fmt.Errorf("api call %s abandoned after %d attempts: %w", path, maxAttempts, lastErr)
}

func (c *Client) doRequest(ctx context.Context, endpoint string) (json.RawMessage, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("http status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, 0, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, 0, fmt.Errorf("decoding envelope: %w", err)
	}
	if env.Code != codeOK {
		return nil, env.Code, nil
	}
	return env.Data, codeOK, nil
}

// History fetches the 5-minute-cycle history between start and end for the
// named callback groups ("all" for everything).
func (c *Client) History(ctx context.Context, start, end time.Time, callbacks string) (json.RawMessage, error) {
	p := c.commonParams()
	p.Set("start_date", start.Format(historyDateLayout))
	p.Set("end_date", end.Format(historyDateLayout))
	p.Set("cycle_type", "5min")
	p.Set("call_back", callbacks)
	return c.get(ctx, "/device/history", p)
}

// RealTime fetches the current readings for every sensor group.
func (c *Client) RealTime(ctx context.Context) (json.RawMessage, error) {
	p := c.commonParams()
	p.Set("call_back", "all")
	return c.get(ctx, "/device/real_time", p)
}
