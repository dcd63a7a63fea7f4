package melcloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// Default endpoint settings.
const (
	DefaultBaseURL    = "https://app.melcloud.com/Mitsubishi.Wifi.Client"
	DefaultAppVersion = "1.25.0"
)

// contextKeyHeader carries the session token on authenticated calls.
const contextKeyHeader = "X-MitsContextKey"

// maxBodySize bounds response bodies read from the cloud.
const maxBodySize = 4 << 20

// Client issues requests against the MELCloud API.
//
// Client holds no session state; the context key is passed on each call so
// that one Client can serve several accounts and survive reconnects.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Client struct {
	baseURL    string
	appVersion string
	userAgent  string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client (tests, proxies).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a client for the given base URL.
//
// Parameters:
//   - baseURL: API root, e.g. DefaultBaseURL. Empty selects the default.
//   - appVersion: Reported in the login body. Empty selects the default.
//
// Request timeouts come from the context passed to each call.
func NewClient(baseURL, appVersion string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if appVersion == "" {
		appVersion = DefaultAppVersion
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		appVersion: appVersion,
		userAgent:  "melbridge",
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login authenticates and returns the context key and account data.
//
// A response without LoginData.ContextKey, or with a non-null ErrorId, is
// reported as ErrAuth.
func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	body := map[string]any{
		"Email":            creds.Email,
		"Password":         creds.Password,
		"Language":         creds.Language,
		"AppVersion":       c.appVersion,
		"CaptchaChallenge": "",
		"CaptchaResponse":  "",
		"Persist":          true,
	}

	raw, err := c.do(ctx, http.MethodPost, "Login/ClientLogin", "", body)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("login: %w: invalid JSON", ErrData)
	}
	parsed := gjson.ParseBytes(raw)
	if errID := parsed.Get("ErrorId"); errID.Exists() && errID.Type != gjson.Null {
		return nil, fmt.Errorf("login: %w: error id %s", ErrAuth, errID.Raw)
	}
	key := parsed.Get("LoginData.ContextKey").String()
	if key == "" {
		return nil, fmt.Errorf("login: %w: missing context key", ErrAuth)
	}

	account, _ := parsed.Get("LoginData").Value().(map[string]any)

	return &LoginResult{
		ContextKey:    key,
		UseFahrenheit: parsed.Get("LoginData.UseFahrenheit").Bool(),
		Account:       account,
		Raw:           raw,
	}, nil
}

// ListDevices returns the building tree for the account.
//
// An empty or absent list is reported as ErrData.
func (c *Client) ListDevices(ctx context.Context, contextKey string) ([]Building, json.RawMessage, error) {
	raw, err := c.do(ctx, http.MethodGet, "User/ListDevices", contextKey, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("list devices: %w", err)
	}

	var buildings []Building
	if err := json.Unmarshal(raw, &buildings); err != nil {
		return nil, nil, fmt.Errorf("list devices: %w: %v", ErrData, err)
	}
	if len(buildings) == 0 {
		return nil, nil, fmt.Errorf("list devices: %w: no buildings", ErrData)
	}
	return buildings, raw, nil
}

// GetDevice returns the raw state body of one device.
func (c *Client) GetDevice(ctx context.Context, contextKey string, deviceID, buildingID int) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("id", fmt.Sprint(deviceID))
	q.Set("buildingID", fmt.Sprint(buildingID))

	raw, err := c.do(ctx, http.MethodGet, "Device/Get?"+q.Encode(), contextKey, nil)
	if err != nil {
		return nil, fmt.Errorf("get device %d: %w", deviceID, err)
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("get device %d: %w: invalid JSON", deviceID, ErrData)
	}
	return raw, nil
}

// SetDevice posts a mutation payload to the family's set endpoint.
//
// The payload must already carry EffectiveFlags and HasPendingCommand.
// The cloud's echo of the device state is returned raw.
func (c *Client) SetDevice(ctx context.Context, contextKey string, typ DeviceType, payload map[string]any) (json.RawMessage, error) {
	path, err := typ.setEndpoint()
	if err != nil {
		return nil, err
	}
	raw, err := c.do(ctx, http.MethodPost, path, contextKey, payload)
	if err != nil {
		return nil, fmt.Errorf("set device (%s): %w", path, err)
	}
	return raw, nil
}

// UpdateApplicationOptions posts account preferences, such as the
// temperature unit.
func (c *Client) UpdateApplicationOptions(ctx context.Context, contextKey string, options map[string]any) error {
	if _, err := c.do(ctx, http.MethodPost, "User/UpdateApplicationOptions", contextKey, options); err != nil {
		return fmt.Errorf("update application options: %w", err)
	}
	return nil
}

// do performs one request and returns the body of a 200 response.
func (c *Client) do(ctx context.Context, method, path, contextKey string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+path, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if contextKey != "" {
		req.Header.Set(contextKeyHeader, contextKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrNetwork, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: status %d", ErrAuth, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: %d %s", ErrStatus, resp.StatusCode, strings.TrimSpace(string(truncate(data, 256))))
	}
	return data, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
