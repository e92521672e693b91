package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/thomluther/anker-solix-api/internal/logging"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// tokenExpiryMargin renews the token slightly before the service would
	// reject it
	tokenExpiryMargin = time.Minute
)

// Standard request headers the service expects on every call
var apiHeaders = map[string]string{
	"Content-Type": "application/json",
	"Model-Type":   "DESKTOP",
	"App-Name":     "anker_power",
	"Os-Type":      "android",
}

// Client owns one authenticated cloud session per account. It handles the
// credential exchange, token lifecycle, per-endpoint throttling, and the
// {code, msg, data} response envelope, shielding callers from transport
// mechanics.
type Client struct {
	// Server is the regional API base URL
	Server string

	// Country is the account's two-letter country code
	Country string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	email    string
	password string
	logger   *zap.Logger
	throttle *throttle

	// token state, guarded by mu
	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	userID      string
	nickname    string

	// request accounting for the account entity
	reqMu     sync.Mutex
	reqMinute []time.Time
	reqHour   []time.Time
}

// NewClient creates a cloud session client for the given account. The
// country code selects the regional server; unsupported countries fail with
// a region error. A nil logger is replaced with a silent one.
func NewClient(email, password, country string, logger *zap.Logger) (*Client, error) {
	server := ServerForCountry(strings.ToUpper(country))
	if server == "" {
		return nil, NewRegionError(country)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		Server:     server,
		Country:    strings.ToUpper(country),
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		email:      email,
		password:   password,
		logger:     logger,
		throttle:   newThrottle(DefaultThrottlePolicy()),
	}, nil
}

// SetThrottlePolicy replaces the adaptive throttle policy. Endpoints already
// capped stay capped under the new ceiling.
func (c *Client) SetThrottlePolicy(policy ThrottlePolicy) {
	c.throttle.SetPolicy(policy)
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// Email returns the account email identifying this session
func (c *Client) Email() string {
	return c.email
}

// Nickname returns the account nickname received at login
func (c *Client) Nickname() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nickname
}

// LoggedIn reports whether the session holds a token that has not expired
func (c *Client) LoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token != "" && time.Now().Before(c.tokenExpiry.Add(-tokenExpiryMargin))
}

// responseEnvelope is the {code, msg, data} wrapper on every cloud response
type responseEnvelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// loginResponse is the data payload of a successful passport login
type loginResponse struct {
	UserID         string `json:"user_id"`
	Email          string `json:"email"`
	NickName       string `json:"nick_name"`
	AuthToken      string `json:"auth_token"`
	TokenExpiresAt int64  `json:"token_expires_at"`
	Domain         string `json:"domain"`
}

// keyExchangeResponse is the data payload of the public key exchange
type keyExchangeResponse struct {
	PublicKey string `json:"public_key"`
}

// Login authenticates the session. Credentials are encrypted client-side
// using the server-supplied public key before transmission. Fails with an
// auth error on bad credentials.
func (c *Client) Login(ctx context.Context) error {
	keyPair, err := newECDHKeyPair()
	if err != nil {
		return NewAuthError(fmt.Sprintf("credential encryption setup failed: %v", err))
	}

	// Exchange public keys with the service
	exchangePayload := map[string]any{
		"client_public_key": keyPair.PublicKeyHex(),
	}
	data, err := c.post(ctx, keyExchangePath, exchangePayload, false)
	if err != nil {
		return err
	}
	var exchange keyExchangeResponse
	if err := json.Unmarshal(data, &exchange); err != nil {
		return NewParseError("failed to parse key exchange response", err)
	}
	secret, err := keyPair.SharedSecret(exchange.PublicKey)
	if err != nil {
		return err
	}
	envelope, err := encryptCredential(secret, c.password)
	if err != nil {
		return err
	}

	loginPayload := map[string]any{
		"ab":       c.Country,
		"email":    c.email,
		"password": envelope,
		"client_secret_info": map[string]any{
			"public_key": keyPair.PublicKeyHex(),
		},
		"enc":         0,
		"time_zone":   time.Now().UnixMilli(),
		"transaction": fmt.Sprintf("%d", time.Now().UnixMilli()),
		"verify_code": "",
	}
	data, err = c.post(ctx, loginPath, loginPayload, false)
	if err != nil {
		return err
	}
	var login loginResponse
	if err := json.Unmarshal(data, &login); err != nil {
		return NewParseError("failed to parse login response", err)
	}
	if login.AuthToken == "" {
		return NewAuthError("login response carried no auth token")
	}

	c.mu.Lock()
	c.token = login.AuthToken
	c.tokenExpiry = time.Unix(login.TokenExpiresAt, 0)
	c.userID = login.UserID
	c.nickname = login.NickName
	c.mu.Unlock()

	c.logger.Info("Cloud session established",
		zap.String("server", c.Server),
		zap.String("country", c.Country),
		zap.Time("token_expiry", time.Unix(login.TokenExpiresAt, 0)),
	)
	return nil
}

// Request performs an authenticated call to a named endpoint or raw path and
// returns the data portion of the response envelope. Token expiry triggers
// one transparent re-login and retry; a rate-limit response trips the
// endpoint's throttle and retries once after the cooldown.
func (c *Client) Request(ctx context.Context, method, endpoint string, payload any) (json.RawMessage, error) {
	if method != http.MethodPost {
		// The cloud API is POST-only; anything else is a caller bug
		return nil, NewRequestError(http.StatusMethodNotAllowed,
			fmt.Sprintf("unsupported method %q", method), endpoint)
	}
	path := EndpointPath(endpoint)
	if !c.LoggedIn() {
		if err := c.Login(ctx); err != nil {
			return nil, err
		}
	}

	data, err := c.post(ctx, path, payload, true)
	if err == nil {
		return data, nil
	}

	var apiErr *ApiError
	if !asApiError(err, &apiErr) {
		return nil, err
	}
	switch {
	case apiErr.StatusCode == http.StatusUnauthorized || apiErr.CloudCode == CodeUnauthorized:
		// Expired token: one transparent re-login + retry
		c.logger.Debug("Token rejected, re-authenticating", zap.String("endpoint", path))
		if err := c.Login(ctx); err != nil {
			return nil, err
		}
		return c.post(ctx, path, payload, true)
	case apiErr.StatusCode == http.StatusTooManyRequests:
		// Rate limited: escalate the endpoint throttle and retry once after
		// a cooldown. The reduced rate persists for the session.
		c.throttle.MarkLimited(path)
		cooldown := c.throttle.Cooldown()
		c.logger.Warn("Endpoint rate limited, throttle engaged",
			zap.String("endpoint", path),
			zap.Duration("cooldown", cooldown),
		)
		if err := c.throttle.sleep(ctx, cooldown); err != nil {
			return nil, err
		}
		return c.post(ctx, path, payload, true)
	}
	return nil, err
}

// post performs one POST attempt against path and unwraps the response
// envelope. authenticated requests wait on the endpoint throttle and carry
// the session token.
func (c *Client) post(ctx context.Context, path string, payload any, authenticated bool) (json.RawMessage, error) {
	if authenticated {
		if err := c.throttle.Wait(ctx, path); err != nil {
			return nil, err
		}
	}
	c.recordRequest()
	logging.LogCloudRequest(path, http.MethodPost, authenticated)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, NewParseError("failed to encode request payload", err)
	}
	url := strings.TrimSuffix(c.Server, "/") + "/" + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, NewNetworkError("failed to create request", err)
	}
	for key, value := range apiHeaders {
		req.Header.Set(key, value)
	}
	req.Header.Set("Country", c.Country)
	if authenticated {
		c.mu.Lock()
		req.Header.Set("X-Auth-Token", c.token)
		req.Header.Set("Gtoken", c.userID)
		c.mu.Unlock()
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, NewNetworkError("request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, NewRequestError(resp.StatusCode, "token rejected", path)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, NewRequestError(resp.StatusCode, "rate limited", path)
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, NewRequestError(resp.StatusCode,
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))), path)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewNetworkError("failed to read response body", err)
	}
	var envelope responseEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, NewParseError("failed to parse response envelope", err)
	}
	logging.LogCloudResponse(path, resp.StatusCode, envelope.Code)
	if envelope.Code != CodeSuccess {
		return nil, NewCloudError(envelope.Code, envelope.Msg, path)
	}
	return envelope.Data, nil
}

// recordRequest updates the rolling per-minute and per-hour request counters
func (c *Client) recordRequest() {
	now := time.Now()
	c.reqMu.Lock()
	defer c.reqMu.Unlock()
	c.reqMinute = pruneSince(append(c.reqMinute, now), now.Add(-time.Minute))
	c.reqHour = pruneSince(append(c.reqHour, now), now.Add(-time.Hour))
}

func pruneSince(stamps []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(stamps) && stamps[idx].Before(cutoff) {
		idx++
	}
	return append(stamps[:0], stamps[idx:]...)
}

// RequestsLastMinute returns the session-wide request count over the rolling
// minute, surfaced on the account entity.
func (c *Client) RequestsLastMinute() int {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()
	c.reqMinute = pruneSince(c.reqMinute, time.Now().Add(-time.Minute))
	return len(c.reqMinute)
}

// RequestsLastHour returns the session-wide request count over the rolling
// hour.
func (c *Client) RequestsLastHour() int {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()
	c.reqHour = pruneSince(c.reqHour, time.Now().Add(-time.Hour))
	return len(c.reqHour)
}

// EndpointLimited reports whether the adaptive throttle has capped endpoint
func (c *Client) EndpointLimited(endpoint string) bool {
	return c.throttle.IsLimited(EndpointPath(endpoint))
}

// MqttInfo carries the MQTT broker coordinates and client certificates the
// transport bridge needs, as returned by the get_mqtt_info endpoint.
type MqttInfo struct {
	AppName      string `json:"app_name"`
	ThingName    string `json:"thing_name"`
	EndpointAddr string `json:"endpoint_addr"`
	Certificate  string `json:"certificate_pem"`
	PrivateKey   string `json:"private_key"`
	RootCA       string `json:"aws_root_ca1_pem"`
}

// GetMqttInfo fetches the broker coordinates and certificates for this
// account's message transport.
func (c *Client) GetMqttInfo(ctx context.Context) (*MqttInfo, error) {
	data, err := c.Request(ctx, http.MethodPost, "get_mqtt_info", map[string]any{})
	if err != nil {
		return nil, err
	}
	var info MqttInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, NewParseError("failed to parse mqtt info", err)
	}
	return &info, nil
}

// asApiError is a small wrapper to keep errors.As usage in one place
func asApiError(err error, target **ApiError) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*ApiError); ok {
		*target = e
		return true
	}
	return false
}
