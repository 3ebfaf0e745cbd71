package transport

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shimmeringbee/logwrap"
	"github.com/tidwall/gjson"
)

const DefaultCloudBaseURL = "https://api.switch-bot.com/v1.1"

var _ CloudClient = (*APIClient)(nil)

// APIClient talks to the cloud REST API, signing every request with the
// account token/secret pair. An empty credential pair makes the client
// uncredentialed; callers must check Credentialed before relying on it.
type APIClient struct {
	BaseURL string
	Token   string
	Secret  string

	HTTPClient *http.Client
	Logger     logwrap.Logger
}

func NewAPIClient(token string, secret string, l logwrap.Logger) *APIClient {
	return &APIClient{
		BaseURL:    DefaultCloudBaseURL,
		Token:      token,
		Secret:     secret,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		Logger:     l,
	}
}

func (c *APIClient) Credentialed() bool {
	return c.Token != "" && c.Secret != ""
}

func (c *APIClient) Status(ctx context.Context, deviceId string, maxRetries int, retryDelay time.Duration) (*CloudResponse, error) {
	if !c.Credentialed() {
		return nil, ErrUnavailable
	}

	url := fmt.Sprintf("%s/devices/%s/status", c.BaseURL, deviceId)

	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			c.Logger.LogDebug(ctx, "Retrying cloud status request.", logwrap.Datum("deviceId", deviceId), logwrap.Datum("attempt", attempt))

			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				return nil, ErrTimeout
			}
		}

		resp, err := c.do(ctx, http.MethodGet, url, nil)
		if err != nil {
			lastErr = err
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("cloud status request exhausted retries: %w", lastErr)
}

func (c *APIClient) Command(ctx context.Context, deviceId string, command string, parameter string, commandType string) (*CloudResponse, error) {
	if !c.Credentialed() {
		return nil, ErrUnavailable
	}

	url := fmt.Sprintf("%s/devices/%s/commands", c.BaseURL, deviceId)

	body, err := json.Marshal(map[string]string{
		"command":     command,
		"parameter":   parameter,
		"commandType": commandType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal command body: %w", err)
	}

	return c.do(ctx, http.MethodPost, url, body)
}

func (c *APIClient) do(ctx context.Context, method string, url string, body []byte) (*CloudResponse, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to construct cloud request: %w", err)
	}

	c.sign(req)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cloud request failed: %w", err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read cloud response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cloud request returned http %d", httpResp.StatusCode)
	}

	return ParseCloudResponse(data), nil
}

// sign attaches the v1.1 authentication headers: the token, a millisecond
// timestamp, a random nonce and an HMAC-SHA256 of token+timestamp+nonce
// keyed with the account secret.
func (c *APIClient) sign(req *http.Request) {
	nonce := uuid.New().String()
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)

	mac := hmac.New(sha256.New, []byte(c.Secret))
	mac.Write([]byte(c.Token + timestamp + nonce))

	req.Header.Set("Authorization", c.Token)
	req.Header.Set("t", timestamp)
	req.Header.Set("nonce", nonce)
	req.Header.Set("sign", base64.StdEncoding.EncodeToString(mac.Sum(nil)))
}

// ParseCloudResponse extracts the API status code, hub id and raw body
// object from a cloud response document.
func ParseCloudResponse(data []byte) *CloudResponse {
	resp := &CloudResponse{
		StatusCode:  int(gjson.GetBytes(data, "statusCode").Int()),
		HubDeviceId: gjson.GetBytes(data, "body.hubDeviceId").String(),
	}

	if body := gjson.GetBytes(data, "body"); body.Exists() {
		resp.Body = []byte(body.Raw)
	}

	return resp
}
