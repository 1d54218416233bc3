package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout      = 15 * time.Second
	defaultTwoFactorURL = "https://2factor.in/API/V1"
	statusSuccess       = "Success"
	maxResponseBytes    = 64 << 10
)

// TwoFactorClient talks to the 2Factor.in SMS OTP API. The provider generates the code,
// sends it, and keeps it against the returned session id.
type TwoFactorClient struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// NewTwoFactorClient returns a client for the given API key. baseURL defaults to the public API.
func NewTwoFactorClient(apiKey, baseURL string) *TwoFactorClient {
	if baseURL == "" {
		baseURL = defaultTwoFactorURL
	}
	return &TwoFactorClient{
		APIKey:     apiKey,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

type twoFactorResponse struct {
	Status  string `json:"Status"`
	Details string `json:"Details"`
}

// SendCode asks 2Factor to generate and send a code (AUTOGEN). Returns the session id.
// The phone number is not logged.
func (c *TwoFactorClient) SendCode(ctx context.Context, phone string) (string, error) {
	if c.APIKey == "" {
		return "", fmt.Errorf("%w: API key not configured", ErrUnavailable)
	}
	res, status, err := c.get(ctx, c.BaseURL+"/"+url.PathEscape(c.APIKey)+"/SMS/"+url.PathEscape(phone)+"/AUTOGEN")
	if err != nil {
		return "", err
	}
	if res.Status != statusSuccess || res.Details == "" {
		return "", fmt.Errorf("%w: send failed status=%d details=%q", ErrUnavailable, status, res.Details)
	}
	return res.Details, nil
}

// VerifyCode checks code against the 2Factor session. An "Error" status on a non-5xx
// response means the code was wrong or the provider session expired.
func (c *TwoFactorClient) VerifyCode(ctx context.Context, handle, code string) error {
	if c.APIKey == "" {
		return fmt.Errorf("%w: API key not configured", ErrUnavailable)
	}
	u := c.BaseURL + "/" + url.PathEscape(c.APIKey) + "/SMS/VERIFY/" + url.PathEscape(handle) + "/" + url.PathEscape(code)
	res, status, err := c.get(ctx, u)
	if err != nil {
		return err
	}
	switch {
	case res.Status == statusSuccess:
		return nil
	case status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: verify failed status=%d details=%q", ErrUnavailable, status, res.Details)
	case res.Status != "":
		return fmt.Errorf("%w: %s", ErrRejected, res.Details)
	default:
		return fmt.Errorf("%w: verify returned status=%d without a result", ErrUnavailable, status)
	}
}

// get performs the request and decodes the JSON body. Non-JSON bodies are unavailability.
func (c *TwoFactorClient) get(ctx context.Context, u string) (twoFactorResponse, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return twoFactorResponse{}, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return twoFactorResponse{}, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return twoFactorResponse{}, resp.StatusCode, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	var res twoFactorResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return twoFactorResponse{}, resp.StatusCode, fmt.Errorf("%w: status=%d body=%q", ErrUnavailable, resp.StatusCode, truncate(body))
	}
	return res, resp.StatusCode, nil
}

func truncate(b []byte) string {
	const n = 200
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
