package openai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/neurobridge-coach/internal/observability"
)

// Realtime mints short-lived credentials and exchanges WebRTC offers with the provider.
type Realtime interface {
	CreateRealtimeSession(ctx context.Context, req RealtimeSessionRequest) (RealtimeCredential, error)
	ExchangeSDP(ctx context.Context, credential string, offerSDP string) (string, error)
}

type RealtimeSessionRequest struct {
	Instructions string
	Voice        string
}

// RealtimeCredential is an ephemeral client secret scoped to one realtime session.
type RealtimeCredential struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
	Model     string    `json:"model"`
}

type clientSecretRequest struct {
	Session map[string]any `json:"session"`
}

type clientSecretResponse struct {
	Value     string `json:"value"`
	ExpiresAt int64  `json:"expires_at"`
}

func (c *HTTPClient) CreateRealtimeSession(ctx context.Context, req RealtimeSessionRequest) (RealtimeCredential, error) {
	voice := strings.TrimSpace(req.Voice)
	if voice == "" {
		voice = c.cfg.RealtimeVoice
	}
	session := map[string]any{
		"type":  "realtime",
		"model": c.cfg.RealtimeModel,
	}
	if voice != "" {
		session["audio"] = map[string]any{"output": map[string]any{"voice": voice}}
	}
	if s := strings.TrimSpace(req.Instructions); s != "" {
		session["instructions"] = s
	}

	var resp clientSecretResponse
	body := clientSecretRequest{Session: session}
	if err := c.do(ctx, http.MethodPost, "/v1/realtime/client_secrets", c.cfg.RealtimeModel, body, &resp); err != nil {
		return RealtimeCredential{}, err
	}
	if strings.TrimSpace(resp.Value) == "" {
		return RealtimeCredential{}, fmt.Errorf("realtime client secret missing in response")
	}
	return RealtimeCredential{
		Value:     resp.Value,
		ExpiresAt: time.Unix(resp.ExpiresAt, 0).UTC(),
		Model:     c.cfg.RealtimeModel,
	}, nil
}

// ExchangeSDP posts the browser's offer using the ephemeral credential and returns the answer SDP.
// It is not retried: an offer is single-use.
func (c *HTTPClient) ExchangeSDP(ctx context.Context, credential string, offerSDP string) (string, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return "", fmt.Errorf("realtime credential required")
	}
	if strings.TrimSpace(offerSDP) == "" {
		return "", fmt.Errorf("sdp offer required")
	}
	start := time.Now()
	url := c.cfg.BaseURL + "/v1/realtime/calls?model=" + c.cfg.RealtimeModel
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(offerSDP))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Content-Type", "application/sdp")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observeRealtime(nil, err, start)
		return "", err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		httpErr := &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
		c.observeRealtime(resp, httpErr, start)
		return "", httpErr
	}
	c.observeRealtime(resp, nil, start)
	answer := string(raw)
	if !strings.HasPrefix(strings.TrimSpace(answer), "v=") {
		return "", fmt.Errorf("realtime answer is not an SDP document")
	}
	return answer, nil
}

func (c *HTTPClient) observeRealtime(resp *http.Response, err error, start time.Time) {
	observability.Current().ObserveLLMRequest(c.cfg.RealtimeModel, "/v1/realtime/calls", statusFromResp(resp, err), time.Since(start), 0, 0)
}
