package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/yungbote/neurobridge-coach/internal/platform/logger"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	temp := 0.2
	c, err := NewClientWithConfig(logger.Nop(), Config{
		BaseURL:       srv.URL,
		APIKey:        "sk-test",
		Model:         "gpt-test",
		EmbedModel:    "embed-test",
		RealtimeModel: "realtime-test",
		MaxRetries:    2,
		Temperature:   &temp,
	})
	if err != nil {
		t.Fatalf("NewClientWithConfig: %v", err)
	}
	return c
}

func writeOutputText(w http.ResponseWriter, text string) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"output": []any{
			map[string]any{
				"type": "message",
				"role": "assistant",
				"content": []any{
					map[string]any{"type": "output_text", "text": text},
				},
			},
		},
		"usage": map[string]any{"input_tokens": 10, "output_tokens": 5},
	})
}

func TestGenerateJSONSendsStrictSchema(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/responses" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing bearer auth")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeOutputText(w, `{"ok":true}`)
	})

	out, err := c.GenerateJSON(context.Background(), "sys", "user", "probe", map[string]any{"type": "object"})
	if err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	if out["ok"] != true {
		t.Fatalf("unexpected output: %#v", out)
	}
	text, _ := got["text"].(map[string]any)
	format, _ := text["format"].(map[string]any)
	if format["type"] != "json_schema" || format["strict"] != true || format["name"] != "probe" {
		t.Fatalf("unexpected format: %#v", format)
	}
	if got["temperature"] != 0.2 {
		t.Fatalf("expected temperature 0.2, got %v", got["temperature"])
	}
}

func TestGenerateTextRetriesOnServerError(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeOutputText(w, "hello")
	})
	out, err := c.GenerateText(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if out != "hello" || atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("out=%q calls=%d", out, calls)
	}
}

func TestGenerateTextDropsRejectedTemperature(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["temperature"]; ok {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":{"message":"Unsupported parameter: 'temperature' is not supported with this model."}}`)
			return
		}
		writeOutputText(w, "fine")
	})
	if _, err := c.GenerateText(context.Background(), "s", "u"); err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if _, err := c.GenerateText(context.Background(), "s", "u"); err != nil {
		t.Fatalf("GenerateText second call: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 calls (reject, retry, remembered), got %d", got)
	}
}

func TestGenerateTextNonRetryable(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := c.GenerateText(context.Background(), "s", "u")
	if err == nil {
		t.Fatalf("expected error")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("401 must not be retried")
	}
}

func TestEmbedOrdersByIndex(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":[{"index":1,"embedding":[2,2]},{"index":0,"embedding":[1,1]}]}`)
	})
	vecs, err := c.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if vecs[0][0] != 1 || vecs[1][0] != 2 {
		t.Fatalf("unexpected order: %v", vecs)
	}
}

func TestEmbedMissingVectorFails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":[{"index":0,"embedding":[1]}]}`)
	})
	if _, err := c.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatalf("expected missing index error")
	}
}

func TestRealtimeSessionAndSDP(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/realtime/client_secrets":
			_, _ = io.WriteString(w, `{"value":"ek_123","expires_at":1760000000}`)
		case "/v1/realtime/calls":
			if r.Header.Get("Authorization") != "Bearer ek_123" {
				t.Errorf("sdp exchange must use the ephemeral credential")
			}
			if r.Header.Get("Content-Type") != "application/sdp" {
				t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
			}
			body, _ := io.ReadAll(r.Body)
			if !strings.HasPrefix(string(body), "v=0") {
				t.Errorf("offer not forwarded")
			}
			_, _ = io.WriteString(w, "v=0\r\no=- answer\r\n")
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	cred, err := c.CreateRealtimeSession(context.Background(), RealtimeSessionRequest{Instructions: "coach"})
	if err != nil {
		t.Fatalf("CreateRealtimeSession: %v", err)
	}
	if cred.Value != "ek_123" || cred.Model != "realtime-test" || cred.ExpiresAt.IsZero() {
		t.Fatalf("unexpected credential: %+v", cred)
	}
	answer, err := c.ExchangeSDP(context.Background(), cred.Value, "v=0\r\no=- offer\r\n")
	if err != nil {
		t.Fatalf("ExchangeSDP: %v", err)
	}
	if !strings.Contains(answer, "answer") {
		t.Fatalf("unexpected answer %q", answer)
	}
	if _, err := c.ExchangeSDP(context.Background(), "", "v=0"); err == nil {
		t.Fatalf("expected missing credential error")
	}
}
