package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/genai"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(context.Background(), Options{APIKey: "k", BaseURL: srv.URL, Model: "m"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestGenerateContent(t *testing.T) {
	var gotPath, gotKey string
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		json.NewDecoder(r.Body).Decode(&body)
		fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"Hello "},{"text":"world"}]},
			"groundingMetadata":{"groundingChunks":[{"web":{"uri":"https://a.example","title":"A"}}]}}]}`)
	})

	resp, err := c.GenerateContent(context.Background(), []*genai.Content{UserText("hi")}, &genai.GenerateContentConfig{
		SystemInstruction: Instruction("be brief"),
		Tools:             []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasSuffix(gotPath, "/models/m:generateContent") {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotKey != "k" {
		t.Errorf("expected api key header, got %q", gotKey)
	}
	if _, ok := body["tools"]; !ok {
		t.Errorf("expected tools in request body, got %v", body)
	}
	if _, ok := body["systemInstruction"]; !ok {
		t.Errorf("expected systemInstruction in request body, got %v", body)
	}
	if Text(resp) != "Hello world" {
		t.Errorf("unexpected text %q", Text(resp))
	}
	g := Grounding(resp)
	if g == nil || len(g.GroundingChunks) != 1 || g.GroundingChunks[0].Web.URI != "https://a.example" {
		t.Errorf("unexpected grounding %+v", g)
	}
}

func TestGenerateContentAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})

	_, err := c.GenerateContent(context.Background(), []*genai.Content{UserText("hi")}, nil)
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected genai.APIError, got %v", err)
	}
	if apiErr.Code != http.StatusTooManyRequests || !strings.Contains(apiErr.Message, "quota exceeded") {
		t.Errorf("unexpected error %+v", apiErr)
	}
}

func TestGenerateContentStream(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"candidates\":[{\"content\":{\"role\":\"model\",\"parts\":[{\"text\":\"Hel\"}]}}]}\n\n")
		io.WriteString(w, "data: {\"candidates\":[{\"content\":{\"role\":\"model\",\"parts\":[{\"text\":\"lo\"}]}}]}\n\n")
		io.WriteString(w, "data: {\"candidates\":[{\"content\":{\"role\":\"model\",\"parts\":[{\"functionCall\":{\"name\":\"addSubject\",\"args\":{\"title\":\"Biology\"}},\"thoughtSignature\":\"c2ln\"}]}}]}\n\n")
	})

	var text strings.Builder
	var calls []*genai.Part
	for chunk, err := range c.GenerateContentStream(context.Background(), []*genai.Content{UserText("hi")}, nil) {
		if err != nil {
			t.Fatalf("stream: %v", err)
		}
		text.WriteString(Text(chunk))
		calls = append(calls, CallParts(chunk)...)
	}
	if gotQuery != "alt=sse" {
		t.Errorf("expected alt=sse, got %q", gotQuery)
	}
	if text.String() != "Hello" {
		t.Errorf("expected Hello, got %q", text.String())
	}
	if len(calls) != 1 || calls[0].FunctionCall.Name != "addSubject" || StringArg(calls[0].FunctionCall, "title") != "Biology" {
		t.Fatalf("unexpected calls %+v", calls)
	}
	if string(calls[0].ThoughtSignature) != "sig" {
		t.Errorf("expected thought signature to survive, got %q", calls[0].ThoughtSignature)
	}
}

func TestStreamBadChunk(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"ok\"}]}}]}\n\ndata: {oops\n\n")
	})

	var chunks int
	var lastErr error
	for chunk, err := range c.GenerateContentStream(context.Background(), []*genai.Content{UserText("hi")}, nil) {
		if err != nil {
			lastErr = err
			break
		}
		if Text(chunk) == "ok" {
			chunks++
		}
	}
	if chunks != 1 || lastErr == nil {
		t.Errorf("expected one chunk then an error, got %d chunks, err %v", chunks, lastErr)
	}
}

func TestNewNeedsKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "")
	if _, err := New(context.Background(), Options{}); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}

	t.Setenv("API_KEY", "fallback")
	if got := KeyFromEnv(); got != "fallback" {
		t.Errorf("expected API_KEY fallback, got %q", got)
	}
	t.Setenv("GEMINI_API_KEY", "primary")
	if got := KeyFromEnv(); got != "primary" {
		t.Errorf("expected GEMINI_API_KEY first, got %q", got)
	}
	c, err := New(context.Background(), Options{})
	if err != nil {
		t.Fatalf("new from env: %v", err)
	}
	if c.model != DefaultModel {
		t.Errorf("expected default model, got %q", c.model)
	}
}

func TestDefaultHTTPClientOnlyBoundsHeaders(t *testing.T) {
	hc := defaultHTTPClient()
	if hc.Timeout != 0 {
		t.Errorf("overall timeout would cut streams short: %v", hc.Timeout)
	}
	tr, ok := hc.Transport.(*http.Transport)
	if !ok || tr.ResponseHeaderTimeout != DefaultHeaderTimeout {
		t.Errorf("expected header timeout %v, got %+v", DefaultHeaderTimeout, hc.Transport)
	}
}

func TestHelpersOnEmpty(t *testing.T) {
	if Text(nil) != "" || CallParts(nil) != nil || Grounding(nil) != nil {
		t.Error("expected zero values from nil response")
	}
	empty := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}
	if Text(empty) != "" || CallParts(empty) != nil {
		t.Error("expected zero values from candidate without content")
	}
	thought := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: &genai.Content{
		Parts: []*genai.Part{{Text: "thinking", Thought: true}, {Text: "answer"}},
	}}}}
	if got := Text(thought); got != "answer" {
		t.Errorf("thoughts must be skipped, got %q", got)
	}
	if StringArg(&genai.FunctionCall{Args: map[string]any{"n": 1.0}}, "n") != "" {
		t.Error("non-string args read as empty")
	}
}
