// Package gemini binds the genai SDK to one model and supplies the helpers
// the generators and the assistant share.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	DefaultModel = "gemini-2.5-flash"
	// DefaultHeaderTimeout bounds the wait for response headers only. A
	// stream may run longer; the caller's context bounds it.
	DefaultHeaderTimeout = 60 * time.Second
)

// ErrNoAPIKey is returned by New when neither the options nor the
// environment carry a key.
var ErrNoAPIKey = errors.New("gemini: no API key (set GEMINI_API_KEY or API_KEY)")

// Options configures a Client. Empty fields take the defaults.
type Options struct {
	// APIKey falls back to KeyFromEnv.
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// Client sends requests to one model.
type Client struct {
	models *genai.Models
	model  string
}

// KeyFromEnv returns GEMINI_API_KEY, or API_KEY when that is unset.
func KeyFromEnv() string {
	if k := os.Getenv("GEMINI_API_KEY"); k != "" {
		return k
	}
	return os.Getenv("API_KEY")
}

// New creates a client for the Gemini API backend.
func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.APIKey == "" {
		opts.APIKey = KeyFromEnv()
	}
	if opts.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = defaultHTTPClient()
	}

	cfg := &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions.BaseURL = opts.BaseURL
	}
	c, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Client{models: c.Models, model: opts.Model}, nil
}

func defaultHTTPClient() *http.Client {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.ResponseHeaderTimeout = DefaultHeaderTimeout
	return &http.Client{Transport: t}
}

// GenerateContent sends contents and waits for the whole response.
func (c *Client) GenerateContent(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return c.models.GenerateContent(ctx, c.model, contents, cfg)
}

// GenerateContentStream sends contents and yields the response chunks in
// order. Iteration stops at the first error.
func (c *Client) GenerateContentStream(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	return c.models.GenerateContentStream(ctx, c.model, contents, cfg)
}

// UserText is a user turn holding one text part.
func UserText(s string) *genai.Content {
	return genai.NewContentFromText(s, genai.RoleUser)
}

// Instruction wraps s as a system instruction.
func Instruction(s string) *genai.Content {
	return &genai.Content{Parts: []*genai.Part{genai.NewPartFromText(s)}}
}

// Text joins the text parts of the first candidate. Thoughts are skipped.
func Text(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil || p.Thought {
			continue
		}
		b.WriteString(p.Text)
	}
	return b.String()
}

// CallParts returns the function-call parts of the first candidate as they
// arrived, thought signatures included.
func CallParts(resp *genai.GenerateContentResponse) []*genai.Part {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	var out []*genai.Part
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && p.FunctionCall != nil {
			out = append(out, p)
		}
	}
	return out
}

// Grounding returns the grounding metadata of the first candidate.
func Grounding(resp *genai.GenerateContentResponse) *genai.GroundingMetadata {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	return resp.Candidates[0].GroundingMetadata
}

// StringArg returns a string argument of fc, or "" when it is missing or
// not a string.
func StringArg(fc *genai.FunctionCall, name string) string {
	if fc == nil {
		return ""
	}
	s, _ := fc.Args[name].(string)
	return s
}
