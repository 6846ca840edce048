// Package llm asks a hosted model for a short diagnosis of an analyzed call.
// It is an optional tier: callers treat every error as a note.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/analysis"
)

// ErrNotConfigured is returned when no provider key is available.
var ErrNotConfigured = errors.New("no LLM provider configured")

const (
	openAIURL    = "https://api.openai.com"
	anthropicURL = "https://api.anthropic.com"

	maxPromptLines = 10
	maxLineLen     = 200
)

// Diagnosis is the model's answer.
type Diagnosis struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Analysis string `json:"analysis"`
}

// Client calls one provider's chat API.
type Client struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	HTTP     *http.Client
}

// FromEnv picks a provider from TROUBLESHOOT_LLM_PROVIDER or whichever API
// key is set.
func FromEnv() (*Client, error) {
	provider := strings.ToLower(strings.TrimSpace(os.Getenv("TROUBLESHOOT_LLM_PROVIDER")))
	if provider == "" {
		switch {
		case os.Getenv("OPENAI_API_KEY") != "":
			provider = "openai"
		case os.Getenv("ANTHROPIC_API_KEY") != "":
			provider = "anthropic"
		default:
			return nil, ErrNotConfigured
		}
	}

	c := &Client{Provider: provider, HTTP: &http.Client{Timeout: 30 * time.Second}}
	switch provider {
	case "openai":
		c.APIKey = os.Getenv("OPENAI_API_KEY")
		c.Model = "gpt-4o-mini"
		c.BaseURL = openAIURL
	case "anthropic":
		c.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		c.Model = "claude-3-haiku-20240307"
		c.BaseURL = anthropicURL
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
	if c.APIKey == "" {
		return nil, fmt.Errorf("%w: no API key for %s", ErrNotConfigured, provider)
	}
	return c, nil
}

// ShouldRun gates the LLM on there being something worth explaining. Short,
// clean logs are skipped to avoid invented problems.
func ShouldRun(a *analysis.Analysis, logLines int) bool {
	if len(a.Errors) > 0 {
		return true
	}
	if logLines < 50 && len(a.Warnings) == 0 {
		return false
	}
	return len(a.AudioIssues) > 0
}

// Diagnose sends the prompt built from a and logText.
func (c *Client) Diagnose(ctx context.Context, a *analysis.Analysis, logText string) (*Diagnosis, error) {
	prompt := BuildPrompt(a, logText)

	var (
		text string
		err  error
	)
	switch c.Provider {
	case "openai":
		text, err = c.callOpenAI(ctx, prompt)
	case "anthropic":
		text, err = c.callAnthropic(ctx, prompt)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", c.Provider)
	}
	if err != nil {
		return nil, err
	}
	return &Diagnosis{Provider: c.Provider, Model: c.Model, Analysis: strings.TrimSpace(text)}, nil
}

// BuildPrompt renders the evidence the model sees.
func BuildPrompt(a *analysis.Analysis, logText string) string {
	var b strings.Builder

	b.WriteString("You are an expert in diagnosing Asterisk AI voice agent issues. ")
	b.WriteString("Analyze the following call logs and provide a concise diagnosis.\n")
	b.WriteString("Be evidence-driven: if the call looks healthy, do NOT invent problems or propose config changes.\n\n")
	fmt.Fprintf(&b, "Call ID: %s\n\n", a.CallID)

	if h := a.Header; h != nil {
		b.WriteString("RCA Header (log-derived):\n")
		writeIf(&b, "Caller", h.CallerNumber)
		writeIf(&b, "Called", h.CalledNumber)
		writeIf(&b, "Context", h.ContextName)
		writeIf(&b, "Provider", h.ProviderName)
		writeIf(&b, "Transport", h.AudioTransport)
		if h.StreamingSampleRate > 0 || h.StreamingJitterBufferMs > 0 {
			fmt.Fprintf(&b, "- Streaming: sample_rate=%d jitter_buffer_ms=%d\n", h.StreamingSampleRate, h.StreamingJitterBufferMs)
		}
		b.WriteString("\n")
	}

	b.WriteString("Pipeline Status:\n")
	writeIf(&b, "Transport", a.AudioTransport)
	fmt.Fprintf(&b, "- Audio transport active: %v\n", a.Pipeline.AudioTransportActive)
	fmt.Fprintf(&b, "- Transcription: %v\n", a.Pipeline.TranscriptionActive)
	fmt.Fprintf(&b, "- Playback: %v\n\n", a.Pipeline.PlaybackActive)

	writeList(&b, "Errors found", a.Errors, 5)
	writeList(&b, "Warnings found", a.Warnings, 5)
	if len(a.AudioIssues) > 0 {
		b.WriteString("Audio Issues:\n")
		for _, issue := range a.AudioIssues {
			fmt.Fprintf(&b, "- %s\n", issue)
		}
		b.WriteString("\n")
	}

	if len(a.Metrics) > 0 {
		b.WriteString("Metrics:\n")
		keys := make([]string, 0, len(a.Metrics))
		for k := range a.Metrics {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, a.Metrics[k])
		}
		b.WriteString("\n")
	}

	b.WriteString("Sample Log Lines:\n")
	n := 0
	for _, line := range strings.Split(logText, "\n") {
		if n == maxPromptLines {
			break
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		b.WriteString(truncate(line, maxLineLen) + "\n")
		n++
	}
	b.WriteString("\n")

	b.WriteString("Please provide:\n")
	b.WriteString("1. Root Cause\n")
	b.WriteString("   - In ExternalMedia mode, AudioSocket is NOT used; do NOT treat it as an issue.\n")
	b.WriteString("2. Confidence: High/Medium/Low\n")
	b.WriteString("3. Quick Fix: exact changes in config/ai-agent.yaml (or 'N/A' if no issues)\n")
	b.WriteString("4. Prevention\n")
	b.WriteString("\nKeep your response concise and actionable (under 400 words).")
	return b.String()
}

func writeIf(b *strings.Builder, label, value string) {
	if value != "" {
		fmt.Fprintf(b, "- %s: %s\n", label, value)
	}
}

func writeList(b *strings.Builder, label string, items []string, limit int) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s: %d\n", label, len(items))
	for i, item := range items {
		if i == limit {
			break
		}
		fmt.Fprintf(b, "- %s\n", truncate(item, maxLineLen))
	}
	b.WriteString("\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func (c *Client) callOpenAI(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"model":       c.Model,
		"messages":    []map[string]string{{"role": "user", "content": prompt}},
		"max_tokens":  800,
		"temperature": 0.3,
	}
	headers := map[string]string{"Authorization": "Bearer " + c.APIKey}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := c.post(ctx, "/v1/chat/completions", headers, body, &result); err != nil {
		return "", fmt.Errorf("OpenAI request failed: %w", err)
	}
	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("no response from OpenAI")
	}
	return result.Choices[0].Message.Content, nil
}

func (c *Client) callAnthropic(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"model":      c.Model,
		"messages":   []map[string]string{{"role": "user", "content": prompt}},
		"max_tokens": 800,
	}
	headers := map[string]string{
		"x-api-key":         c.APIKey,
		"anthropic-version": "2023-06-01",
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := c.post(ctx, "/v1/messages", headers, body, &result); err != nil {
		return "", fmt.Errorf("Anthropic request failed: %w", err)
	}
	if len(result.Content) == 0 || result.Content[0].Text == "" {
		return "", fmt.Errorf("no content in response")
	}
	return result.Content[0].Text, nil
}

func (c *Client) post(ctx context.Context, path string, headers map[string]string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.BaseURL, "/")+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return json.Unmarshal(raw, out)
}
