package explain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultEndpoint is Groq's OpenAI compatible chat completions endpoint.
	DefaultEndpoint = "https://api.groq.com/openai/v1/chat/completions"
	// DefaultModel is the model asked for explanations.
	DefaultModel = "deepseek-r1-distill-llama-70b"
	// DefaultTemperature keeps answers focused without being entirely canned.
	DefaultTemperature = 0.4
	// DefaultRequestTimeout bounds a single explanation request.
	DefaultRequestTimeout = 30 * time.Second
)

// SystemPrompt frames every explanation request.
const SystemPrompt = `You are an automotive diagnostics expert specializing in UDS (ISO 14229).
Your task is to explain UDS response codes in a concise, user-friendly format.
1. First line: Response code meaning (max 5 words)
2. Bullet points: Top 3 causes (emoji + 3-5 words each)
3. Action steps (numbered)
4. Standard reference
5. Keep entire response under 100 words
6. Format in Markdown`

// ErrMissingAPIKey is returned when a ChatClient has no API key to send.
var ErrMissingAPIKey = errors.New("missing API key")

// ChatConfig configures a ChatClient. Empty fields use the defaults.
type ChatConfig struct {
	APIKey      string
	Endpoint    string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// ChatClient asks an OpenAI compatible chat completions API for explanations.
type ChatClient struct {
	cfg    ChatConfig
	client *http.Client
}

// NewChatClient returns a ChatClient for the given config.
func NewChatClient(cfg ChatConfig) *ChatClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRequestTimeout
	}

	return &ChatClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Explain asks the model to explain the response.
func (c *ChatClient) Explain(ctx context.Context, rawHex, detail string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", ErrMissingAPIKey
	}

	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: fmt.Sprintf("Explain this UDS response: %s. Context: %s", rawHex, detail)},
		},
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", errors.Wrap(err, "encoding chat request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "building chat request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "sending chat request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", errors.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var cr chatResponse
	if err = json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", errors.Wrap(err, "decoding chat response")
	}
	if len(cr.Choices) == 0 {
		return "", errors.New("chat response had no choices")
	}

	return cr.Choices[0].Message.Content, nil
}
