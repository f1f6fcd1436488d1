package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Image is one normalized input: a bare base64 payload plus its mime type.
type Image struct {
	Data string
	MIME string
}

// NormalizeImage accepts either a raw base64 payload or a
// data:<mime>;base64,<payload> URI. The mime type defaults to image/png and
// switches to image/jpeg only when the URI prefix names it.
func NormalizeImage(s string) Image {
	if !strings.HasPrefix(s, "data:") {
		return Image{Data: s, MIME: "image/png"}
	}
	prefix, payload, found := strings.Cut(s, ",")
	if !found {
		return Image{Data: s, MIME: "image/png"}
	}
	mime := "image/png"
	if strings.Contains(prefix, "jpeg") {
		mime = "image/jpeg"
	}
	return Image{Data: payload, MIME: mime}
}

// Oracle is the multimodal completion collaborator: one call, all images
// plus the instruction text, raw text back.
type Oracle interface {
	Complete(ctx context.Context, images []Image, prompt string, maxTokens int) (string, error)
}

// ErrEmptyResponse reports a 2xx reply whose content block was empty.
var ErrEmptyResponse = errors.New("empty oracle response")

// StatusError is a non-2xx reply from the oracle endpoint.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error: %d", e.Code)
}

// AnthropicConfig configures the hosted oracle endpoint.
type AnthropicConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// AnthropicOracle calls the Anthropic messages endpoint. Call deadlines are
// the caller's responsibility (the pipeline bounds them per schema).
type AnthropicOracle struct {
	cfg  AnthropicConfig
	http *http.Client
}

func NewAnthropicOracle(cfg AnthropicConfig) *AnthropicOracle {
	return &AnthropicOracle{cfg: cfg, http: &http.Client{}}
}

type oracleContentBlock struct {
	Type   string             `json:"type"`
	Text   string             `json:"text,omitempty"`
	Source *oracleImageSource `json:"source,omitempty"`
}

type oracleImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type oracleRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []oracleMessage `json:"messages"`
}

type oracleMessage struct {
	Role    string               `json:"role"`
	Content []oracleContentBlock `json:"content"`
}

type oracleResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

func (o *AnthropicOracle) Complete(ctx context.Context, images []Image, prompt string, maxTokens int) (string, error) {
	content := make([]oracleContentBlock, 0, len(images)+1)
	for _, img := range images {
		content = append(content, oracleContentBlock{
			Type: "image",
			Source: &oracleImageSource{
				Type:      "base64",
				MediaType: img.MIME,
				Data:      img.Data,
			},
		})
	}
	content = append(content, oracleContentBlock{Type: "text", Text: prompt})

	body, err := json.Marshal(oracleRequest{
		Model:     o.cfg.Model,
		MaxTokens: maxTokens,
		Messages:  []oracleMessage{{Role: "user", Content: content}},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-api-key", o.cfg.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("content-type", "application/json")

	resp, err := o.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("call oracle: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", &StatusError{Code: resp.StatusCode}
	}

	var decoded oracleResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Content) == 0 || decoded.Content[0].Text == "" {
		return "", ErrEmptyResponse
	}
	return decoded.Content[0].Text, nil
}
