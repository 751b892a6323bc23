package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/maeum-ai/maeum-api/internal/config"
	"github.com/maeum-ai/maeum-api/internal/httpclient"
	"github.com/maeum-ai/maeum-api/internal/llm"
)

func init() {
	llm.Register("openai", NewAdapter)
}

type Adapter struct {
	config config.ProviderConfig
	client *http.Client
}

func NewAdapter(config config.ProviderConfig) (llm.Provider, error) {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.openai.com/v1"
	}
	return &Adapter{
		config: config,
		client: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (a *Adapter) Name() string       { return a.config.ID }
func (a *Adapter) Family() llm.Family { return llm.FamilyOpenAI }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type request struct {
	Model         string         `json:"model"`
	Messages      []message      `json:"messages"`
	MaxTokens     int            `json:"max_tokens,omitempty"`
	Stream        bool           `json:"stream,omitempty"`
	StreamOptions *streamOptions `json:"stream_options,omitempty"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type choice struct {
	Message *message `json:"message,omitempty"`
	Delta   *message `json:"delta,omitempty"`
}

type response struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []choice `json:"choices"`
	Usage   *usage   `json:"usage,omitempty"`
}

// toRequest maps the canonical prompt onto the chat completions shape. The
// system prompt travels as a leading system-role message; user/assistant
// role names match the gateway's own.
func toRequest(req *llm.Request) request {
	r := request{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
	}
	if req.System != "" {
		r.Messages = append(r.Messages, message{Role: "system", Content: req.System})
	}
	for _, t := range req.Turns {
		r.Messages = append(r.Messages, message{Role: t.Role, Content: t.Content})
	}
	return r
}

func (a *Adapter) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + a.config.APIKey,
	}
}

func (a *Adapter) Complete(ctx context.Context, req *llm.Request) (*llm.Result, error) {
	body := toRequest(req)
	body.Stream = false

	url := fmt.Sprintf("%s/chat/completions", strings.TrimRight(a.config.BaseURL, "/"))

	var resp response
	if err := httpclient.SendRequest(ctx, a.client, "POST", url, a.headers(), body, &resp); err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
		return nil, errors.New("openai: empty completion")
	}

	result := &llm.Result{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
	}
	if resp.Usage != nil {
		in, out := resp.Usage.PromptTokens, resp.Usage.CompletionTokens
		result.InputTokens = &in
		result.OutputTokens = &out
	}
	return result, nil
}

func (a *Adapter) Stream(ctx context.Context, req *llm.Request) (<-chan llm.StreamEvent, error) {
	ch := make(chan llm.StreamEvent)

	body := toRequest(req)
	body.Stream = true
	// usage arrives in one final chunk with an empty choices array
	body.StreamOptions = &streamOptions{IncludeUsage: true}

	url := fmt.Sprintf("%s/chat/completions", strings.TrimRight(a.config.BaseURL, "/"))

	go func() {
		defer close(ch)

		var full strings.Builder
		var in, out *int
		model := req.Model

		err := httpclient.StreamRequest(ctx, a.client, "POST", url, a.headers(), body, func(line string) error {
			if !strings.HasPrefix(line, "data: ") {
				return nil
			}
			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				return nil
			}

			var chunk response
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				// malformed keep-alive noise, skip the line
				return nil
			}

			if chunk.Model != "" {
				model = chunk.Model
			}
			if chunk.Usage != nil {
				i, o := chunk.Usage.PromptTokens, chunk.Usage.CompletionTokens
				in, out = &i, &o
			}
			if len(chunk.Choices) > 0 && chunk.Choices[0].Delta != nil && chunk.Choices[0].Delta.Content != "" {
				full.WriteString(chunk.Choices[0].Delta.Content)
				ch <- llm.StreamEvent{Kind: llm.KindChunk, Text: chunk.Choices[0].Delta.Content}
			}
			return nil
		})

		if err != nil {
			ch <- llm.StreamEvent{Kind: llm.KindError, Err: err}
			return
		}

		ch <- llm.StreamEvent{Kind: llm.KindDone, Result: &llm.Result{
			Content:      full.String(),
			Model:        model,
			InputTokens:  in,
			OutputTokens: out,
		}}
	}()

	return ch, nil
}

func (a *Adapter) Health(ctx context.Context) error {
	url := fmt.Sprintf("%s/models", strings.TrimRight(a.config.BaseURL, "/"))

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+a.config.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %d", resp.StatusCode)
	}
	return nil
}
