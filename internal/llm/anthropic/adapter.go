package anthropic

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

const defaultVersion = "2023-06-01"

func init() {
	llm.Register("anthropic", NewAdapter)
}

type Adapter struct {
	config config.ProviderConfig
	client *http.Client
}

func NewAdapter(config config.ProviderConfig) (llm.Provider, error) {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.anthropic.com/v1"
	}
	return &Adapter{
		config: config,
		client: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (a *Adapter) Name() string       { return a.config.ID }
func (a *Adapter) Family() llm.Family { return llm.FamilyAnthropic }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model     string    `json:"model"`
	Messages  []message `json:"messages"`
	System    string    `json:"system,omitempty"`
	MaxTokens int       `json:"max_tokens"`
	Stream    bool      `json:"stream,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type response struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Content []contentBlock `json:"content"`
	Usage   *usage         `json:"usage,omitempty"`
}

type streamEvent struct {
	Type  string `json:"type"`
	Delta *struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta,omitempty"`
	Usage   *usage `json:"usage,omitempty"`
	Message *struct {
		Model string `json:"model"`
		Usage *usage `json:"usage,omitempty"`
	} `json:"message,omitempty"`
}

// toRequest maps the canonical prompt onto the messages API shape. The
// system prompt is a top-level field, not a message; role names match the
// gateway's own.
func toRequest(req *llm.Request) request {
	r := request{
		Model:     req.Model,
		System:    req.System,
		MaxTokens: req.MaxTokens,
		Stream:    false,
	}
	if r.MaxTokens == 0 {
		r.MaxTokens = 4096
	}
	for _, t := range req.Turns {
		r.Messages = append(r.Messages, message{Role: t.Role, Content: t.Content})
	}
	return r
}

func (a *Adapter) headers() map[string]string {
	return map[string]string{
		"x-api-key":         a.config.APIKey,
		"anthropic-version": defaultVersion,
	}
}

func (a *Adapter) Complete(ctx context.Context, req *llm.Request) (*llm.Result, error) {
	body := toRequest(req)

	url := fmt.Sprintf("%s/messages", strings.TrimRight(a.config.BaseURL, "/"))

	var resp response
	if err := httpclient.SendRequest(ctx, a.client, "POST", url, a.headers(), body, &resp); err != nil {
		return nil, err
	}

	var full strings.Builder
	for _, c := range resp.Content {
		if c.Type == "text" {
			full.WriteString(c.Text)
		}
	}
	if full.Len() == 0 {
		return nil, errors.New("anthropic: empty completion")
	}

	result := &llm.Result{
		Content: full.String(),
		Model:   resp.Model,
	}
	if resp.Usage != nil {
		in, out := resp.Usage.InputTokens, resp.Usage.OutputTokens
		result.InputTokens = &in
		result.OutputTokens = &out
	}
	return result, nil
}

// Stream relays text deltas as they arrive. Anthropic splits usage across
// the stream: input tokens ride on message_start, output tokens on the
// closing message_delta. Both are buffered and merged into the single done
// event rather than emitted as partial figures.
func (a *Adapter) Stream(ctx context.Context, req *llm.Request) (<-chan llm.StreamEvent, error) {
	ch := make(chan llm.StreamEvent)

	body := toRequest(req)
	body.Stream = true

	url := fmt.Sprintf("%s/messages", strings.TrimRight(a.config.BaseURL, "/"))

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

			var event streamEvent
			if err := json.Unmarshal([]byte(data), &event); err != nil {
				return nil
			}

			switch event.Type {
			case "message_start":
				if event.Message != nil {
					if event.Message.Model != "" {
						model = event.Message.Model
					}
					if event.Message.Usage != nil {
						i := event.Message.Usage.InputTokens
						in = &i
					}
				}
				if event.Usage != nil {
					i := event.Usage.InputTokens
					in = &i
				}
			case "content_block_delta":
				if event.Delta != nil && event.Delta.Type == "text_delta" && event.Delta.Text != "" {
					full.WriteString(event.Delta.Text)
					ch <- llm.StreamEvent{Kind: llm.KindChunk, Text: event.Delta.Text}
				}
			case "message_delta":
				if event.Usage != nil {
					o := event.Usage.OutputTokens
					out = &o
				}
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
	url := fmt.Sprintf("%s/models?limit=1", strings.TrimRight(a.config.BaseURL, "/"))

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("x-api-key", a.config.APIKey)
	req.Header.Set("anthropic-version", defaultVersion)

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
