package google

import (
	"context"
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
	llm.Register("google", NewAdapter)
}

type Adapter struct {
	config config.ProviderConfig
	client *http.Client
}

func NewAdapter(config config.ProviderConfig) (llm.Provider, error) {
	if config.BaseURL == "" {
		config.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	return &Adapter{
		config: config,
		client: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (a *Adapter) Name() string       { return a.config.ID }
func (a *Adapter) Family() llm.Family { return llm.FamilyGoogle }

type part struct {
	Text string `json:"text,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type request struct {
	Contents          []content `json:"contents"`
	SystemInstruction *content  `json:"systemInstruction,omitempty"`
}

type candidate struct {
	Content content `json:"content"`
}

type usageMetadata struct {
	PromptTokenCount     *int `json:"promptTokenCount,omitempty"`
	CandidatesTokenCount *int `json:"candidatesTokenCount,omitempty"`
}

type response struct {
	Candidates    []candidate    `json:"candidates"`
	UsageMetadata *usageMetadata `json:"usageMetadata,omitempty"`
}

// toRequest maps the canonical prompt onto the generateContent shape. The
// assistant role is called "model" in this vocabulary.
func toRequest(req *llm.Request) request {
	r := request{}
	if req.System != "" {
		r.SystemInstruction = &content{Parts: []part{{Text: req.System}}}
	}
	for _, t := range req.Turns {
		role := "user"
		if t.Role == llm.RoleAssistant {
			role = "model"
		}
		r.Contents = append(r.Contents, content{
			Role:  role,
			Parts: []part{{Text: t.Content}},
		})
	}
	return r
}

func (a *Adapter) Complete(ctx context.Context, req *llm.Request) (*llm.Result, error) {
	body := toRequest(req)

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(a.config.BaseURL, "/"),
		req.Model,
		a.config.APIKey,
	)

	var resp response
	if err := httpclient.SendRequest(ctx, a.client, "POST", url, nil, body, &resp); err != nil {
		return nil, err
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, errors.New("google: no candidates")
	}

	var full strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		full.WriteString(p.Text)
	}

	result := &llm.Result{
		Content: full.String(),
		Model:   req.Model,
	}
	if resp.UsageMetadata != nil {
		result.InputTokens = resp.UsageMetadata.PromptTokenCount
		result.OutputTokens = resp.UsageMetadata.CandidatesTokenCount
	}
	return result, nil
}

// Stream satisfies the streaming contract without native streaming support:
// one blocking Complete, replayed as a single chunk followed by done. The
// caller cannot tell the difference, which keeps the coordinator
// vendor-agnostic.
func (a *Adapter) Stream(ctx context.Context, req *llm.Request) (<-chan llm.StreamEvent, error) {
	ch := make(chan llm.StreamEvent)

	go func() {
		defer close(ch)

		result, err := a.Complete(ctx, req)
		if err != nil {
			ch <- llm.StreamEvent{Kind: llm.KindError, Err: err}
			return
		}

		ch <- llm.StreamEvent{Kind: llm.KindChunk, Text: result.Content}
		ch <- llm.StreamEvent{Kind: llm.KindDone, Result: result}
	}()

	return ch, nil
}

func (a *Adapter) Health(ctx context.Context) error {
	url := fmt.Sprintf("%s/models?key=%s&pageSize=1",
		strings.TrimRight(a.config.BaseURL, "/"),
		a.config.APIKey,
	)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return err
	}

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
