package openai

import (
	"context"
	"net/http"
	"time"

	"github.com/HeyGuihi/CrioloWhatsApp/app/config"
	"github.com/HeyGuihi/CrioloWhatsApp/app/service/history"
	"github.com/samber/do"
	"github.com/samber/oops"
	"github.com/sashabaranov/go-openai"
)

const (
	defaultTemperature = 0.7
	maxReplyTokens     = 500
)

// Client calls an OpenAI-compatible chat completion endpoint. Responses are
// returned verbatim; interpreting them is the caller's problem.
type Client struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	clientConfig := openai.DefaultConfig(cfg.OpenAI.Token)
	clientConfig.BaseURL = cfg.OpenAI.BaseURL
	clientConfig.HTTPClient = &http.Client{
		Timeout: cfg.OpenAI.Timeout,
	}

	return &Client{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.OpenAI.Model,
		timeout: cfg.OpenAI.Timeout,
	}, nil
}

func (c *Client) Generate(ctx context.Context, systemPrompt string, turns []history.Turn) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(turns)+1)

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})

	for _, turn := range turns {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    turn.Role,
			Content: turn.Content,
		})
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	aiResponse, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:       c.model,
			Messages:    messages,
			Temperature: defaultTemperature,
			MaxTokens:   maxReplyTokens,
		},
	)
	if err != nil {
		return "", oops.Errorf("failed to create chat completion: %w", err)
	}

	if len(aiResponse.Choices) == 0 {
		return "", oops.Errorf("no chat completion found")
	}

	return aiResponse.Choices[0].Message.Content, nil
}
