// Package openai wraps the OpenAI API (or any compatible endpoint) as the
// system's embedding and answer-generation collaborator.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"chyron/internal/config"
	"chyron/internal/services"
)

const (
	answerTemperature = 0.3
	answerMaxTokens   = 1000
)

// Client provides embeddings and chat completions against one endpoint.
type Client struct {
	api            *goopenai.Client
	embeddingModel string
	chatModel      string
}

// New builds a client from the openai config section. The API key is
// mandatory; BaseURL may point at any OpenAI-compatible server.
func New(cfg config.OpenAI) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "openai", "new", "api key is required", nil)
	}

	clientConfig := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	clientConfig.HTTPClient = &http.Client{Timeout: timeout}

	return &Client{
		api:            goopenai.NewClientWithConfig(clientConfig),
		embeddingModel: cfg.EmbeddingModel,
		chatModel:      cfg.ChatModel,
	}, nil
}

// EmbeddingModel returns the configured embedding model name.
func (c *Client) EmbeddingModel() string {
	return c.embeddingModel
}

// Embed returns the embedding vector for one text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in one request. The returned vectors match the
// input order regardless of the order the API reports them in.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := c.api.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Model: goopenai.EmbeddingModel(c.embeddingModel),
		Input: texts,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, "embed", "create embeddings", "", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, services.Wrap(
			services.ErrExternal,
			"embed", "create embeddings",
			fmt.Sprintf("got %d embeddings for %d inputs", len(resp.Data), len(texts)),
			nil,
		)
	}

	data := make([]goopenai.Embedding, len(resp.Data))
	copy(data, resp.Data)
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	vectors := make([][]float32, len(data))
	for i, item := range data {
		vectors[i] = item.Embedding
	}
	return vectors, nil
}

// Answer generates a grounded answer to query from the supplied transcript
// context.
func (c *Client) Answer(ctx context.Context, query, contextText string) (string, error) {
	systemPrompt := "You answer questions about video content using only the provided transcript excerpts. " +
		"Each excerpt carries its time range. If the excerpts do not contain the answer, say so."
	userPrompt := fmt.Sprintf("Transcript excerpts:\n%s\n\nQuestion: %s", contextText, query)

	return c.complete(ctx, systemPrompt, userPrompt)
}

// Summarize produces a summary of transcript text, optionally anchored by the
// video title.
func (c *Client) Summarize(ctx context.Context, text, title string) (string, error) {
	systemPrompt := "You summarize video transcripts into a few concise paragraphs covering the main points."
	userPrompt := text
	if strings.TrimSpace(title) != "" {
		userPrompt = fmt.Sprintf("Video title: %s\n\nTranscript:\n%s", title, text)
	}

	return c.complete(ctx, systemPrompt, userPrompt)
}

func (c *Client) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: answerTemperature,
		MaxTokens:   answerMaxTokens,
	})
	if err != nil {
		return "", services.Wrap(services.ErrExternal, "answer", "chat completion", "", err)
	}
	if len(resp.Choices) == 0 {
		return "", services.Wrap(services.ErrExternal, "answer", "chat completion", "no choices returned", nil)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
