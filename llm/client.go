// Package llm wraps the text-generation collaborator behind small interfaces so
// the pipeline can be exercised with fakes.
package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Metadata tags a generation for tracing. It never changes model behavior.
type Metadata struct {
	GenerationName string
	TraceID        string
	SessionID      string
	Tags           []string
}

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, meta Metadata) (string, error)
}

// VisionGenerator produces text from a prompt plus an image on disk.
type VisionGenerator interface {
	GenerateWithImage(ctx context.Context, prompt string, imagePath string, meta Metadata) (string, error)
}

// Embedder turns texts into embedding vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Client is the OpenAI-backed implementation of all three interfaces.
type Client struct {
	client         openai.Client
	model          string
	embeddingModel string
	timeout        time.Duration
}

// NewClient builds a Client for the given chat model.
func NewClient(apiKey, model, embeddingModel string, timeout time.Duration) *Client {
	return &Client{
		client:         openai.NewClient(option.WithAPIKey(apiKey)),
		model:          model,
		embeddingModel: embeddingModel,
		timeout:        timeout,
	}
}

// Generate runs a single chat completion and returns the raw text.
func (c *Client) Generate(ctx context.Context, prompt string, meta Metadata) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	chatCompletion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: c.model,
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error (%s): %w", meta.GenerationName, err)
	}

	if len(chatCompletion.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI (%s)", meta.GenerationName)
	}

	rawResponse := chatCompletion.Choices[0].Message.Content
	if rawResponse == "" {
		return "", fmt.Errorf("OpenAI returned empty response (%s). Finish reason: %s",
			meta.GenerationName, chatCompletion.Choices[0].FinishReason)
	}
	return rawResponse, nil
}

// GenerateWithImage runs a chat completion with an inline image attachment.
func (c *Client) GenerateWithImage(ctx context.Context, prompt string, imagePath string, meta Metadata) (string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("read image %s: %w", imagePath, err)
	}
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	chatCompletion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
			}),
		},
		Model: c.model,
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error (%s): %w", meta.GenerationName, err)
	}
	if len(chatCompletion.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI (%s)", meta.GenerationName)
	}
	return chatCompletion.Choices[0].Message.Content, nil
}

// Embed generates embeddings for the given texts.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model: c.embeddingModel,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding API error: %w", err)
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		embeddings[i] = vec
	}
	return embeddings, nil
}

// GenerateSchema generates a JSON schema for structured outputs
func GenerateSchema[T any]() interface{} {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	return schema
}

// GenerateStructured calls the model with JSON schema enforcement and decodes
// the response into T.
func GenerateStructured[T any](ctx context.Context, c *Client, prompt string, schemaName string, schema interface{}, meta Metadata) (*T, error) {
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        schemaName,
		Description: openai.String("Structured data response"),
		Schema:      schema,
		Strict:      openai.Bool(true),
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	chatCompletion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: c.model,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: schemaParam,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(chatCompletion.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	rawResponse := chatCompletion.Choices[0].Message.Content
	log.Printf("OpenAI structured response (%s): %d bytes", schemaName, len(rawResponse))

	var structuredResponse T
	if err := json.Unmarshal([]byte(rawResponse), &structuredResponse); err != nil {
		return nil, fmt.Errorf("failed to parse OpenAI JSON response: %w\nRaw content: %s", err, rawResponse)
	}
	return &structuredResponse, nil
}
