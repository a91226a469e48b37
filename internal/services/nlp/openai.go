package nlp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	logpkg "github.com/benvon/smart-bookmarks/internal/logger"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

const (
	// DefaultOpenAIModel is the default model for entity extraction
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout bounds one classification request
	DefaultTimeout = 20 * time.Second
	// MaxPromptTextLength caps the page text sent to the model
	MaxPromptTextLength = 12000
)

// ErrNoChoicesInResponse is returned when the API response has no choices
var ErrNoChoicesInResponse = errors.New("no choices in response")

const entitySystemPrompt = `You are a named entity recognizer for a bookmarking service.
Extract the named entities and main topics of the text: people, organisations, products, places, technologies.
Respond with JSON only, shaped as {"entities":[{"text":"...","entity":"<kind>","option":"<canonical topic or empty>"}]}.
List entities in the order they first appear. Do not invent entities that are not in the text.`

// OpenAIClassifier extracts entities with an OpenAI chat completion
type OpenAIClassifier struct {
	client    openai.Client
	model     string
	logger    *zap.Logger
	debugMode bool
}

// NewOpenAIClassifier creates an OpenAI-backed classifier
func NewOpenAIClassifier(apiKey, baseURL, model string, logger *zap.Logger, debugMode bool) *OpenAIClassifier {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(&http.Client{Timeout: DefaultTimeout}),
		option.WithMaxRetries(0),
	)

	return &OpenAIClassifier{
		client:    client,
		model:     model,
		logger:    logger,
		debugMode: debugMode,
	}
}

// Process asks the model for entities in text
func (c *OpenAIClassifier) Process(ctx context.Context, locale, text string) (*Result, error) {
	if err := checkLocale(locale); err != nil {
		return nil, err
	}
	text = TruncateText(text, MaxPromptTextLength)

	req := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(entitySystemPrompt),
			openai.UserMessage(text),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
		Temperature: openai.Float(0),
	}

	if c.debugMode {
		c.logger.Debug("ner_api_request",
			zap.String("model", c.model),
			zap.Int("text_length", len(text)),
			zap.String("text_preview", logpkg.SanitizeString(text, 200)),
		)
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)
	if err != nil {
		c.logger.Warn("ner_api_error",
			zap.String("model", c.model),
			zap.String("error", logpkg.SanitizeError(err)),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return nil, fmt.Errorf("failed to extract entities: %w", apiErr)
		}
		return nil, fmt.Errorf("failed to extract entities: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoChoicesInResponse
	}

	content := resp.Choices[0].Message.Content
	if c.debugMode {
		c.logger.Debug("ner_api_response",
			zap.String("model", c.model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", logpkg.SanitizeDebugContent(content)),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	res, err := DecodeResult(extractJSONObject([]byte(content)))
	if err != nil {
		return nil, err
	}
	res.Locale = LocaleEnglish
	return res, nil
}

// extractJSONObject trims any prose around the outermost JSON object
func extractJSONObject(content []byte) []byte {
	content = bytes.TrimSpace(content)
	if len(content) > 0 && content[0] == '{' {
		return content
	}
	start := bytes.IndexByte(content, '{')
	end := bytes.LastIndexByte(content, '}')
	if start == -1 || end <= start {
		return content
	}
	return content[start : end+1]
}
