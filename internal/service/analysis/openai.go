package analysis

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/cardshow/cardshow/internal/model"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const systemPrompt = `You catalogue artwork for a digital trading card game.
Look at the card art and answer with a single JSON object with these keys:
"title" (short card name), "description" (one or two sentences of flavour text),
"rarity" (one of common, uncommon, rare, epic, legendary, mythic),
"tags" (3 to 8 lower-case keywords), "category" (creature, character, item,
location, spell, vehicle or other) and "confidence" (0 to 1).`

var cardCategories = []string{"creature", "character", "item", "location", "spell", "vehicle", "other"}

// cardSchema constrains the reply in strict structured-output mode, which
// requires every property listed and no extras.
var cardSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"title":       map[string]any{"type": "string"},
		"description": map[string]any{"type": "string"},
		"rarity":      map[string]any{"type": "string", "enum": model.Rarities},
		"tags": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
		"category":   map[string]any{"type": "string", "enum": cardCategories},
		"confidence": map[string]any{"type": "number"},
	},
	"required":             []string{"title", "description", "rarity", "tags", "category", "confidence"},
	"additionalProperties": false,
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string // optional, for compatible endpoints
	Timeout time.Duration
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

type OpenAIAnalyzer struct {
	client openai.Client
	model  string
}

func NewOpenAIAnalyzer(cfg OpenAIConfig) *OpenAIAnalyzer {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(1),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 45 * time.Second
	}
	opts = append(opts, option.WithRequestTimeout(timeout))

	modelName := cfg.Model
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}

	return &OpenAIAnalyzer{
		client: openai.NewClient(opts...),
		model:  modelName,
	}
}

func (a *OpenAIAnalyzer) Analyze(ctx context.Context, img Image) (*model.CardAnalysis, error) {
	imageURL, err := imageReference(img)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(a.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart("Describe this trading card artwork."),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL:    imageURL,
					Detail: "low",
				}),
			}),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "card_analysis",
					Description: openai.String("Catalogue fields for one trading card"),
					Strict:      openai.Bool(true),
					Schema:      cardSchema,
				},
			},
		},
		MaxTokens:   openai.Int(500),
		Temperature: openai.Float(0.4),
	})
	if err != nil {
		// never echo the request, it carries the credential
		return nil, fmt.Errorf("vision request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", ErrBadResponse)
	}

	return parseAnalysis(resp.Choices[0].Message.Content)
}

// imageReference returns a URL the model can fetch, inlining bytes as a data URL.
func imageReference(img Image) (string, error) {
	if img.URL != "" {
		return img.URL, nil
	}
	if len(img.Data) == 0 {
		return "", ErrNoImage
	}
	contentType := img.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(img.Data)
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(img.Data), nil
}
