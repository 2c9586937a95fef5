package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ProfiFlow/backend/internal/apperr"
	"github.com/ProfiFlow/backend/internal/config"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

// YandexGPT implements Gateway against the Yandex foundation-models
// completion API. The declared schema is both sent to the model as the
// response format and enforced locally before the response is used.
type YandexGPT struct {
	cfg  config.GPTConfig
	http *http.Client
}

// NewYandexGPT builds the gateway from application config.
func NewYandexGPT(cfg config.GPTConfig) *YandexGPT {
	return &YandexGPT{
		cfg:  cfg,
		http: &http.Client{Timeout: 60 * time.Second},
	}
}

type completionMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type completionOptions struct {
	Stream      bool    `json:"stream"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
}

type jsonSchemaFormat struct {
	Schema json.RawMessage `json:"schema"`
}

type completionRequest struct {
	ModelURI          string              `json:"modelUri"`
	CompletionOptions completionOptions   `json:"completionOptions"`
	Messages          []completionMessage `json:"messages"`
	JSONSchema        *jsonSchemaFormat   `json:"jsonSchema,omitempty"`
}

type completionResponse struct {
	Result struct {
		Alternatives []struct {
			Message completionMessage `json:"message"`
			Status  string            `json:"status"`
		} `json:"alternatives"`
	} `json:"result"`
}

// CompleteStructured implements Gateway.
func (g *YandexGPT) CompleteStructured(ctx context.Context, systemPrompt, userPrompt, schemaJSON string, out any) error {
	if g.cfg.FolderID == "" || g.cfg.APIKey == "" {
		return apperr.Unavailablef("analysis model is not configured")
	}

	messages := make([]completionMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, completionMessage{Role: "system", Text: systemPrompt})
	}
	messages = append(messages, completionMessage{Role: "user", Text: userPrompt})

	payload, err := json.Marshal(completionRequest{
		ModelURI: fmt.Sprintf("gpt://%s/%s/latest", g.cfg.FolderID, g.cfg.Model),
		CompletionOptions: completionOptions{
			Temperature: g.cfg.Temperature,
			MaxTokens:   g.cfg.MaxTokens,
		},
		Messages:   messages,
		JSONSchema: &jsonSchemaFormat{Schema: json.RawMessage(schemaJSON)},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/foundationModels/v1/completion", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Api-Key "+g.cfg.APIKey)
	req.Header.Set("x-folder-id", g.cfg.FolderID)

	resp, err := g.http.Do(req)
	if err != nil {
		return apperr.Unavailablef("model request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperr.Unavailablef("model responded %s", resp.Status)
	}

	var completion completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return apperr.Unavailablef("decode model response: %v", err)
	}
	if len(completion.Result.Alternatives) == 0 {
		return apperr.Unavailablef("model returned no alternatives")
	}

	text := stripFences(completion.Result.Alternatives[0].Message.Text)
	if text == "" {
		return apperr.Unavailablef("model returned an empty alternative")
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schemaJSON),
		gojsonschema.NewStringLoader(text),
	)
	if err != nil {
		return apperr.Unavailablef("model response is not valid JSON: %v", err)
	}
	if !result.Valid() {
		for _, desc := range result.Errors() {
			log.Debug().Str("issue", desc.String()).Msg("model response schema violation")
		}
		return apperr.Unavailablef("model response failed schema validation")
	}

	if err := json.Unmarshal([]byte(text), out); err != nil {
		return apperr.Unavailablef("unmarshal model response: %v", err)
	}
	return nil
}

// stripFences removes a markdown code fence the model may wrap the JSON in.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
