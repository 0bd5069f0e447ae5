package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"formpilot/internal/config"
	"formpilot/internal/logging"
)

const geminiSystemPrompt = `You answer job application form questions on behalf of a candidate.
You receive one question, its field type, the selectable options if the field has a fixed
vocabulary, and the candidate's profile as JSON. Reply with JSON only:
{"answer": string, "confidence": number 0..1, "intent": string (dotted profile path, optional),
"isNewIntent": boolean (optional), "suggestedIntentName": string (optional)}.
If options are provided, "answer" MUST be exactly one of them. If the profile does not
contain the information, answer with your best generic response and a low confidence.`

// GeminiClient answers questions through the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini-backed oracle.
func NewGeminiClient(cfg config.OracleConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

// Answer sends one question to Gemini and parses its JSON reply.
func (c *GeminiClient) Answer(ctx context.Context, req Request) (*Response, error) {
	prompt, err := buildGeminiPrompt(req)
	if err != nil {
		return nil, err
	}

	result, err := c.client.Models.GenerateContent(ctx,
		c.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			ResponseMIMEType:  "application/json",
			Temperature:       genai.Ptr[float32](0.1),
			SystemInstruction: genai.NewContentFromText(geminiSystemPrompt, genai.RoleUser),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return nil, fmt.Errorf("gemini returned empty response")
	}
	// Models occasionally wrap JSON in a code fence despite the MIME type.
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var answer Response
	if err := json.Unmarshal([]byte(text), &answer); err != nil {
		return nil, fmt.Errorf("malformed gemini response: %w", err)
	}
	if answer.Answer == "" {
		return nil, fmt.Errorf("gemini returned empty answer")
	}

	logging.Oracle("Gemini answered %q (confidence=%.2f intent=%s)",
		truncate(req.Question, 60), answer.Confidence, answer.Intent)
	return &answer, nil
}

func buildGeminiPrompt(req Request) (string, error) {
	profileJSON, err := json.Marshal(req.UserProfile)
	if err != nil {
		return "", fmt.Errorf("failed to marshal profile: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n", req.Question)
	fmt.Fprintf(&b, "Field type: %s\n", req.FieldType)
	if len(req.Options) > 0 {
		fmt.Fprintf(&b, "Options:\n")
		for _, opt := range req.Options {
			fmt.Fprintf(&b, "- %s\n", opt)
		}
	}
	fmt.Fprintf(&b, "Candidate profile JSON:\n%s\n", profileJSON)
	return b.String(), nil
}
