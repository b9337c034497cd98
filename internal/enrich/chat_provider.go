package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/Ashutoshmitra/job-platform/internal/errors"
	"github.com/Ashutoshmitra/job-platform/internal/models"
)

// defaultConfidence is used when the model answers with attributes but an
// absent or malformed score.
const defaultConfidence = 0.85

const promptTemplate = `Based on the following job data, generate a structured JSON object containing these fields:
- ai_title: Improved, standardized job title
- ai_description: Clean, professional job description (2-3 sentences)
- ai_job_tasks: Array of 3-5 key job responsibilities
- ai_search_terms: Array of relevant search keywords
- ai_top_tags: Array of 3-5 most important skills/technologies
- ai_job_function_id: Numeric ID representing job function (100-999)
- ai_skills: Array of specific skills required
- ai_confidence_score: Float between 0.0 and 1.0 indicating parsing confidence

Job Data:
- Title: %s
- Company: %s
- Description: %s

Return only valid JSON format, no other text.`

// ChatEnricher enriches jobs through an OpenAI-compatible chat-completions
// endpoint.
type ChatEnricher struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	logger  *zap.Logger
}

func NewChatEnricher(baseURL, apiKey, model string, client *http.Client, logger *zap.Logger) *ChatEnricher {
	if client == nil {
		client = http.DefaultClient
	}
	return &ChatEnricher{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  client,
		logger:  logger,
	}
}

// truncate caps s at limit bytes without splitting a multi-byte rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (e *ChatEnricher) Enrich(ctx context.Context, job models.CanonicalJob) (*models.Enrichment, error) {
	prompt := fmt.Sprintf(promptTemplate, job.Title, job.CompanyName, truncate(job.Description, 1000))

	raw, err := e.complete(ctx, prompt)
	if err != nil {
		return nil, errors.Unavailable("enrichment call failed", err)
	}

	enrichment, err := parseEnrichment(raw)
	if err != nil {
		e.logger.Warn("unparseable enrichment response",
			zap.String("external_job_id", job.ExternalJobID),
			zap.Error(err))
		return nil, errors.Unavailable("parse enrichment response", err)
	}
	return enrichment, nil
}

func (e *ChatEnricher) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       e.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.1,
		MaxTokens:   1000,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call completions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("completions status %d: %s", resp.StatusCode, payload)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("response contains no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// rawEnrichment tolerates a confidence score of any JSON type.
type rawEnrichment struct {
	Title           string          `json:"ai_title"`
	Description     string          `json:"ai_description"`
	JobTasks        []string        `json:"ai_job_tasks"`
	SearchTerms     []string        `json:"ai_search_terms"`
	TopTags         []string        `json:"ai_top_tags"`
	JobFunctionID   int             `json:"ai_job_function_id"`
	Skills          []string        `json:"ai_skills"`
	ConfidenceScore json.RawMessage `json:"ai_confidence_score"`
}

// parseEnrichment deserializes the model response, stripping markdown code
// fences and surrounding prose when the model ignores the "JSON only"
// instruction.
func parseEnrichment(raw string) (*models.Enrichment, error) {
	text := strings.TrimSpace(raw)
	if idx := strings.Index(text, "```json"); idx != -1 {
		text = text[idx+len("```json"):]
		if end := strings.Index(text, "```"); end != -1 {
			text = text[:end]
		}
		text = strings.TrimSpace(text)
	}

	var re rawEnrichment
	if err := json.Unmarshal([]byte(text), &re); err != nil {
		match := jsonObject.FindString(text)
		if match == "" {
			return nil, fmt.Errorf("no JSON object in response: %w", err)
		}
		if err := json.Unmarshal([]byte(match), &re); err != nil {
			return nil, fmt.Errorf("unmarshal extracted JSON: %w", err)
		}
	}

	confidence := defaultConfidence
	if len(re.ConfidenceScore) > 0 {
		var f float64
		if err := json.Unmarshal(re.ConfidenceScore, &f); err == nil && f >= 0 && f <= 1 {
			confidence = f
		}
	}

	return &models.Enrichment{
		Title:           re.Title,
		Description:     re.Description,
		JobTasks:        re.JobTasks,
		SearchTerms:     re.SearchTerms,
		TopTags:         re.TopTags,
		JobFunctionID:   re.JobFunctionID,
		Skills:          re.Skills,
		ConfidenceScore: confidence,
	}, nil
}
