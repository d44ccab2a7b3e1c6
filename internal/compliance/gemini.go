package compliance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/passportpix/passportpix/internal/domain"
	"github.com/passportpix/passportpix/internal/encode"
)

const rubricPrompt = `You are a passport photo compliance officer.
Judge the attached photo against standard passport photo requirements
and answer with a single JSON object, no prose and no markdown fences:
{
  "passed": bool,
  "score": int 0-100,
  "checks": {
    "background": "Pass" | "Fail",
    "face_position": "Pass" | "Fail",
    "expression": "Pass" | "Fail",
    "lighting": "Pass" | "Fail",
    "sharpness": "Pass" | "Fail"
  },
  "feedback": "one or two sentences for the applicant"
}
Checks: plain light background without shadows or objects; face centered,
looking straight at the camera, head 70-80% of frame height; neutral
expression, mouth closed, eyes open; even lighting without glare or red
eye; photo sharp and unedited.`

type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// GeminiChecker evaluates the full-fidelity output with a Gemini
// vision call and parses the strict JSON verdict it asks for.
type GeminiChecker struct {
	logger  *log.Logger
	client  *genai.Client
	model   string
	timeout time.Duration
}

func NewGeminiChecker(ctx context.Context, logger *log.Logger, cfg Config) (*GeminiChecker, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("compliance API key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create compliance client: %w", err)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-1.5-flash"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &GeminiChecker{
		logger:  logger,
		client:  client,
		model:   model,
		timeout: timeout,
	}, nil
}

func (c *GeminiChecker) Close() error {
	return c.client.Close()
}

func (c *GeminiChecker) Check(ctx context.Context, photo encode.Encoded) (domain.ComplianceResult, error) {
	if photo.Size() == 0 {
		return domain.ComplianceResult{}, errors.New("no photo to evaluate")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	model := c.client.GenerativeModel(c.model)
	resp, err := model.GenerateContent(ctx,
		genai.ImageData("jpeg", photo.Bytes),
		genai.Text(rubricPrompt),
	)
	if err != nil {
		return domain.ComplianceResult{}, fmt.Errorf("compliance call: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return domain.ComplianceResult{}, errors.New("compliance response contained no text")
	}

	verdict, err := parseVerdict(text)
	if err != nil {
		c.logger.Printf("unparseable compliance response: %.200s", text)
		return domain.ComplianceResult{}, err
	}
	return verdict, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
	}
	return b.String()
}

// parseVerdict tolerates markdown code fences around the JSON; some
// models add them despite instructions.
func parseVerdict(text string) (domain.ComplianceResult, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var verdict domain.ComplianceResult
	if err := json.Unmarshal([]byte(text), &verdict); err != nil {
		return domain.ComplianceResult{}, fmt.Errorf("parse compliance verdict: %w", err)
	}
	if verdict.Score < 0 || verdict.Score > 100 {
		return domain.ComplianceResult{}, fmt.Errorf("compliance score out of range: %d", verdict.Score)
	}
	if verdict.Checks.Background == "" {
		return domain.ComplianceResult{}, errors.New("compliance verdict is missing category checks")
	}
	return verdict, nil
}
