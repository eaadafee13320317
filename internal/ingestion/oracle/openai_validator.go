package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/yungbote/labreport-backend/internal/ingestion/scanner"
	"github.com/yungbote/labreport-backend/internal/platform/logger"
	"github.com/yungbote/labreport-backend/internal/platform/openai"
)

const systemPrompt = "You are a medical data validator. You classify laboratory test parameter names."

const userPromptHeader = `For each item below decide whether "name" (with its unit) is a recognized health test parameter.
Names are lowercased with punctuation removed, e.g. "cholesteroltotal" or "astsgot".
Return ONLY a JSON array with exactly one object per input item, in the same order.
Each object has a single key "is_valid" whose value is the standard human readable test name
(for example "Cholesterol - Total", "Triglycerides", "ALT / SGPT", "Glycated Haemoglobin"),
or an empty string when the item is not a health test parameter.
Do not wrap the output in markdown and do not add commentary.

Parameters:
`

type OpenAIValidator struct {
	client  openai.Client
	log     *logger.Logger
	timeout time.Duration
}

// NewOpenAIValidator bounds every Validate call by timeout, retries included.
func NewOpenAIValidator(client openai.Client, log *logger.Logger, timeout time.Duration) *OpenAIValidator {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &OpenAIValidator{client: client, log: log.With("component", "OpenAIValidator"), timeout: timeout}
}

func (v *OpenAIValidator) Validate(ctx context.Context, candidates []scanner.Candidate) (map[string]string, error) {
	if len(candidates) == 0 {
		return map[string]string{}, nil
	}
	payload, err := json.MarshalIndent(Items(candidates), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode oracle payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	start := time.Now()
	text, err := v.client.GenerateText(ctx, systemPrompt, userPromptHeader+string(payload))
	if err != nil {
		if errors.Is(err, openai.ErrNoOutput) || errors.Is(err, openai.ErrRefused) {
			return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	out, err := ParseVerdicts(text, candidates)
	if err != nil {
		v.log.Warn("oracle reply rejected", "candidates", len(candidates), "error", err)
		return nil, err
	}
	v.log.Debug("oracle validated candidates",
		"candidates", len(candidates),
		"accepted", len(out),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
