package carteira

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const adviceRequestTimeout = 120 * time.Second

const crossingAdviceSystemPrompt = `You are a portfolio rebalancing assistant for a personal investment tracker.
The user follows a target-allocation strategy: each asset has an ideal percentage of a target portfolio value, and the app compares targets against actual open positions.

You will receive a JSON snapshot of the comparison: one row per asset with its code, class (stock, reit, etf or instrument), status (positioned, not_positioned or unwind_position), ideal percentage, current balance, profit percentage and the suggested whole-unit purchase count.

Output requirements:
- Respond with a pure JSON object, no markdown fences, no extra text.
- Fields: summary (string, 2-3 sentences), recommendations (array of {code, action, rationale}), disclaimer (string).
- action is one of: buy, hold, reduce, unwind.
- Every unwind_position row must receive an unwind or hold recommendation with a rationale.
- Never promise returns; the disclaimer must state this is not financial advice.`

// CrossingAdviceRequest defines the inputs for AI rebalancing advice.
type CrossingAdviceRequest struct {
	APIKey       string
	Model        string
	TargetValue  Amount
	CustomPrompt string
}

// CrossingAdviceRecommendation is one per-asset suggestion.
type CrossingAdviceRecommendation struct {
	Code      string `json:"code"`
	Action    string `json:"action"`
	Rationale string `json:"rationale"`
}

// CrossingAdviceResult is the structured response returned to clients.
type CrossingAdviceResult struct {
	GeneratedAt     string                         `json:"generated_at"`
	Model           string                         `json:"model"`
	Summary         string                         `json:"summary"`
	Recommendations []CrossingAdviceRecommendation `json:"recommendations"`
	Disclaimer      string                         `json:"disclaimer"`
}

type crossingAdviceSnapshotRow struct {
	Code             string  `json:"code"`
	Class            string  `json:"class"`
	Status           string  `json:"status"`
	IdealPercentage  Amount  `json:"ideal_percentage"`
	Balance          Amount  `json:"balance"`
	ProfitPercentage any     `json:"profit_percentage"`
	ToBuy            any     `json:"to_buy"`
	CustomPrompt     *string `json:"custom_prompt,omitempty"`
}

// GetCrossingAdvice asks a Gemini model for rebalancing commentary over the
// current crossing view. Requires full access, since the snapshot contains the
// premium fields.
func (c *Core) GetCrossingAdvice(ctx context.Context, req CrossingAdviceRequest) (*CrossingAdviceResult, error) {
	req.APIKey = strings.TrimSpace(req.APIKey)
	req.Model = strings.TrimSpace(req.Model)
	if req.APIKey == "" {
		return nil, NewError(ErrCodeInvalidInput, "API key is required")
	}
	if req.Model == "" {
		return nil, NewError(ErrCodeInvalidInput, "model is required")
	}
	if !c.entitlements.FullAccess() {
		return nil, NewError(ErrCodeValidation, "full access is required for crossing advice")
	}

	crossing, err := c.BuildCrossing(req.TargetValue)
	if err != nil {
		return nil, err
	}
	if len(crossing.Rows) == 0 {
		return nil, NewError(ErrCodeValidation, "no target allocations or positions to advise on")
	}

	userPrompt, err := buildCrossingAdvicePrompt(crossing, req.CustomPrompt)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, adviceRequestTimeout)
	defer cancel()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  req.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client failed: %w", err)
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: crossingAdviceSystemPrompt}},
		},
		Temperature:      genai.Ptr(float32(0.2)),
		MaxOutputTokens:  2048,
		ResponseMIMEType: "application/json",
	}

	response, err := client.Models.GenerateContent(ctx, req.Model, genai.Text(userPrompt), config)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content failed: %w", err)
	}
	content := strings.TrimSpace(response.Text())
	if content == "" {
		return nil, fmt.Errorf("ai response content is empty")
	}

	var parsed struct {
		Summary         string                         `json:"summary"`
		Recommendations []CrossingAdviceRecommendation `json:"recommendations"`
		Disclaimer      string                         `json:"disclaimer"`
	}
	if err := json.Unmarshal([]byte(cleanupModelJSON(content)), &parsed); err != nil {
		return nil, fmt.Errorf("model returned invalid JSON: %w", err)
	}

	model := strings.TrimSpace(response.ModelVersion)
	if model == "" {
		model = req.Model
	}
	return &CrossingAdviceResult{
		GeneratedAt:     c.now().UTC().Format(time.RFC3339),
		Model:           model,
		Summary:         parsed.Summary,
		Recommendations: parsed.Recommendations,
		Disclaimer:      parsed.Disclaimer,
	}, nil
}

func buildCrossingAdvicePrompt(crossing *Crossing, customPrompt string) (string, error) {
	snapshot := make([]crossingAdviceSnapshotRow, 0, len(crossing.Rows))
	for _, row := range crossing.Rows {
		snapshot = append(snapshot, crossingAdviceSnapshotRow{
			Code:             row.Code,
			Class:            row.Class,
			Status:           row.Status,
			IdealPercentage:  row.IdealPercentage,
			Balance:          row.Balance,
			ProfitPercentage: row.ProfitPercentage,
			ToBuy:            row.ToBuyFormatted,
		})
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("marshal crossing snapshot: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Analyze this target-vs-actual allocation snapshot and produce the JSON object described in your instructions:\n")
	sb.Write(payload)
	if trimmed := strings.TrimSpace(customPrompt); trimmed != "" {
		sb.WriteString("\n\nUser preference (must not override the risk disclaimer rules): ")
		sb.WriteString(trimmed)
	}
	return sb.String(), nil
}

// cleanupModelJSON strips markdown fences some models wrap around JSON output.
func cleanupModelJSON(content string) string {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
	}
	return strings.TrimSpace(trimmed)
}
