// Package classifier holds the language-model backed IExternalClassifier.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"product-filter/src/interfaces"
	"product-filter/src/logger"
	"product-filter/src/models"

	"golang.org/x/time/rate"
)

// Models that take max_completion_tokens instead of max_tokens.
var completionTokenModels = regexp.MustCompile(`(^o3|^o4|mini|nano)`)

var jsonArrayPattern = regexp.MustCompile(`(?s)\[.*\]`)

// -----------------------------------------------------------------------------

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model               string        `json:"model"`
	Messages            []chatMessage `json:"messages"`
	MaxTokens           int           `json:"max_tokens,omitempty"`
	MaxCompletionTokens int           `json:"max_completion_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// -----------------------------------------------------------------------------

// OpenAIClassifier asks a chat-completions endpoint whether listings match
// their query. One call per batch; a batch must share its query.
type OpenAIClassifier struct {
	cfg     models.MClassifierConfig
	network interfaces.INetworkManager
	limiter *rate.Limiter
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func NewOpenAIClassifier(cfg models.MClassifierConfig, network interfaces.INetworkManager, log *logger.Logger) *OpenAIClassifier {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	return &OpenAIClassifier{
		cfg:     cfg,
		network: network,
		limiter: rate.NewLimiter(limit, 1),
		Logger:  log,
	}
}

// -----------------------------------------------------------------------------

// Classify returns one verdict per item, in item order.
func (c *OpenAIClassifier) Classify(ctx context.Context, items []models.MClassifierItem, category string) ([]models.MClassifierVerdict, error) {
	if len(items) == 0 {
		return nil, nil
	}
	query := items[0].Query
	for _, it := range items[1:] {
		if it.Query != query {
			return nil, fmt.Errorf("batch mixes queries %q and %q", query, it.Query)
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if c.cfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(c.cfg.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	prompt, err := BuildPrompt(items, category, query)
	if err != nil {
		return nil, err
	}
	req := chatRequest{
		Model:    c.cfg.Model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}
	if completionTokenModels.MatchString(c.cfg.Model) {
		req.MaxCompletionTokens = c.cfg.MaxTokens
	} else {
		req.MaxTokens = c.cfg.MaxTokens
	}

	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	body, err := c.network.PostJSON(ctx, c.cfg.Endpoint, headers, req)
	if err != nil {
		return nil, fmt.Errorf("classifier request failed: %w", err)
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode classifier response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("classifier response has no choices")
	}

	verdicts, err := ParseVerdicts(resp.Choices[0].Message.Content)
	if err != nil {
		c.Logger.Error("Unparseable classifier answer for %q: %.200s", query, resp.Choices[0].Message.Content)
		return nil, err
	}
	c.Logger.Debug("Classifier answered %d verdicts for %q", len(verdicts), query)
	return align(items, verdicts)
}

// -----------------------------------------------------------------------------

// BuildPrompt renders the instruction for one batch.
func BuildPrompt(items []models.MClassifierItem, category, query string) (string, error) {
	payload, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", err
	}

	var lines strings.Builder
	for _, it := range items {
		fmt.Fprintf(&lines, "Listing: %q, Query: %q\n", it.Name, it.Query)
	}

	return fmt.Sprintf(`You check marketplace listings. Decide for every listing below whether it belongs to the category %q and is exactly the product of the query %q.

%s
Rules:
1. A listing is valid only if it belongs to the category %q and its name contains an exact match of the query (%s).
2. If the name mentions a different model, series or series-model combination, the listing is invalid.
3. Accessories (cable, stand, fan, case, sticker, bag, mesh, cooler, adapter, mount, dust filter, displayport, hdmi, usb-c, and their Russian equivalents) are invalid.
4. Do not assume anything and do not use outside knowledge; judge only the name and the query.
5. Answer with a JSON array only: [{"id": string, "isValid": boolean, "reason": string}]. Explain the reason when isValid is false, leave it empty otherwise. No text before or after the array.

%s
`, category, query, lines.String(), category, query, payload), nil
}

// -----------------------------------------------------------------------------

// ParseVerdicts decodes the answer, falling back to the first JSON array
// embedded in surrounding text.
func ParseVerdicts(content string) ([]models.MClassifierVerdict, error) {
	var out []models.MClassifierVerdict
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &out); err == nil {
		return out, nil
	}
	match := jsonArrayPattern.FindString(content)
	if match == "" {
		return nil, fmt.Errorf("classifier answer contains no JSON array")
	}
	if err := json.Unmarshal([]byte(match), &out); err != nil {
		return nil, fmt.Errorf("failed to parse classifier answer: %w", err)
	}
	return out, nil
}

// align orders verdicts like items. Missing or extra ids fail the batch.
func align(items []models.MClassifierItem, verdicts []models.MClassifierVerdict) ([]models.MClassifierVerdict, error) {
	if len(verdicts) != len(items) {
		return nil, fmt.Errorf("classifier returned %d verdicts for %d items", len(verdicts), len(items))
	}
	byID := make(map[string]models.MClassifierVerdict, len(verdicts))
	for _, v := range verdicts {
		byID[v.ID] = v
	}
	out := make([]models.MClassifierVerdict, len(items))
	for i, it := range items {
		v, ok := byID[it.ID]
		if !ok {
			return nil, fmt.Errorf("classifier returned no verdict for id %q", it.ID)
		}
		out[i] = v
	}
	return out, nil
}
