package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"dropwatch/internal/resilience"
)

const extractionInstruction = `Extract product data from the following retail product page HTML.
Respond with exactly one JSON object and nothing else, using this shape:
{"title": string or null, "brand": string or null, "current_price": number or null, "original_price": number or null, "image_url": string or null}
Prices must be numeric values only, no currency symbols. Use null for anything you cannot determine. Do not add commentary.`

// AIOptions parameterise the inference-service fallback.
type AIOptions struct {
	BaseURL      string
	APIKey       string
	Model        string
	Timeout      time.Duration
	MaxHTMLChars int
}

// AIStrategy submits a sanitized HTML excerpt to an inference service and
// validates the structured reply. The service's output is untrusted input and
// gets the same validation rigor as any scraped page.
type AIStrategy struct {
	opts    AIOptions
	client  *http.Client
	breaker *resilience.Breaker
	logger  zerolog.Logger
}

// NewAIStrategy constructs the strategy. The breaker guards the inference
// endpoint; pass nil to run unguarded (tests).
func NewAIStrategy(opts AIOptions, breaker *resilience.Breaker, logger zerolog.Logger) *AIStrategy {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.openai.com/v1"
	}
	if opts.MaxHTMLChars <= 0 {
		opts.MaxHTMLChars = 40000
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	return &AIStrategy{
		opts:    opts,
		client:  &http.Client{Timeout: timeout},
		breaker: breaker,
		logger:  logger.With().Str("component", "ai_strategy").Logger(),
	}
}

// Attempt runs one inference round-trip over the sanitized HTML.
func (a *AIStrategy) Attempt(ctx context.Context, html string) Result {
	excerpt := SanitizeHTML(html, a.opts.MaxHTMLChars)
	if excerpt == "" {
		return failure(StrategyAI, "page html empty after sanitizing")
	}

	var content string
	call := func(ctx context.Context) error {
		var callErr error
		content, callErr = a.complete(ctx, excerpt)
		return callErr
	}

	var err error
	if a.breaker != nil {
		err = a.breaker.Execute(ctx, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return failure(StrategyAI, fmt.Sprintf("inference call: %v", err))
	}

	extracted, parseErr := parseExtractionReply(content)
	if parseErr != nil {
		return failure(StrategyAI, fmt.Sprintf("inference reply: %v", parseErr))
	}

	return resultFromInference(extracted)
}

func (a *AIStrategy) complete(ctx context.Context, excerpt string) (string, error) {
	payload := chatRequest{
		Model: a.opts.Model,
		Messages: []chatMessage{
			{Role: "user", Content: extractionInstruction + "\n\n" + excerpt},
		},
		Temperature: 0,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	endpoint := a.opts.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if a.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.opts.APIKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	payloadBytes, err := readBody(resp)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("inference service returned status %d", resp.StatusCode)
	}

	var reply chatResponse
	if err := json.Unmarshal(payloadBytes, &reply); err != nil {
		return "", fmt.Errorf("decode inference response: %w", err)
	}
	if len(reply.Choices) == 0 {
		return "", errors.New("inference response has no choices")
	}
	return reply.Choices[0].Message.Content, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
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

type inferredProduct struct {
	Title         *string      `json:"title"`
	Brand         *string      `json:"brand"`
	CurrentPrice  *json.Number `json:"current_price"`
	OriginalPrice *json.Number `json:"original_price"`
	ImageURL      *string      `json:"image_url"`
	Error         *string      `json:"error"`
}

// parseExtractionReply accepts exactly one JSON object, tolerating only
// surrounding code-fence markers. Anything else is a failure.
func parseExtractionReply(content string) (inferredProduct, error) {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var extracted inferredProduct
	decoder := json.NewDecoder(strings.NewReader(trimmed))
	decoder.UseNumber()
	if err := decoder.Decode(&extracted); err != nil {
		return inferredProduct{}, fmt.Errorf("not a single JSON object: %w", err)
	}
	if decoder.More() {
		return inferredProduct{}, errors.New("trailing content after JSON object")
	}
	if extracted.Error != nil && *extracted.Error != "" {
		return inferredProduct{}, fmt.Errorf("service reported: %s", *extracted.Error)
	}
	return extracted, nil
}

func resultFromInference(extracted inferredProduct) Result {
	var current, original decimal.Decimal
	haveCurrent := false

	if extracted.CurrentPrice != nil {
		if parsed, err := decimal.NewFromString(extracted.CurrentPrice.String()); err == nil && parsed.GreaterThan(decimal.Zero) {
			current = parsed
			haveCurrent = true
		}
	}

	title := ""
	if extracted.Title != nil {
		title = strings.TrimSpace(*extracted.Title)
	}
	if title == "" && !haveCurrent {
		return failure(StrategyAI, "inference reply lacks both title and price")
	}

	result := Result{
		Model:    title,
		Category: guessCategory(title),
		InStock:  true,
		Success:  true,
		Strategy: StrategyAI,
	}
	if extracted.Brand != nil {
		result.Brand = strings.TrimSpace(*extracted.Brand)
	}
	if extracted.ImageURL != nil && strings.HasPrefix(*extracted.ImageURL, "http") {
		result.ImageURLs = []string{*extracted.ImageURL}
	}

	if extracted.OriginalPrice != nil {
		if parsed, err := decimal.NewFromString(extracted.OriginalPrice.String()); err == nil && parsed.GreaterThan(decimal.Zero) {
			original = parsed
		}
	}

	switch {
	case haveCurrent && original.GreaterThan(current):
		result.RetailPrice = original
		sale := current
		result.SalePrice = &sale
	case haveCurrent:
		result.RetailPrice = current
	}

	return result
}

var (
	scriptRe  = regexp.MustCompile(`(?is)<script\b.*?</script>`)
	styleRe   = regexp.MustCompile(`(?is)<style\b.*?</style>`)
	commentRe = regexp.MustCompile(`(?s)<!--.*?-->`)
	spaceRe   = regexp.MustCompile(`\s+`)
)

// SanitizeHTML strips script, style, and comment content, collapses
// whitespace, and truncates to maxChars to bound inference request size.
func SanitizeHTML(html string, maxChars int) string {
	cleaned := scriptRe.ReplaceAllString(html, " ")
	cleaned = styleRe.ReplaceAllString(cleaned, " ")
	cleaned = commentRe.ReplaceAllString(cleaned, " ")
	cleaned = spaceRe.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)

	if maxChars > 0 && len(cleaned) > maxChars {
		cleaned = cleaned[:maxChars]
	}
	return cleaned
}
