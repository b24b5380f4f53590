package extraction

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"dropwatch/internal/catalog"
)

// Extractor is the public contract: one URL in, one normalized result out.
// Extraction failure is an expected outcome, never a fault.
type Extractor interface {
	Extract(ctx context.Context, rawURL string) Result
}

// Chain runs the ordered strategy fallback: structured endpoint, then
// catalog-driven locators, then the AI-assisted read of the fetched page.
type Chain struct {
	structured *StructuredStrategy
	fetcher    *PageFetcher
	locator    *LocatorStrategy
	ai         *AIStrategy
	logger     zerolog.Logger
}

// NewChain wires the strategies. ai may be nil when the fallback is disabled.
func NewChain(structured *StructuredStrategy, fetcher *PageFetcher, locator *LocatorStrategy, ai *AIStrategy, logger zerolog.Logger) *Chain {
	return &Chain{
		structured: structured,
		fetcher:    fetcher,
		locator:    locator,
		ai:         ai,
		logger:     logger.With().Str("component", "extraction_chain").Logger(),
	}
}

// Extract tries each applicable strategy in order; first success wins. When
// every attempted strategy fails, the result carries each strategy's error.
func (c *Chain) Extract(ctx context.Context, rawURL string) Result {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return failure("", fmt.Sprintf("invalid product url %q", rawURL))
	}

	var failures []string
	lastStrategy := ""

	structuredAttempted := false
	if c.structured != nil && c.structured.Applicable(u) {
		structuredAttempted = true
		result := c.structured.Attempt(ctx, u)
		if result.Success {
			return result
		}
		lastStrategy = StrategyStructured
		failures = append(failures, "structured: "+result.Error)
		c.logger.Debug().Str("url", rawURL).Str("error", result.Error).Msg("structured strategy failed")
	}

	// A structured platform that failed does not fall back to locators; the
	// two address different platforms. The AI read of the page is still fair game.
	recipe, hasRecipe := catalog.StoreRecipe{}, false
	if !structuredAttempted {
		recipe, hasRecipe = catalog.Lookup(u.Hostname())
	}

	needPage := hasRecipe || c.ai != nil
	if !needPage {
		if len(failures) == 0 {
			failures = append(failures, fmt.Sprintf("no extraction strategy applies to %s", u.Hostname()))
		}
		return failure(lastStrategy, strings.Join(failures, "; "))
	}

	html, status, fetchErr := c.fetcher.Fetch(ctx, rawURL)
	if fetchErr != nil {
		failures = append(failures, fmt.Sprintf("page fetch: %v", fetchErr))
		return failure(lastStrategy, strings.Join(failures, "; "))
	}
	if status < 200 || status >= 300 {
		// A frank fetch failure; re-reading the page cannot help, so the AI
		// fallback is off the table too.
		failures = append(failures, fmt.Sprintf("page returned status %d", status))
		return failure(lastStrategy, strings.Join(failures, "; "))
	}

	if hasRecipe {
		result := c.locator.Parse(html, recipe)
		if result.Success {
			return result
		}
		lastStrategy = StrategyLocator
		failures = append(failures, "locator: "+result.Error)
		c.logger.Debug().Str("url", rawURL).Str("error", result.Error).Msg("locator strategy failed")
	}

	if c.ai != nil {
		result := c.ai.Attempt(ctx, html)
		if result.Success {
			return result
		}
		lastStrategy = StrategyAI
		failures = append(failures, "ai: "+result.Error)
		c.logger.Debug().Str("url", rawURL).Str("error", result.Error).Msg("ai strategy failed")
	}

	if len(failures) == 0 {
		failures = append(failures, fmt.Sprintf("no extraction strategy applies to %s", u.Hostname()))
	}
	return failure(lastStrategy, strings.Join(failures, "; "))
}

var _ Extractor = (*Chain)(nil)
