package contact

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/brooks-street/outreach-pipeline/internal/model"
	"github.com/brooks-street/outreach-pipeline/pkg/oracle"
	"github.com/brooks-street/outreach-pipeline/pkg/search"
)

// Contact source tags, in descending trust order. Generated contacts
// are never promoted over web-sourced ones no matter how complete
// they look.
const (
	SourceEmbedded  = "embedded"
	SourceTargeted  = "targeted_search"
	SourceListing   = "listing_site"
	SourceArea      = "area_search"
	SourceGenerated = "ai_generated"
)

// strategyConfidence is the 0-100 base confidence assigned to a
// candidate by the strategy that produced it, used to rank secondary
// candidates.
var strategyConfidence = map[string]int{
	SourceEmbedded:  90,
	SourceTargeted:  70,
	SourceListing:   60,
	SourceArea:      40,
	SourceGenerated: 20,
}

// strategy is one rung of the contact-discovery cascade. Each returns
// a possibly partial candidate; nil means the strategy found nothing.
type strategy struct {
	name string
	run  func(ctx context.Context, b *model.Building) (*model.ContactCandidate, error)
}

// Engine resolves an outreach contact for one enriched building by
// running discovery strategies in trust order, merging their partial
// answers field by field, and judging the merged result with the
// configured scorer.
type Engine struct {
	search          search.Client
	scorer          Scorer
	fallback        Scorer
	oracle          oracle.Client
	model           string
	maxTokens       int
	cache           Cache
	listingDomains  []string
	gatherSecondary bool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithSearch attaches a web search client for the search-based
// strategies.
func WithSearch(c search.Client) EngineOption {
	return func(e *Engine) { e.search = c }
}

// WithOracleFallback enables the last-resort generated-contact
// strategy.
func WithOracleFallback(c oracle.Client, model string, maxTokens int) EngineOption {
	return func(e *Engine) {
		e.oracle = c
		e.model = model
		e.maxTokens = maxTokens
	}
}

// WithCache attaches a resolution cache.
func WithCache(c Cache) EngineOption {
	return func(e *Engine) { e.cache = c }
}

// WithListingDomains sets the real-estate listing sites searched by
// the site-restricted strategy.
func WithListingDomains(domains []string) EngineOption {
	return func(e *Engine) { e.listingDomains = domains }
}

// WithSecondary controls whether secondary candidates are gathered
// alongside the primary contact.
func WithSecondary(gather bool) EngineOption {
	return func(e *Engine) { e.gatherSecondary = gather }
}

// NewEngine creates an Engine judging with scorer.
func NewEngine(scorer Scorer, opts ...EngineOption) *Engine {
	e := &Engine{
		scorer:          scorer,
		fallback:        RuleScorer{},
		gatherSecondary: true,
		maxTokens:       1024,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// strategies assembles the cascade in trust order for one building.
func (e *Engine) strategies() []strategy {
	strats := []strategy{{name: SourceEmbedded, run: e.fromEmbedded}}
	if e.search != nil {
		strats = append(strats,
			strategy{name: SourceTargeted, run: e.fromTargetedSearch},
			strategy{name: SourceListing, run: e.fromListingSites},
			strategy{name: SourceArea, run: e.fromAreaSearch},
		)
	}
	return strats
}

// Resolve finds the best outreach contact for a building. It always
// returns a contact record; when every strategy comes up empty the
// record is unverified with a zero-score judgment.
func (e *Engine) Resolve(ctx context.Context, b *model.Building) (*model.ResolvedContact, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(b.Address); ok {
			zap.L().Debug("contact cache hit", zap.String("address", b.Address))
			return cached, nil
		}
	}

	merged := model.ContactCandidate{}
	var secondary []model.ContactCandidate

	for _, strat := range e.strategies() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cand, err := strat.run(ctx, b)
		if err != nil {
			zap.L().Warn("contact strategy failed",
				zap.String("strategy", strat.name),
				zap.String("address", b.Address),
				zap.Error(err))
			continue
		}
		if cand == nil || cand.Empty() {
			continue
		}
		cand.Confidence = strategyConfidence[strat.name]
		if e.gatherSecondary {
			secondary = append(secondary, *cand)
		}
		merge(&merged, cand)
		if complete(merged) {
			break
		}
	}

	// Last resort: ask the oracle to guess. Only when the web
	// strategies produced no email at all, and the result keeps its
	// generated tag so it can never masquerade as sourced data.
	if merged.Email == "" && e.oracle != nil {
		cand, err := e.fromOracle(ctx, b)
		if err != nil {
			zap.L().Warn("generated-contact fallback failed",
				zap.String("address", b.Address),
				zap.Error(err))
		} else if cand != nil && !cand.Empty() {
			cand.Confidence = strategyConfidence[SourceGenerated]
			if e.gatherSecondary {
				secondary = append(secondary, *cand)
			}
			merge(&merged, cand)
		}
	}

	judgment := e.judge(ctx, b, merged)
	resolved := &model.ResolvedContact{
		ContactCandidate: merged,
		Score:            judgment.Score,
		Verified:         Verified(judgment.Score),
		Notes:            judgment.Notes,
		Flags:            judgment.Flags,
		Secondary:        secondary,
	}

	if e.cache != nil {
		e.cache.Set(b.Address, resolved)
	}
	return resolved, nil
}

// judge scores the merged candidate, falling back to the rule-based
// scorer when the primary judge is unavailable.
func (e *Engine) judge(ctx context.Context, b *model.Building, cand model.ContactCandidate) Judgment {
	if cand.Empty() {
		return Judgment{Score: 0, Notes: "no contact found", Flags: []string{"no candidates"}}
	}
	j, err := e.scorer.Score(ctx, b, cand)
	if err != nil {
		zap.L().Warn("contact scorer failed, using rule-based fallback",
			zap.String("address", b.Address),
			zap.Error(err))
		j, err = e.fallback.Score(ctx, b, cand)
		if err != nil {
			return Judgment{Score: 0, Notes: "scoring unavailable", Flags: []string{"unscored"}}
		}
		j.Flags = append(j.Flags, "scored offline")
	}
	return *j
}

// merge fills still-empty fields of dst from src. The first strategy
// to produce a field wins; later strategies never overwrite.
func merge(dst *model.ContactCandidate, src *model.ContactCandidate) {
	if dst.Email == "" {
		dst.Email = src.Email
	}
	if dst.Phone == "" {
		dst.Phone = src.Phone
	}
	if dst.Name == "" {
		dst.Name = src.Name
	}
	if dst.Title == "" {
		dst.Title = src.Title
	}
	if dst.Source == "" {
		dst.Source = src.Source
	}
	if dst.SourceURL == "" {
		dst.SourceURL = src.SourceURL
	}
}

func complete(c model.ContactCandidate) bool {
	return c.Email != "" && c.Phone != "" && c.Name != ""
}

// fromEmbedded uses contact fields the building already carries:
// the declared property manager and the building website. Zero cost,
// always tried first.
func (e *Engine) fromEmbedded(_ context.Context, b *model.Building) (*model.ContactCandidate, error) {
	cand := &model.ContactCandidate{
		Name:      b.Attributes.PropertyManager,
		SourceURL: b.Attributes.Website,
		Source:    SourceEmbedded,
	}
	if b.Attributes.PropertyManager != "" {
		cand.Title = "Property Manager"
	}
	if cand.Empty() {
		return nil, nil
	}
	return cand, nil
}

// fromTargetedSearch queries the web for this specific building's
// management contact.
func (e *Engine) fromTargetedSearch(ctx context.Context, b *model.Building) (*model.ContactCandidate, error) {
	query := fmt.Sprintf("%q property manager leasing contact email", b.Address)
	resp, err := e.search.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	return e.fromResults(b, resp.Results, SourceTargeted), nil
}

// fromListingSites restricts the search to known real-estate listing
// domains, one query per domain, stopping at the first hit that
// yields an email. Hits carry the matched domain in their source tag
// ("listing_site:apartments.com") so audits can tell the sites apart.
func (e *Engine) fromListingSites(ctx context.Context, b *model.Building) (*model.ContactCandidate, error) {
	query := strings.TrimSpace(b.Name + " " + b.Address + " contact")
	var best *model.ContactCandidate
	for _, domain := range e.listingDomains {
		resp, err := e.search.Search(ctx, query, search.WithSiteFilter(domain))
		if err != nil {
			zap.L().Debug("listing site search failed",
				zap.String("domain", domain),
				zap.Error(err))
			continue
		}
		cand := e.fromResults(b, resp.Results, SourceListing+":"+domain)
		if cand == nil {
			continue
		}
		if cand.Email != "" {
			return cand, nil
		}
		if best == nil {
			best = cand
		}
	}
	return best, nil
}

// fromAreaSearch widens the net to management companies active in the
// building's borough.
func (e *Engine) fromAreaSearch(ctx context.Context, b *model.Building) (*model.ContactCandidate, error) {
	area := ""
	if b.Standardized != nil {
		area = b.Standardized.Borough
	}
	if area == "" {
		area = b.Address
	}
	query := fmt.Sprintf("apartment property management company %s contact email", area)
	resp, err := e.search.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	return e.fromResults(b, resp.Results, SourceArea), nil
}

// fromResults extracts a candidate from a page of search results.
func (e *Engine) fromResults(b *model.Building, results []search.Result, source string) *model.ContactCandidate {
	if len(results) == 0 {
		return nil
	}

	var text strings.Builder
	sourceURL := results[0].URL
	for _, r := range results {
		text.WriteString(r.Title)
		text.WriteString("\n")
		text.WriteString(r.Description)
		text.WriteString("\n")
		text.WriteString(r.Content)
		text.WriteString("\n")
	}
	blob := text.String()

	cand := &model.ContactCandidate{
		Email:     PrioritizeEmails(ExtractEmails(blob), DomainOf(b.Attributes.Website)),
		Phone:     ExtractPhone(blob),
		Name:      ExtractName(blob),
		Title:     ExtractTitle(blob),
		Source:    source,
		SourceURL: sourceURL,
	}
	if cand.Empty() {
		return nil
	}
	return cand
}

const generateSystemPrompt = `You suggest the most likely outreach contact for a New York City apartment building when no contact could be found online. Respond with a valid JSON object with exactly these keys: {"email": "<most plausible contact email or empty string>", "name": "<most plausible contact name or empty string>", "title": "<role or empty string>"}. Prefer generic role mailboxes such as leasing@ on the management company's likely domain over invented personal addresses. Respond only with the JSON object, no other text.`

type generatedContact struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Title string `json:"title"`
}

// fromOracle asks the oracle for a plausible contact as a last
// resort.
func (e *Engine) fromOracle(ctx context.Context, b *model.Building) (*model.ContactCandidate, error) {
	var ans generatedContact
	resp, err := oracle.CompleteJSON(ctx, e.oracle, oracle.Request{
		Model:     e.model,
		MaxTokens: int64(e.maxTokens),
		System:    generateSystemPrompt,
		Prompt: fmt.Sprintf("Building: %s\nAddress: %s\nManagement company: %s",
			b.Name, b.Address, b.Attributes.ManagementCompany),
	}, &ans)
	if err != nil {
		return nil, err
	}
	resp.Usage.LogCost(resp.Model, "contact.generate")

	return &model.ContactCandidate{
		Email:  strings.ToLower(strings.TrimSpace(ans.Email)),
		Name:   strings.TrimSpace(ans.Name),
		Title:  strings.TrimSpace(ans.Title),
		Source: SourceGenerated,
	}, nil
}
