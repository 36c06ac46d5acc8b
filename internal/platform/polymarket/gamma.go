package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/quanterra/arbscan/internal/domain"
)

const defaultPageSize = 100

// GammaClient is the REST client for the Polymarket Gamma API, used for
// event-group discovery.
type GammaClient struct {
	baseURL    string
	httpClient *httpDoer
	pageSize   int
	maxPages   int
}

// NewGammaClient creates a new Gamma API client.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
func NewGammaClient(baseURL string, timeout time.Duration) *GammaClient {
	return &GammaClient{
		baseURL:    baseURL,
		httpClient: newHTTPDoer(timeout),
		pageSize:   defaultPageSize,
		maxPages:   20,
	}
}

// ListEventGroups discovers open multi-outcome events and converts them to
// domain event groups. Events with fewer than two tradeable legs are
// filtered here; downstream code still re-checks, since the filter is a
// courtesy and not a contract.
func (g *GammaClient) ListEventGroups(ctx context.Context) ([]domain.EventGroup, error) {
	var groups []domain.EventGroup
	for page := 0; page < g.maxPages; page++ {
		events, err := g.getEvents(ctx, g.pageSize, page*g.pageSize)
		if err != nil {
			return nil, err
		}
		if len(events) == 0 {
			break
		}
		for i := range events {
			group, ok := eventToGroup(&events[i])
			if !ok {
				continue
			}
			groups = append(groups, group)
		}
		if len(events) < g.pageSize {
			break
		}
	}
	return groups, nil
}

// getEvents returns one page of open events.
func (g *GammaClient) getEvents(ctx context.Context, limit, offset int) ([]APIEvent, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	params.Set("active", "true")
	params.Set("closed", "false")

	body, err := g.httpClient.get(ctx, g.baseURL+"/events?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: get events: %w", err)
	}

	var events []APIEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("polymarket/gamma: decode events: %w", err)
	}
	return events, nil
}

// eventToGroup converts an APIEvent to a domain.EventGroup. Returns false
// for events that cannot form a multi-outcome group: closed, inactive, or
// fewer than two tradeable legs with token IDs.
func eventToGroup(e *APIEvent) (domain.EventGroup, bool) {
	if bool(e.Closed) || !bool(e.Active) {
		return domain.EventGroup{}, false
	}

	group := domain.EventGroup{
		ID:            e.ID,
		Title:         e.Title,
		ConvertActive: e.NegRisk(),
	}
	for i := range e.Markets {
		m := &e.Markets[i]
		if !m.Tradeable() {
			continue
		}
		tokenID := m.YesTokenID()
		if tokenID == "" {
			continue
		}
		group.Outcomes = append(group.Outcomes, domain.OutcomeToken{
			TokenID:  tokenID,
			MarketID: m.ID,
			Outcome:  m.OutcomeLabel(),
		})
	}
	if len(group.Outcomes) < 2 {
		return domain.EventGroup{}, false
	}
	return group, true
}
