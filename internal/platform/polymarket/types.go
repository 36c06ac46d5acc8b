// Package polymarket holds the REST clients for the Gamma (discovery) and
// CLOB (orderbook) APIs. Upstream field naming is inconsistent across
// endpoints and API versions; every alias is absorbed here so the rest of
// the codebase only ever sees domain types.
package polymarket

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/quanterra/arbscan/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so API
// responses work whether a flag is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// flexStringList unmarshals from a JSON array of strings or from a string
// containing a JSON-encoded array, e.g. "[\"123\",\"456\"]". Gamma sends
// both shapes depending on the endpoint.
type flexStringList []string

func (f *flexStringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*f = list
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*f = nil
		return nil
	}
	if err := json.Unmarshal([]byte(s), &list); err != nil {
		return err
	}
	*f = list
	return nil
}

// flexFloat unmarshals from a JSON number or a numeric string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		*f = flexFloat(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// APIEvent is an event as returned by the Gamma API. An event groups N
// binary markets whose outcomes are mutually exclusive.
type APIEvent struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	Slug         string      `json:"slug"`
	Active       flexBool    `json:"active"`
	Closed       flexBool    `json:"closed"`
	Markets      []APIMarket `json:"markets"`
	NegRiskCamel flexBool    `json:"negRisk"`
	NegRiskSnake flexBool    `json:"neg_risk"`
}

// NegRisk reports whether the event supports the negative-risk convert
// operation, regardless of which alias the API used for the flag.
func (e *APIEvent) NegRisk() bool {
	return bool(e.NegRiskCamel) || bool(e.NegRiskSnake)
}

// APIMarket is a market as returned by the Gamma API, with both camelCase
// and snake_case aliases for the fields that vary.
type APIMarket struct {
	ID                string        `json:"id"`
	Question          string        `json:"question"`
	ConditionID       string        `json:"conditionId"`
	ConditionIDSnake  string        `json:"condition_id"`
	Active            flexBool      `json:"active"`
	Closed            flexBool      `json:"closed"`
	Outcomes          flexStringList `json:"outcomes"`
	TokenIDsCamel     flexStringList `json:"clobTokenIds"`
	TokenIDsSnake     flexStringList `json:"clob_token_ids"`
	EnableOrderBook   flexBool      `json:"enableOrderBook"`
	EnableOrderBookSn flexBool      `json:"enable_order_book"`
	NegRiskCamel      flexBool      `json:"negRisk"`
	NegRiskSnake      flexBool      `json:"neg_risk"`
}

// TokenIDs returns the CLOB token IDs under whichever alias was present.
func (m *APIMarket) TokenIDs() []string {
	if len(m.TokenIDsCamel) > 0 {
		return m.TokenIDsCamel
	}
	return m.TokenIDsSnake
}

// Tradeable reports whether the market is open and has an orderbook.
func (m *APIMarket) Tradeable() bool {
	if bool(m.Closed) || !bool(m.Active) {
		return false
	}
	return bool(m.EnableOrderBook) || bool(m.EnableOrderBookSn)
}

// NegRisk reports the market-level convert flag under either alias.
func (m *APIMarket) NegRisk() bool {
	return bool(m.NegRiskCamel) || bool(m.NegRiskSnake)
}

// YesTokenID returns the token ID for the market's YES side. The CLOB
// token list is ordered [yes, no]; an empty string means the market
// carried no usable token list.
func (m *APIMarket) YesTokenID() string {
	ids := m.TokenIDs()
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}

// OutcomeLabel returns the market's candidate label: the first outcome
// string when present, otherwise the question text.
func (m *APIMarket) OutcomeLabel() string {
	if len(m.Outcomes) > 0 && m.Outcomes[0] != "" {
		return m.Outcomes[0]
	}
	return m.Question
}

// --------------------------------------------------------------------------
// CLOB API DTOs
// --------------------------------------------------------------------------

// APIBook is an orderbook as returned by the CLOB API. Prices and sizes
// arrive as strings.
type APIBook struct {
	Market    string     `json:"market"`
	AssetID   string     `json:"asset_id"`
	Bids      []APILevel `json:"bids"`
	Asks      []APILevel `json:"asks"`
	Timestamp string     `json:"timestamp"`
}

// APILevel is a single price level in the CLOB book response.
type APILevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// ToDomainSnapshot converts an APIBook into a domain.BookSnapshot with
// asks sorted best (lowest) first and best bid/ask populated. Levels that
// fail to parse are dropped.
func (b *APIBook) ToDomainSnapshot(tokenID string, now time.Time) domain.BookSnapshot {
	snap := domain.BookSnapshot{TokenID: tokenID}

	for _, lvl := range b.Asks {
		p, perr := strconv.ParseFloat(lvl.Price, 64)
		s, serr := strconv.ParseFloat(lvl.Size, 64)
		if perr != nil || serr != nil || p <= 0 || s <= 0 {
			continue
		}
		snap.Asks = append(snap.Asks, domain.PriceLevel{Price: p, Size: s})
		if snap.BestAsk == 0 || p < snap.BestAsk {
			snap.BestAsk = p
		}
	}
	for _, lvl := range b.Bids {
		p, perr := strconv.ParseFloat(lvl.Price, 64)
		s, serr := strconv.ParseFloat(lvl.Size, 64)
		if perr != nil || serr != nil || p <= 0 || s <= 0 {
			continue
		}
		snap.Bids = append(snap.Bids, domain.PriceLevel{Price: p, Size: s})
		if p > snap.BestBid {
			snap.BestBid = p
		}
	}

	sort.Slice(snap.Asks, func(i, j int) bool { return snap.Asks[i].Price < snap.Asks[j].Price })
	sort.Slice(snap.Bids, func(i, j int) bool { return snap.Bids[i].Price > snap.Bids[j].Price })

	if ts, err := strconv.ParseInt(b.Timestamp, 10, 64); err == nil {
		// CLOB timestamps are milliseconds since epoch.
		snap.Timestamp = time.UnixMilli(ts)
	} else if t, err := time.Parse(time.RFC3339, b.Timestamp); err == nil {
		snap.Timestamp = t
	} else {
		snap.Timestamp = now
	}

	return snap
}

// APIMarketFees is the fee section of a CLOB market response.
type APIMarketFees struct {
	MakerBaseFee flexFloat `json:"maker_base_fee"`
	TakerBaseFee flexFloat `json:"taker_base_fee"`
}
