package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/quanterra/arbscan/internal/domain"
)

// ClobClient is the read-only REST client for the Polymarket CLOB API.
// This system never places orders; the client exposes orderbook reads and
// the fee-rate lookup only.
type ClobClient struct {
	baseURL    string
	httpClient *httpDoer
	now        func() time.Time
}

// NewClobClient creates a new CLOB REST client.
//
// baseURL is the CLOB API root, e.g. "https://clob.polymarket.com".
func NewClobClient(baseURL string, timeout time.Duration) *ClobClient {
	return &ClobClient{
		baseURL:    baseURL,
		httpClient: newHTTPDoer(timeout),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// GetBook fetches one token's orderbook and converts it to a domain
// snapshot with asks sorted best first.
func (c *ClobClient) GetBook(ctx context.Context, tokenID string) (domain.BookSnapshot, error) {
	params := url.Values{}
	params.Set("token_id", tokenID)

	body, err := c.httpClient.get(ctx, c.baseURL+"/book?"+params.Encode())
	if err != nil {
		return domain.BookSnapshot{}, fmt.Errorf("polymarket/clob: get book %s: %w", tokenID, err)
	}

	var book APIBook
	if err := json.Unmarshal(body, &book); err != nil {
		return domain.BookSnapshot{}, fmt.Errorf("polymarket/clob: decode book %s: %w", tokenID, err)
	}
	return book.ToDomainSnapshot(tokenID, c.now()), nil
}

// GetFeeRate reads the taker fee for a reference market and returns it as
// a fraction of notional. The CLOB reports fees in basis points on the
// market object; there is no global fee endpoint, so callers sample a
// market they trade and cache the result with a TTL.
func (c *ClobClient) GetFeeRate(ctx context.Context, conditionID string) (domain.FeeRate, error) {
	body, err := c.httpClient.get(ctx, c.baseURL+"/markets/"+url.PathEscape(conditionID))
	if err != nil {
		return domain.FeeRate{}, fmt.Errorf("polymarket/clob: get market %s: %w", conditionID, err)
	}

	var fees APIMarketFees
	if err := json.Unmarshal(body, &fees); err != nil {
		return domain.FeeRate{}, fmt.Errorf("polymarket/clob: decode market fees: %w", err)
	}

	return domain.FeeRate{
		Rate:      float64(fees.TakerBaseFee) / 10000,
		Source:    "clob:" + conditionID,
		FetchedAt: c.now(),
	}, nil
}
