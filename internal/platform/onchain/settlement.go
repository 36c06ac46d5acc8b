// Package onchain estimates the cost of the CTF convert operation. The
// Conditional Token Framework's mergePositions() turns a complete set of
// winning NO shares back into collateral; this system never sends that
// transaction, it only prices what sending it would cost.
package onchain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
)

const (
	// Conservative upper bound for a mergePositions call on Polygon.
	mergeGasLimit = uint64(200_000)

	// POL price fallback (USD) when no quote is available.
	polPriceFallbackUSD = 0.12

	gasPriceRefreshInterval = 5 * time.Minute
	polPriceRefreshInterval = 15 * time.Minute

	polPriceURL = "https://api.coingecko.com/api/v3/simple/price?ids=polygon-ecosystem-token&vs_currencies=usd"
)

// SettlementEstimator prices the convert operation from live Polygon gas
// prices and a POL/USD quote, both cached with a refresh interval so one
// scan cycle never issues more than one RPC per refresh window.
type SettlementEstimator struct {
	client     *ethclient.Client
	httpClient *http.Client
	logger     *slog.Logger

	mu           sync.RWMutex
	cachedGasWei *big.Int
	gasUpdatedAt time.Time
	cachedPOL    float64
	polUpdatedAt time.Time
}

// New dials the Polygon RPC endpoint and returns a SettlementEstimator.
func New(rpcURL string, logger *slog.Logger) (*SettlementEstimator, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("onchain: dial rpc %s: %w", rpcURL, err)
	}
	return &SettlementEstimator{
		client:     client,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.With(slog.String("component", "settlement")),
	}, nil
}

// Close releases the RPC connection.
func (e *SettlementEstimator) Close() {
	e.client.Close()
}

// ConvertCostFraction returns the estimated convert cost as a fraction of
// the given notional. The cost in USD is gasPrice × gasLimit × POL/USD;
// dividing by notional puts it in the same unit as the edge terms.
func (e *SettlementEstimator) ConvertCostFraction(ctx context.Context, notional float64) (float64, error) {
	if notional <= 0 {
		return 0, fmt.Errorf("onchain: non-positive notional %f", notional)
	}

	gasPrice, err := e.gasPrice(ctx)
	if err != nil {
		return 0, err
	}

	costWei := new(big.Float).SetInt(new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(mergeGasLimit)))
	costPOL, _ := new(big.Float).Quo(costWei, big.NewFloat(1e18)).Float64()
	costUSD := costPOL * e.polPriceUSD(ctx)

	return costUSD / notional, nil
}

// gasPrice returns the cached suggested gas price, refreshing from the RPC
// when stale. A 10% buffer matches what an actual sender would pay for
// timely inclusion.
func (e *SettlementEstimator) gasPrice(ctx context.Context) (*big.Int, error) {
	e.mu.RLock()
	cached := e.cachedGasWei
	updatedAt := e.gasUpdatedAt
	e.mu.RUnlock()

	if cached != nil && time.Since(updatedAt) < gasPriceRefreshInterval {
		return cached, nil
	}

	price, err := e.client.SuggestGasPrice(ctx)
	if err != nil {
		if cached != nil {
			return cached, nil
		}
		return nil, fmt.Errorf("onchain: suggest gas price: %w", err)
	}

	buffered := new(big.Int).Mul(price, big.NewInt(11))
	buffered.Div(buffered, big.NewInt(10))

	e.mu.Lock()
	e.cachedGasWei = buffered
	e.gasUpdatedAt = time.Now()
	e.mu.Unlock()

	return buffered, nil
}

// polPriceUSD returns the cached POL price, refreshing when stale and
// falling back to the last known or a constant when the quote fails.
func (e *SettlementEstimator) polPriceUSD(ctx context.Context) float64 {
	e.mu.RLock()
	price := e.cachedPOL
	updatedAt := e.polUpdatedAt
	e.mu.RUnlock()

	if price > 0 && time.Since(updatedAt) < polPriceRefreshInterval {
		return price
	}

	fetched, err := e.fetchPOLPrice(ctx)
	if err != nil {
		e.logger.WarnContext(ctx, "POL price fetch failed, using fallback", slog.String("error", err.Error()))
		if price > 0 {
			return price
		}
		return polPriceFallbackUSD
	}

	e.mu.Lock()
	e.cachedPOL = fetched
	e.polUpdatedAt = time.Now()
	e.mu.Unlock()

	return fetched
}

// fetchPOLPrice queries CoinGecko for the current POL/USD price.
func (e *SettlementEstimator) fetchPOLPrice(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, polPriceURL, nil)
	if err != nil {
		return 0, err
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("coingecko status %d: %s", resp.StatusCode, body)
	}

	var data map[string]map[string]float64
	if err := json.Unmarshal(body, &data); err != nil {
		return 0, err
	}

	price, ok := data["polygon-ecosystem-token"]["usd"]
	if !ok || price <= 0 {
		return 0, fmt.Errorf("POL price not found in response")
	}
	return price, nil
}
