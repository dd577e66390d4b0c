// Package market reads the per-network market metadata files and selects
// the market whose address gets indexed.
package market

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/itchyny/gojq"
)

// DefaultQuery selects the first market in the file.
const DefaultQuery = ".[0]"

// ErrNoMarket means the query matched nothing.
var ErrNoMarket = errors.New("no market selected")

// Market is one entry of a markets file.
type Market struct {
	Address     string `json:"market"`
	BaseTicker  string `json:"base_ticker"`
	QuoteTicker string `json:"quote_ticker"`
}

// Name returns the market's pair, e.g. "SOL-USDC".
func (m Market) Name() string {
	return m.BaseTicker + "-" + m.QuoteTicker
}

// Load reads the markets file at path and selects one market with query.
func Load(path, query string) (*Market, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read markets file: %w", err)
	}
	return Select(data, query)
}

// Select evaluates a jq query against a markets document and returns the
// first result. The result must be an object with a valid market address.
func Select(data []byte, query string) (*Market, error) {
	if query == "" {
		query = DefaultQuery
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse markets file: %w", err)
	}

	parsed, err := gojq.Parse(query)
	if err != nil {
		return nil, fmt.Errorf("failed to parse market query %q: %w", query, err)
	}
	code, err := gojq.Compile(parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to compile market query %q: %w", query, err)
	}

	iter := code.Run(doc)
	v, ok := iter.Next()
	if !ok || v == nil {
		return nil, fmt.Errorf("%w: query %q", ErrNoMarket, query)
	}
	if err, isErr := v.(error); isErr {
		return nil, fmt.Errorf("market query %q failed: %w", query, err)
	}

	// Round-trip through JSON to map the jq value onto Market.
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode selected market: %w", err)
	}
	var m Market
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("selected value is not a market object: %w", err)
	}

	if _, err := solana.PublicKeyFromBase58(m.Address); err != nil {
		return nil, fmt.Errorf("market %s has invalid address %q: %w", m.Name(), m.Address, err)
	}

	return &m, nil
}

// List returns every market in the file at path.
func List(path string) ([]Market, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read markets file: %w", err)
	}
	var markets []Market
	if err := json.Unmarshal(data, &markets); err != nil {
		return nil, fmt.Errorf("failed to parse markets file: %w", err)
	}
	return markets, nil
}

// Target returns the market to index: the override address when set,
// otherwise the market query selects from the file at path.
func Target(path, query, override string) (*Market, error) {
	if override == "" {
		return Load(path, query)
	}
	if _, err := solana.PublicKeyFromBase58(override); err != nil {
		return nil, fmt.Errorf("invalid market address %q: %w", override, err)
	}
	m := &Market{Address: override}
	// Keep the tickers when the override is a known market.
	if markets, err := List(path); err == nil {
		for _, known := range markets {
			if known.Address == override {
				*m = known
				break
			}
		}
	}
	return m, nil
}
