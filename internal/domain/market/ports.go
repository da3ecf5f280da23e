package market

import "context"

// Trader is the surface a facility exposes to an exchange. The facility never
// initiates contact; the exchange drives all four calls.
type Trader interface {
	ID() string
	Requests(ctx context.Context) ([]*RequestPortfolio, error)
	AcceptTrades(ctx context.Context, responses []TradeResponse) error
	Bids(ctx context.Context, requests *CommodityRequests) ([]*BidPortfolio, error)
	FulfillTrades(ctx context.Context, trades []Trade) ([]TradeResponse, error)
}
