package market

import (
	"fmt"
	"math"

	"github.com/andrescamacho/facsim-go/internal/domain/material"
)

// Bid offers material against one request
type Bid struct {
	request *Request
	offer   *material.Lot
	bidder  string
}

// NewBid validates and creates a bid
func NewBid(request *Request, offer *material.Lot, bidder string) (*Bid, error) {
	if request == nil || offer == nil {
		return nil, ErrInvalidBid
	}
	return &Bid{request: request, offer: offer, bidder: bidder}, nil
}

func (b *Bid) Request() *Request     { return b.request }
func (b *Bid) Offer() *material.Lot  { return b.offer }
func (b *Bid) Bidder() string        { return b.bidder }
func (b *Bid) Quantity() float64     { return b.offer.Quantity() }

// BidPortfolio groups the bids one facility makes for one commodity
type BidPortfolio struct {
	Bidder      string
	Commodity   string
	Bids        []*Bid
	Constraints []CapacityConstraint
}

// AddBid appends a bid to the portfolio
func (p *BidPortfolio) AddBid(bid *Bid) {
	p.Bids = append(p.Bids, bid)
}

// AddConstraint appends a capacity constraint to the portfolio
func (p *BidPortfolio) AddConstraint(c CapacityConstraint) {
	p.Constraints = append(p.Constraints, c)
}

// Capacity returns the tightest constraint, or +Inf when unconstrained
func (p *BidPortfolio) Capacity() float64 {
	return tightest(p.Constraints)
}

// Trade is a matched request/bid pair with the agreed amount
type Trade struct {
	Request *Request
	Bid     *Bid
	Amount  float64
}

// NewTrade validates and creates a trade
func NewTrade(request *Request, bid *Bid, amount float64) (Trade, error) {
	if request == nil {
		return Trade{}, fmt.Errorf("%w: trade without request", ErrInvalidRequest)
	}
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Trade{}, fmt.Errorf("%w: %v", ErrInvalidTradeAmount, amount)
	}
	return Trade{Request: request, Bid: bid, Amount: amount}, nil
}

// Commodity returns the commodity of the underlying request
func (t Trade) Commodity() string {
	return t.Request.Commodity()
}

// TradeResponse pairs a trade with the material that fulfils it
type TradeResponse struct {
	Trade Trade
	Lot   *material.Lot
}
