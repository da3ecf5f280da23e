package market

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/andrescamacho/facsim-go/internal/domain/material"
)

// Request asks the exchange for material of one commodity.
// The target lot is untracked: it only describes quantity and desired composition.
type Request struct {
	id         uuid.UUID
	requester  string
	commodity  string
	target     *material.Lot
	preference float64
}

// NewRequest validates and creates a request
func NewRequest(requester, commodity string, target *material.Lot, preference float64) (*Request, error) {
	if commodity == "" || target == nil {
		return nil, fmt.Errorf("%w: commodity and target are required", ErrInvalidRequest)
	}
	if preference < 0 || math.IsNaN(preference) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPreference, preference)
	}
	return &Request{
		id:         uuid.New(),
		requester:  requester,
		commodity:  commodity,
		target:     target,
		preference: preference,
	}, nil
}

func (r *Request) ID() uuid.UUID          { return r.id }
func (r *Request) Requester() string      { return r.requester }
func (r *Request) Commodity() string      { return r.commodity }
func (r *Request) Target() *material.Lot  { return r.target }
func (r *Request) Preference() float64    { return r.preference }
func (r *Request) Quantity() float64      { return r.target.Quantity() }

// CapacityConstraint caps the total quantity a portfolio may be traded
type CapacityConstraint struct {
	Capacity float64
}

// RequestPortfolio groups the requests one facility emits in a step
type RequestPortfolio struct {
	Requester   string
	Requests    []*Request
	Constraints []CapacityConstraint
}

// AddRequest appends a request to the portfolio
func (p *RequestPortfolio) AddRequest(req *Request) {
	p.Requests = append(p.Requests, req)
}

// AddConstraint appends a capacity constraint to the portfolio
func (p *RequestPortfolio) AddConstraint(c CapacityConstraint) {
	p.Constraints = append(p.Constraints, c)
}

// Capacity returns the tightest constraint, or +Inf when unconstrained
func (p *RequestPortfolio) Capacity() float64 {
	return tightest(p.Constraints)
}

func tightest(constraints []CapacityConstraint) float64 {
	capacity := math.Inf(1)
	for _, c := range constraints {
		capacity = math.Min(capacity, c.Capacity)
	}
	return capacity
}

// CommodityRequests indexes outstanding requests by commodity in first-seen order
type CommodityRequests struct {
	order []string
	byKey map[string][]*Request
}

// NewCommodityRequests creates an empty index
func NewCommodityRequests() *CommodityRequests {
	return &CommodityRequests{byKey: make(map[string][]*Request)}
}

// Add files a request under its commodity
func (c *CommodityRequests) Add(req *Request) {
	if _, ok := c.byKey[req.Commodity()]; !ok {
		c.order = append(c.order, req.Commodity())
	}
	c.byKey[req.Commodity()] = append(c.byKey[req.Commodity()], req)
}

// AddPortfolio files every request of a portfolio
func (c *CommodityRequests) AddPortfolio(p *RequestPortfolio) {
	for _, req := range p.Requests {
		c.Add(req)
	}
}

// For returns the requests filed under a commodity
func (c *CommodityRequests) For(commodity string) []*Request {
	return c.byKey[commodity]
}

// Commodities returns commodities in first-seen order
func (c *CommodityRequests) Commodities() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}
