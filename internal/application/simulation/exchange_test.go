package simulation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appsim "github.com/andrescamacho/facsim-go/internal/application/simulation"
	"github.com/andrescamacho/facsim-go/internal/domain/market"
	"github.com/andrescamacho/facsim-go/internal/domain/material"
	"github.com/andrescamacho/facsim-go/internal/domain/recipe"
	"github.com/andrescamacho/facsim-go/internal/domain/shared"
	"github.com/andrescamacho/facsim-go/internal/domain/simulation"
)

// stubTrader requests a fixed quantity of one commodity under one constraint
// and bids whatever it holds.
type stubTrader struct {
	id        string
	commodity string
	request   float64
	capacity  float64
	holding   float64
	accepted  []market.TradeResponse
	fulfilled []market.Trade
}

func (s *stubTrader) ID() string { return s.id }

func (s *stubTrader) Requests(ctx context.Context) ([]*market.RequestPortfolio, error) {
	target, err := material.NewLot(s.request, material.MustComposition(map[material.Nuclide]float64{92238: 1}), s.commodity)
	if err != nil {
		return nil, err
	}
	req, err := market.NewRequest(s.id, s.commodity, target, 1)
	if err != nil {
		return nil, err
	}
	p := &market.RequestPortfolio{Requester: s.id}
	p.AddRequest(req)
	p.AddConstraint(market.CapacityConstraint{Capacity: s.capacity})
	return []*market.RequestPortfolio{p}, nil
}

func (s *stubTrader) AcceptTrades(ctx context.Context, responses []market.TradeResponse) error {
	s.accepted = append(s.accepted, responses...)
	return nil
}

func (s *stubTrader) Bids(ctx context.Context, requests *market.CommodityRequests) ([]*market.BidPortfolio, error) {
	p := &market.BidPortfolio{Bidder: s.id}
	for _, req := range requests.For(s.commodity) {
		offer, err := material.NewLot(s.holding, req.Target().Composition(), s.commodity)
		if err != nil {
			return nil, err
		}
		bid, err := market.NewBid(req, offer, s.id)
		if err != nil {
			return nil, err
		}
		p.AddBid(bid)
	}
	p.AddConstraint(market.CapacityConstraint{Capacity: s.capacity})
	return []*market.BidPortfolio{p}, nil
}

func (s *stubTrader) FulfillTrades(ctx context.Context, trades []market.Trade) ([]market.TradeResponse, error) {
	s.fulfilled = append(s.fulfilled, trades...)
	var out []market.TradeResponse
	for _, tr := range trades {
		lot, err := material.NewLot(tr.Amount, material.MustComposition(map[material.Nuclide]float64{92238: 1}), tr.Commodity())
		if err != nil {
			return nil, err
		}
		out = append(out, market.TradeResponse{Trade: tr, Lot: lot})
	}
	return out, nil
}

func uraniumBook(t *testing.T) *recipe.Registry {
	t.Helper()
	reg := recipe.NewRegistry()
	require.NoError(t, reg.Add("u", material.MustComposition(map[material.Nuclide]float64{92238: 1})))
	return reg
}

func TestScriptedExchange_SupplyCapsDeliveryByRequestAndCapacity(t *testing.T) {
	// Arrange
	trader := &stubTrader{id: "f", commodity: "feed", request: 8, capacity: 6}
	x := appsim.NewScriptedExchange(uraniumBook(t), []simulation.Delivery{
		{Time: 0, Facility: "f", Commodity: "feed", Recipe: "u", Quantity: 10},
	}, nil)

	// Act
	responses, err := x.Supply(context.Background(), 0, trader)

	// Assert
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.InDelta(t, 6.0, responses[0].Trade.Amount, shared.Epsilon)
	assert.InDelta(t, 6.0, responses[0].Lot.Quantity(), shared.Epsilon)
	assert.Len(t, trader.accepted, 1)
}

func TestScriptedExchange_SupplySkipsUnrequestedCommodity(t *testing.T) {
	trader := &stubTrader{id: "f", commodity: "feed", request: 8, capacity: 8}
	x := appsim.NewScriptedExchange(uraniumBook(t), []simulation.Delivery{
		{Time: 0, Facility: "f", Commodity: "other", Recipe: "u", Quantity: 3},
		{Time: 1, Facility: "f", Commodity: "feed", Recipe: "u", Quantity: 3},
	}, nil)

	responses, err := x.Supply(context.Background(), 0, trader)

	require.NoError(t, err)
	assert.Empty(t, responses)
	assert.Empty(t, trader.accepted, "AcceptTrades is not called without trades")
}

func TestScriptedExchange_SupplyIgnoresOtherFacilities(t *testing.T) {
	trader := &stubTrader{id: "f", commodity: "feed", request: 8, capacity: 8}
	x := appsim.NewScriptedExchange(uraniumBook(t), []simulation.Delivery{
		{Time: 0, Facility: "g", Commodity: "feed", Recipe: "u", Quantity: 3},
	}, nil)

	responses, err := x.Supply(context.Background(), 0, trader)

	require.NoError(t, err)
	assert.Empty(t, responses)
}

func TestScriptedExchange_DemandTalliesWithdrawn(t *testing.T) {
	// Arrange
	trader := &stubTrader{id: "f", commodity: "product", holding: 4, capacity: 10}
	x := appsim.NewScriptedExchange(uraniumBook(t), nil, []simulation.Withdrawal{
		{Time: 2, Facility: "f", Commodity: "product", Recipe: "u", Quantity: 7},
	})

	// Act
	none, err := x.Demand(context.Background(), 1, trader)
	require.NoError(t, err)
	responses, err := x.Demand(context.Background(), 2, trader)

	// Assert
	require.NoError(t, err)
	assert.Empty(t, none)
	require.Len(t, responses, 1)
	assert.InDelta(t, 4.0, responses[0].Trade.Amount, shared.Epsilon, "bounded by what the facility bids")
	assert.Equal(t, "exchange", trader.fulfilled[0].Request.Requester())
	assert.InDelta(t, 4.0, x.Withdrawn()["product"], shared.Epsilon)
}

func TestScriptedExchange_DemandRespectsBidCapacity(t *testing.T) {
	trader := &stubTrader{id: "f", commodity: "product", holding: 9, capacity: 2.5}
	x := appsim.NewScriptedExchange(uraniumBook(t), nil, []simulation.Withdrawal{
		{Time: 0, Facility: "f", Commodity: "product", Recipe: "u", Quantity: 7},
	})

	responses, err := x.Demand(context.Background(), 0, trader)

	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.InDelta(t, 2.5, responses[0].Trade.Amount, shared.Epsilon)
}
