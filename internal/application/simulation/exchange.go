package simulation

import (
	"context"
	"fmt"
	"math"

	"github.com/andrescamacho/facsim-go/internal/application/common"
	"github.com/andrescamacho/facsim-go/internal/domain/market"
	"github.com/andrescamacho/facsim-go/internal/domain/material"
	"github.com/andrescamacho/facsim-go/internal/domain/recipe"
	"github.com/andrescamacho/facsim-go/internal/domain/shared"
	"github.com/andrescamacho/facsim-go/internal/domain/simulation"
)

// exchangeID is the requester/bidder name the scripted exchange trades under
const exchangeID = "exchange"

// ScriptedExchange replays configured deliveries and withdrawals through the
// four trader calls. It does not clear a market: each delivery is matched to
// the first request for its commodity and each withdrawal takes whatever the
// facility bids, both capped by the portfolio constraints.
type ScriptedExchange struct {
	recipes     recipe.Book
	deliveries  map[int][]simulation.Delivery
	withdrawals map[int][]simulation.Withdrawal
	withdrawn   map[string]float64
}

// NewScriptedExchange indexes the feeds by step
func NewScriptedExchange(recipes recipe.Book, deliveries []simulation.Delivery, withdrawals []simulation.Withdrawal) *ScriptedExchange {
	x := &ScriptedExchange{
		recipes:     recipes,
		deliveries:  make(map[int][]simulation.Delivery),
		withdrawals: make(map[int][]simulation.Withdrawal),
		withdrawn:   make(map[string]float64),
	}
	for _, d := range deliveries {
		x.deliveries[d.Time] = append(x.deliveries[d.Time], d)
	}
	for _, w := range withdrawals {
		x.withdrawals[w.Time] = append(x.withdrawals[w.Time], w)
	}
	return x
}

// Withdrawn returns the total quantity shipped out of the simulation per commodity
func (x *ScriptedExchange) Withdrawn() map[string]float64 {
	out := make(map[string]float64, len(x.withdrawn))
	for k, v := range x.withdrawn {
		out[k] = v
	}
	return out
}

// Supply asks the trader for its requests and answers them with the step's deliveries
func (x *ScriptedExchange) Supply(ctx context.Context, t int, trader market.Trader) ([]market.TradeResponse, error) {
	logger := common.LoggerFromContext(ctx)

	var due []simulation.Delivery
	for _, d := range x.deliveries[t] {
		if d.Facility == trader.ID() {
			due = append(due, d)
		}
	}

	portfolios, err := trader.Requests(ctx)
	if err != nil {
		return nil, fmt.Errorf("requests from %s: %w", trader.ID(), err)
	}
	if len(due) == 0 {
		return nil, nil
	}

	remaining := make(map[*market.RequestPortfolio]float64, len(portfolios))
	for _, p := range portfolios {
		remaining[p] = p.Capacity()
	}

	var responses []market.TradeResponse
	for _, d := range due {
		portfolio, req := firstRequest(portfolios, d.Commodity)
		if req == nil {
			logger.Log("INFO", "Delivery not requested", map[string]interface{}{
				"facility":  d.Facility,
				"commodity": d.Commodity,
				"quantity":  d.Quantity,
				"time":      t,
			})
			continue
		}
		amount := math.Min(d.Quantity, math.Min(req.Quantity(), remaining[portfolio]))
		if !shared.IsPositive(amount) {
			continue
		}
		comp, err := x.recipes.Composition(d.Recipe)
		if err != nil {
			return nil, err
		}
		lot, err := material.NewLot(amount, comp, d.Commodity)
		if err != nil {
			return nil, err
		}
		trade, err := market.NewTrade(req, nil, amount)
		if err != nil {
			return nil, err
		}
		remaining[portfolio] -= amount
		responses = append(responses, market.TradeResponse{Trade: trade, Lot: lot})
		if amount < d.Quantity-shared.Epsilon {
			logger.Log("INFO", "Delivery capped by facility request", map[string]interface{}{
				"facility":  d.Facility,
				"commodity": d.Commodity,
				"offered":   d.Quantity,
				"accepted":  amount,
			})
		}
	}

	if len(responses) == 0 {
		return nil, nil
	}
	if err := trader.AcceptTrades(ctx, responses); err != nil {
		return nil, fmt.Errorf("accept trades at %s: %w", trader.ID(), err)
	}
	return responses, nil
}

// Demand files the step's withdrawals as requests, takes the trader's bids and
// has it fulfil the resulting trades.
func (x *ScriptedExchange) Demand(ctx context.Context, t int, trader market.Trader) ([]market.TradeResponse, error) {
	requests := market.NewCommodityRequests()
	wanted := make(map[*market.Request]float64)
	for _, w := range x.withdrawals[t] {
		if w.Facility != trader.ID() {
			continue
		}
		comp, err := x.recipes.Composition(w.Recipe)
		if err != nil {
			return nil, err
		}
		target, err := material.NewLot(w.Quantity, comp, w.Commodity)
		if err != nil {
			return nil, err
		}
		req, err := market.NewRequest(exchangeID, w.Commodity, target, 1)
		if err != nil {
			return nil, err
		}
		requests.Add(req)
		wanted[req] = w.Quantity
	}
	if len(wanted) == 0 {
		return nil, nil
	}

	portfolios, err := trader.Bids(ctx, requests)
	if err != nil {
		return nil, fmt.Errorf("bids from %s: %w", trader.ID(), err)
	}

	var trades []market.Trade
	for _, p := range portfolios {
		capacity := p.Capacity()
		for _, bid := range p.Bids {
			amount := math.Min(bid.Quantity(), math.Min(capacity, wanted[bid.Request()]))
			if !shared.IsPositive(amount) {
				continue
			}
			trade, err := market.NewTrade(bid.Request(), bid, amount)
			if err != nil {
				return nil, err
			}
			capacity -= amount
			wanted[bid.Request()] -= amount
			trades = append(trades, trade)
		}
	}
	if len(trades) == 0 {
		return nil, nil
	}

	responses, err := trader.FulfillTrades(ctx, trades)
	if err != nil {
		return nil, fmt.Errorf("fulfill trades at %s: %w", trader.ID(), err)
	}
	for _, resp := range responses {
		x.withdrawn[resp.Trade.Commodity()] += resp.Lot.Quantity()
	}
	return responses, nil
}

func firstRequest(portfolios []*market.RequestPortfolio, commodity string) (*market.RequestPortfolio, *market.Request) {
	for _, p := range portfolios {
		for _, req := range p.Requests {
			if req.Commodity() == commodity {
				return p, req
			}
		}
	}
	return nil, nil
}
