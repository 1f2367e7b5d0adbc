package accounting

import (
	"fmt"

	"github.com/SscSPs/finledger/internal/apperrors"
	"github.com/SscSPs/finledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CostBasis is the quantity and cost basis of an open position.
type CostBasis struct {
	Quantity    decimal.Decimal
	AverageCost decimal.Decimal
	TotalCost   decimal.Decimal
}

// RebuildCostBasis replays the trade history of one (account, symbol) key and
// returns the basis of the currently open position.
//
// trades must be in the order they were recorded, which is the order the
// oversell checks ran in. Trade dates are informational and may be back-dated,
// so they are never used for ordering.
//
// Average cost is the quantity-weighted mean price of the BUY trades since the
// position was last fully closed; fees are excluded. SELL trades reduce
// quantity but never change the average. A replay that ends flat returns a
// zero basis.
func RebuildCostBasis(trades []domain.Trade) CostBasis {
	held := decimal.Zero
	boughtQty := decimal.Zero
	boughtCost := decimal.Zero

	for _, t := range trades {
		switch t.Side {
		case domain.Buy:
			held = held.Add(t.Quantity)
			boughtQty = boughtQty.Add(t.Quantity)
			boughtCost = boughtCost.Add(t.Quantity.Mul(t.Price))
		case domain.Sell:
			held = held.Sub(t.Quantity)
		}
		if held.LessThanOrEqual(decimal.Zero) {
			// position closed; the next buy starts a fresh basis
			held = decimal.Zero
			boughtQty = decimal.Zero
			boughtCost = decimal.Zero
		}
	}

	if held.IsZero() || boughtQty.IsZero() {
		return CostBasis{Quantity: decimal.Zero, AverageCost: decimal.Zero, TotalCost: decimal.Zero}
	}

	avg := boughtCost.Div(boughtQty)
	return CostBasis{
		Quantity:    held,
		AverageCost: avg,
		TotalCost:   held.Mul(avg),
	}
}

// ReduceForSell applies a sell of qty to an open position. It returns the
// remaining quantity and whether the position is now closed. Selling more than
// is held fails with apperrors.ErrInsufficientPosition.
func ReduceForSell(held, qty decimal.Decimal) (decimal.Decimal, bool, error) {
	if qty.GreaterThan(held) {
		return held, false, fmt.Errorf("%w: requested %s, held %s", apperrors.ErrInsufficientPosition, qty.String(), held.String())
	}
	remaining := held.Sub(qty)
	return remaining, remaining.LessThanOrEqual(decimal.Zero), nil
}

// SumSignedEffects returns the balance implied by a set of transactions.
func SumSignedEffects(txns []domain.Transaction) decimal.Decimal {
	sum := decimal.Zero
	for i := range txns {
		sum = sum.Add(txns[i].SignedEffect())
	}
	return sum
}
