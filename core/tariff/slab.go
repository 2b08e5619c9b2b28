package tariff

import "github.com/shopspring/decimal"

// SlabCharge is the portion of a bill falling in one slab
type SlabCharge struct {
	From   decimal.Decimal  `json:"from"`
	UpTo   *decimal.Decimal `json:"upto,omitempty"`
	Units  decimal.Decimal  `json:"units"`
	Rate   decimal.Decimal  `json:"rate"`
	Amount decimal.Decimal  `json:"amount"`

	// Overflow marks units past the last bounded slab, billed at that slab's rate
	Overflow bool `json:"overflow,omitempty"`
}

// SlabCharges splits units across slabs in ascending order. Units equal to a
// slab's bound stay in that slab. When units exceed the last bounded slab and
// there is no unbounded slab, the remainder is billed at the last rate and
// reported with overflow=true.
func SlabCharges(units decimal.Decimal, slabs []SlabLine) (charges []SlabCharge, overflow bool) {
	if !units.IsPositive() || len(slabs) == 0 {
		return nil, false
	}

	remaining := units
	previous := decimal.Zero

	for _, slab := range slabs {
		if !remaining.IsPositive() {
			break
		}

		if slab.Unbounded() {
			charges = append(charges, SlabCharge{
				From:   previous,
				Units:  remaining,
				Rate:   slab.Rate,
				Amount: remaining.Mul(slab.Rate),
			})
			remaining = decimal.Zero
			break
		}

		span := decimal.Min(remaining, slab.UpTo.Sub(previous))
		charges = append(charges, SlabCharge{
			From:   previous,
			UpTo:   slab.UpTo,
			Units:  span,
			Rate:   slab.Rate,
			Amount: span.Mul(slab.Rate),
		})
		remaining = remaining.Sub(span)
		previous = *slab.UpTo
	}

	if remaining.IsPositive() {
		last := slabs[len(slabs)-1]
		charges = append(charges, SlabCharge{
			From:     previous,
			Units:    remaining,
			Rate:     last.Rate,
			Amount:   remaining.Mul(last.Rate),
			Overflow: true,
		})
		overflow = true
	}
	return charges, overflow
}

// SlabAmount is the exact, unrounded slab bill for units
func SlabAmount(units decimal.Decimal, slabs []SlabLine) decimal.Decimal {
	charges, _ := SlabCharges(units, slabs)
	total := decimal.Zero
	for _, c := range charges {
		total = total.Add(c.Amount)
	}
	return total
}
