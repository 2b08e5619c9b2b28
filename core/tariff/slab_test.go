package tariff

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func bound(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

// tamilNaduSlabs mirrors the three-tier example: free to 100, 2.35 to 200, 4.70 above
func tamilNaduSlabs() []SlabLine {
	return []SlabLine{
		{UpTo: bound("100"), Rate: d("0")},
		{UpTo: bound("200"), Rate: d("2.35")},
		{Rate: d("4.70")},
	}
}

func TestSlabAmount(t *testing.T) {
	tests := []struct {
		name     string
		units    string
		slabs    []SlabLine
		expected string
		overflow bool
	}{
		{
			name:     "150 units spans free and second tier",
			units:    "150",
			slabs:    tamilNaduSlabs(),
			expected: "117.5",
		},
		{
			name:     "zero units bills nothing",
			units:    "0",
			slabs:    tamilNaduSlabs(),
			expected: "0",
		},
		{
			name:     "units past bounded tiers land in unbounded tier",
			units:    "250",
			slabs:    tamilNaduSlabs(),
			expected: "470", // 100*2.35 + 50*4.70
		},
		{
			name: "no unbounded tier bills remainder at last rate",
			units: "300",
			slabs: []SlabLine{
				{UpTo: bound("100"), Rate: d("1")},
				{UpTo: bound("200"), Rate: d("2")},
			},
			expected: "500", // 100*1 + 100*2 + 100*2
			overflow: true,
		},
		{
			name:     "fractional units",
			units:    "100.5",
			slabs:    tamilNaduSlabs(),
			expected: "1.175",
		},
		{
			name:     "no slabs bills nothing",
			units:    "42",
			slabs:    nil,
			expected: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			charges, overflow := SlabCharges(d(tt.units), tt.slabs)
			got := SlabAmount(d(tt.units), tt.slabs)

			if !got.Equal(d(tt.expected)) {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
			if overflow != tt.overflow {
				t.Errorf("expected overflow=%v, got %v", tt.overflow, overflow)
			}
			if overflow && !charges[len(charges)-1].Overflow {
				t.Errorf("last charge should be flagged as overflow")
			}
		})
	}
}

// TestSlabBoundaryStaysInSlab proves units equal to a bound never spill into the next tier
func TestSlabBoundaryStaysInSlab(t *testing.T) {
	charges, overflow := SlabCharges(d("200"), tamilNaduSlabs())

	if overflow {
		t.Fatal("200 units must not overflow")
	}
	if len(charges) != 2 {
		t.Fatalf("expected 2 charged slabs, got %d: %+v", len(charges), charges)
	}
	if !charges[1].Units.Equal(d("100")) {
		t.Errorf("second slab should carry 100 units, got %s", charges[1].Units)
	}
	if got := SlabAmount(d("200"), tamilNaduSlabs()); !got.Equal(d("235")) {
		t.Errorf("expected 235, got %s", got)
	}
}

// TestSlabChargesAdditive proves per-slab amounts cover the quantity exactly once
func TestSlabChargesAdditive(t *testing.T) {
	slabs := []SlabLine{
		{UpTo: bound("50"), Rate: d("1.10")},
		{UpTo: bound("150"), Rate: d("2.35")},
		{UpTo: bound("400"), Rate: d("4.70")},
		{UpTo: bound("1000"), Rate: d("10.50")},
	}

	for _, u := range []string{"0.01", "49.99", "50", "50.01", "150", "399.5", "400", "999", "1000", "1234.56"} {
		units := d(u)
		charges, _ := SlabCharges(units, slabs)

		billedUnits := decimal.Zero
		billed := decimal.Zero
		for i, c := range charges {
			billedUnits = billedUnits.Add(c.Units)
			billed = billed.Add(c.Amount)
			if i > 0 && !c.From.Equal(*charges[i-1].UpTo) {
				t.Errorf("units=%s: gap or overlap between slab %d and %d", u, i-1, i)
			}
		}

		if !billedUnits.Equal(units) {
			t.Errorf("units=%s: slabs carried %s units", u, billedUnits)
		}
		if total := SlabAmount(units, slabs); !billed.Equal(total) {
			t.Errorf("units=%s: sum of slabs %s != one-pass amount %s", u, billed, total)
		}
	}
}

// TestSlabAmountMonotonic checks that billing more units never costs less
func TestSlabAmountMonotonic(t *testing.T) {
	prev := decimal.Zero
	for units := int64(0); units <= 1200; units += 7 {
		got := SlabAmount(decimal.NewFromInt(units), tamilNaduSlabs())
		if got.LessThan(prev) {
			t.Fatalf("amount decreased at %d units: %s < %s", units, got, prev)
		}
		prev = got
	}
}
