package domain

import "github.com/shopspring/decimal"

// SimpleTotal prices an order as the sum of its lines.
func SimpleTotal(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.PriceAtOrder.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}

// ComboTotal prices a set-menu order: the highest-priced line anchors the
// total at its unit price (one serving of the main dish), paid extras add
// price x quantity, and zero-priced substitutions add nothing.
func ComboTotal(lines []Line) decimal.Decimal {
	if len(lines) == 0 {
		return decimal.Zero
	}

	main := 0
	for i := 1; i < len(lines); i++ {
		if lines[i].PriceAtOrder.GreaterThan(lines[main].PriceAtOrder) {
			main = i
		}
	}

	total := lines[main].PriceAtOrder
	for i, l := range lines {
		if i == main || !l.PriceAtOrder.IsPositive() {
			continue
		}
		total = total.Add(l.PriceAtOrder.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}
