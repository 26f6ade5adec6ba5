package models

import "math"

// RoundMoney rounds to two decimals, matching the NUMERIC(10,2) columns.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// SumItems returns the order total for the given lines.
func SumItems(items []*OrderItem) float64 {
	var total float64
	for _, item := range items {
		total += float64(item.Quantity) * item.Price
	}
	return RoundMoney(total)
}
