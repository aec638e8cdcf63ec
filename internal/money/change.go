package money

// CalculateChange picks coins from available that add up to amount.
//
// Denominations are visited largest first and each one is used as many times
// as the remaining amount and its count allow, without backtracking. The
// result is the fewest coins for canonical coin systems, but a limited stock
// can make the scan miss a combination that exists: {25:1, 10:3} cannot make
// 30 because the 25 is taken first. Callers rely on that exact behavior.
//
// A zero amount always succeeds with an empty slice. Denominations with a
// non-positive value or count are ignored and available is not modified.
// ok is false when no change could be assembled.
func CalculateChange(amount int, available map[Denomination]int) (coins []Denomination, ok bool) {
	if amount == 0 {
		return []Denomination{}, true
	}
	if amount < 0 || len(available) == 0 {
		return nil, false
	}

	values := make([]Denomination, 0, len(available))
	for d, n := range available {
		if d > 0 && n > 0 {
			values = append(values, d)
		}
	}
	sortDescending(values)

	result := []Denomination{}
	remaining := amount
	for _, d := range values {
		n := min(available[d], remaining/int(d))
		for i := 0; i < n; i++ {
			result = append(result, d)
		}
		remaining -= n * int(d)
	}
	if remaining != 0 {
		return nil, false
	}
	return result, true
}
