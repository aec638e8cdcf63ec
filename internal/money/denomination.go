// Package money holds the coin value types, the change calculator, and the
// coin stock ledger of the machine.
package money

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Denomination is a coin face value in minor currency units (cents).
type Denomination int

// Coin describes a legal denomination and how it is displayed.
type Coin struct {
	FaceValue Denomination `json:"face_value"`
	Label     string       `json:"label"`
	Asset     string       `json:"asset"`
}

var coinTable = map[Denomination]Coin{
	200: {FaceValue: 200, Label: "2 euros", Asset: "asset/img/2_euros.png"},
	100: {FaceValue: 100, Label: "1 euro", Asset: "asset/img/1_euro.png"},
	50:  {FaceValue: 50, Label: "50 centimes", Asset: "asset/img/50_centimes.png"},
	20:  {FaceValue: 20, Label: "20 centimes", Asset: "asset/img/20_centimes.png"},
	10:  {FaceValue: 10, Label: "10 centimes", Asset: "asset/img/10_centimes.png"},
	5:   {FaceValue: 5, Label: "5 centimes", Asset: "asset/img/5_centimes.png"},
	2:   {FaceValue: 2, Label: "2 centimes", Asset: "asset/img/2_centimes.png"},
	1:   {FaceValue: 1, Label: "1 centime", Asset: "asset/img/1_centime.png"},
}

// Lookup returns the coin registered for the face value.
func Lookup(d Denomination) (Coin, bool) {
	c, ok := coinTable[d]
	return c, ok
}

// IsLegal reports whether d is one of the accepted denominations.
func IsLegal(d Denomination) bool {
	_, ok := coinTable[d]
	return ok
}

// Denominations returns the legal denominations, largest first.
func Denominations() []Denomination {
	out := make([]Denomination, 0, len(coinTable))
	for d := range coinTable {
		out = append(out, d)
	}
	sortDescending(out)
	return out
}

// FormatAmount renders an amount of cents as a fixed two-decimal string.
func FormatAmount(cents int) string {
	return decimal.New(int64(cents), -2).StringFixed(2)
}

// Sum adds up the face values of coins.
func Sum(coins []Denomination) int {
	total := 0
	for _, c := range coins {
		total += int(c)
	}
	return total
}

func sortDescending(ds []Denomination) {
	sort.Slice(ds, func(i, j int) bool { return ds[i] > ds[j] })
}
