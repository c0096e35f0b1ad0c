package pricing

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Kind selects a bulk pricing scheme.
type Kind string

const (
	KindNone      Kind = "none"
	KindQuadratic Kind = "quadratic"
	KindTable     Kind = "table"
)

// Kinds lists the schemes in the order the operator picks them from.
var Kinds = []Kind{KindNone, KindQuadratic, KindTable}

// Tier applies Rate per unit from MinQuantity upward.
type Tier struct {
	MinQuantity int
	Rate        decimal.Decimal
}

// DefaultTiers is the degressive table used by KindTable.
var DefaultTiers = []Tier{
	{MinQuantity: 1, Rate: decimal.NewFromInt(1)},
	{MinQuantity: 3, Rate: decimal.RequireFromString("0.95")},
	{MinQuantity: 6, Rate: decimal.RequireFromString("0.90")},
	{MinQuantity: 12, Rate: decimal.RequireFromString("0.85")},
}

// Mercurial maps an entered quantity to the multiplier applied to the unit
// amount.
type Mercurial struct {
	Kind  Kind
	Tiers []Tier
}

func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown mercurial %q", s)
}

// NewMercurial returns the scheme for k, with DefaultTiers for KindTable.
func NewMercurial(k Kind) Mercurial {
	m := Mercurial{Kind: k}
	if k == KindTable {
		m.Tiers = append([]Tier(nil), DefaultTiers...)
	}
	return m
}

// Transform returns the multiplier for q. Quantities below one map to zero.
func (m Mercurial) Transform(q int) decimal.Decimal {
	if q < 1 {
		return decimal.Zero
	}
	dq := decimal.NewFromInt(int64(q))
	switch m.Kind {
	case KindQuadratic:
		return dq.Mul(dq)
	case KindTable:
		return dq.Mul(m.rate(q))
	default:
		return dq
	}
}

func (m Mercurial) rate(q int) decimal.Decimal {
	tiers := append([]Tier(nil), m.Tiers...)
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].MinQuantity < tiers[j].MinQuantity })
	rate := decimal.NewFromInt(1)
	for _, t := range tiers {
		if q >= t.MinQuantity {
			rate = t.Rate
		}
	}
	return rate
}
