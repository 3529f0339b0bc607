package model

import (
	"github.com/shopspring/decimal"
)

// Instrument carries the precision and fee data reconciliation needs.
type Instrument struct {
	ID             InstrumentID    `json:"id"`
	PricePrecision int32           `json:"pricePrecision"`
	SizePrecision  int32           `json:"sizePrecision"`
	Multiplier     decimal.Decimal `json:"multiplier"`
	MakerFee       decimal.Decimal `json:"makerFee"`
	TakerFee       decimal.Decimal `json:"takerFee"`
	BaseCurrency   string          `json:"baseCurrency"`
	QuoteCurrency  string          `json:"quoteCurrency"`
	IsInverse      bool            `json:"isInverse"`
}

// MakeQty rounds a quantity to the instrument's size precision.
func (i Instrument) MakeQty(qty decimal.Decimal) decimal.Decimal {
	return qty.Round(i.SizePrecision)
}

// MakePrice rounds a price to the instrument's price precision.
func (i Instrument) MakePrice(px decimal.Decimal) decimal.Decimal {
	return px.Round(i.PricePrecision)
}

func (i Instrument) multiplier() decimal.Decimal {
	if i.Multiplier.IsZero() {
		return decimal.NewFromInt(1)
	}
	return i.Multiplier
}

// NotionalValue is qty * px * multiplier in quote currency, or
// qty * multiplier / px in base currency for inverse instruments.
func (i Instrument) NotionalValue(qty, px decimal.Decimal) Money {
	if i.IsInverse {
		if px.IsZero() {
			return ZeroMoney(i.BaseCurrency)
		}
		return NewMoney(qty.Mul(i.multiplier()).Div(px), i.BaseCurrency)
	}
	return NewMoney(qty.Mul(px).Mul(i.multiplier()), i.QuoteCurrency)
}

// SettlementCurrency is the currency commissions are charged in.
func (i Instrument) SettlementCurrency() string {
	if i.IsInverse {
		return i.BaseCurrency
	}
	return i.QuoteCurrency
}
