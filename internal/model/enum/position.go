package enum

//go:generate enumer

// LiquiditySide NONE, MAKER, TAKER
type LiquiditySide uint8

const (
	_liquidity_side_beg LiquiditySide = iota
	LiquiditySideNone
	LiquiditySideMaker
	LiquiditySideTaker
	_liquidity_side_end
)

func (s LiquiditySide) IsAvailable() bool {
	return s > _liquidity_side_beg && s < _liquidity_side_end
}

// PositionSide FLAT, LONG, SHORT
type PositionSide uint8

const (
	_position_side_beg PositionSide = iota
	PositionSideFlat
	PositionSideLong
	PositionSideShort
	_position_side_end
)

func (s PositionSide) IsAvailable() bool {
	return s > _position_side_beg && s < _position_side_end
}

// OmsType NETTING keeps one position per instrument, HEDGING many.
type OmsType uint8

const (
	_oms_type_beg OmsType = iota
	OmsTypeNetting
	OmsTypeHedging
	_oms_type_end
)

func (t OmsType) IsAvailable() bool {
	return t > _oms_type_beg && t < _oms_type_end
}
