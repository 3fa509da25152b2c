package types

type Side string

// Direction is what a signal source asks for on a symbol.
type Direction string

type OrderType string

type OrderStatus string

// ExitReason records why a position was closed.
type ExitReason string

const (
	OrderAccepted        OrderStatus = "ORDER_ACCEPTED"
	OrderPartiallyFilled OrderStatus = "ORDER_PARTIALLY_FILLED"
	OrderFilled          OrderStatus = "ORDER_FILLED"
	OrderRejected        OrderStatus = "ORDER_REJECTED"

	SideTypeBuy  Side = "BUY"
	SideTypeSell Side = "SELL"

	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
	DirectionHold Direction = "HOLD"

	TypeMarket OrderType = "MARKET"

	ExitSignal     ExitReason = "SIGNAL"
	ExitStopLoss   ExitReason = "STOP_LOSS"
	ExitTakeProfit ExitReason = "TAKE_PROFIT"
	ExitSessionEnd ExitReason = "SESSION_END"
)

func (d Direction) Valid() bool {
	switch d {
	case DirectionBuy, DirectionSell, DirectionHold:
		return true
	}
	return false
}

// Side maps a trading direction to an order side. HOLD has none.
func (d Direction) Side() (Side, bool) {
	switch d {
	case DirectionBuy:
		return SideTypeBuy, true
	case DirectionSell:
		return SideTypeSell, true
	}
	return "", false
}

func (r ExitReason) Valid() bool {
	switch r {
	case ExitSignal, ExitStopLoss, ExitTakeProfit, ExitSessionEnd:
		return true
	}
	return false
}
