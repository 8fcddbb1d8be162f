package dto

import "time"

// Asset carries a token quantity over the wire. Amount is a decimal string
// ("1.3100"); it must fit in the declared precision.
type Asset struct {
	Issuer    string `json:"issuer" binding:"required"`
	Symbol    string `json:"symbol" binding:"required"`
	Precision uint8  `json:"precision"`
	Amount    string `json:"amount"`
}

type InitRequest struct {
	UserPays bool `json:"user_pays"`
}

type DepositRequest struct {
	From  string `json:"from" binding:"required"`
	Asset Asset  `json:"asset" binding:"required"`
}

type WithdrawRequest struct {
	Asset Asset `json:"asset" binding:"required"`
}

type CloseBalanceRequest struct {
	Issuer string `json:"issuer" binding:"required"`
	Symbol string `json:"symbol" binding:"required"`
}

type MarketRequest struct {
	Quote Asset `json:"quote" binding:"required"`
}

type PairRequest struct {
	Quote Asset `json:"quote" binding:"required"`
	Base  Asset `json:"base" binding:"required"`
}

type TradeRequest struct {
	Side         string `json:"side" binding:"required"`
	Price        Asset  `json:"price" binding:"required"`
	Volume       Asset  `json:"volume" binding:"required"`
	AutoWithdraw bool   `json:"auto_withdraw"`
}

type TradeResponse struct {
	OrderID uint64  `json:"order_id"`
	Trades  []Trade `json:"trades"`
}

type CancelRequest struct {
	Base  Asset  `json:"base" binding:"required"`
	Quote Asset  `json:"quote" binding:"required"`
	Side  string `json:"side" binding:"required"`
	ID    uint64 `json:"id" binding:"required"`
}

type Balance struct {
	Account string `json:"account"`
	Asset   Asset  `json:"asset"`
}

type BalancesResponse struct {
	Balances []Balance `json:"balances"`
}

type Order struct {
	ID        uint64    `json:"id"`
	Trader    string    `json:"trader"`
	Side      string    `json:"side"`
	Price     string    `json:"price"`
	Volume    string    `json:"volume"`
	CreatedAt time.Time `json:"created_at"`
}

type OrderBookResponse struct {
	Pair      string    `json:"pair"`
	SellSide  []Order   `json:"sell_side"`
	BuySide   []Order   `json:"buy_side"`
	Timestamp time.Time `json:"timestamp"`
}

type Trade struct {
	ID          string    `json:"id"`
	Pair        string    `json:"pair"`
	SellOrder   uint64    `json:"sell_order"`
	BuyOrder    uint64    `json:"buy_order"`
	Seller      string    `json:"seller"`
	Buyer       string    `json:"buyer"`
	Price       string    `json:"price"`
	Volume      string    `json:"volume"`
	QuoteVolume string    `json:"quote_volume"`
	Timestamp   time.Time `json:"timestamp"`
}

type StatResponse struct {
	Pair  string `json:"pair"`
	Price string `json:"price"`
}
