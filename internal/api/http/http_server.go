package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/JackDiSalvatore/EOS-DEX/internal/api/dto"
	"github.com/JackDiSalvatore/EOS-DEX/internal/core"
	"github.com/JackDiSalvatore/EOS-DEX/internal/domain"
	"github.com/JackDiSalvatore/EOS-DEX/internal/middleware"
)

// Server exposes the exchange operations over HTTP. Identity comes from the
// X-Account header; privileged routes additionally require the operator
// account.
type Server struct {
	eng      *core.Engine
	operator string
	limit    *middleware.RateLimiter
	log      *zap.Logger
}

func NewServer(eng *core.Engine, operator string, limit *middleware.RateLimiter, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{eng: eng, operator: operator, limit: limit, log: log}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Identity())
	if s.limit != nil {
		r.Use(s.limit.Middleware())
	}

	operator := middleware.RequireOperator(s.operator)

	r.POST("/init", operator, s.init)
	r.POST("/deposits", operator, s.deposit)
	r.POST("/withdrawals", s.withdraw)
	r.POST("/balances/close", s.closeBalance)
	r.GET("/balances", s.balances)
	r.POST("/markets", s.createMarket)
	r.DELETE("/markets", operator, s.removeMarket)
	r.POST("/markets/pairs", s.addPair)
	r.DELETE("/markets/pairs", operator, s.removePair)
	r.POST("/orders", s.trade)
	r.POST("/orders/cancel", s.cancel)
	r.GET("/orderbook", s.orderBook)
	r.GET("/stats", s.pairStat)

	return r
}

func (s *Server) Run(addr string) error {
	return s.Router().Run(addr)
}

func (s *Server) init(c *gin.Context) {
	var req dto.InitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.eng.Init(c.Request.Context(), req.UserPays); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"initialized": true})
}

func (s *Server) deposit(c *gin.Context) {
	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	asset, err := parseAsset(req.Asset)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.eng.Deposit(c.Request.Context(), req.From, asset); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"credited": true})
}

func (s *Server) withdraw(c *gin.Context) {
	var req dto.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	asset, err := parseAsset(req.Asset)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	account := c.GetString(middleware.AccountKey)
	if err := s.eng.Withdraw(c.Request.Context(), account, asset); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawn": true})
}

func (s *Server) closeBalance(c *gin.Context) {
	var req dto.CloseBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	account := c.GetString(middleware.AccountKey)
	if err := s.eng.CloseBalance(c.Request.Context(), account, req.Issuer, req.Symbol); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"closed": true})
}

func (s *Server) balances(c *gin.Context) {
	account := c.Query("account")
	if account == "" {
		account = c.GetString(middleware.AccountKey)
	}
	rows, err := s.eng.Balances(c.Request.Context(), account)
	if err != nil {
		s.writeError(c, err)
		return
	}
	resp := dto.BalancesResponse{Balances: make([]dto.Balance, 0, len(rows))}
	for _, b := range rows {
		resp.Balances = append(resp.Balances, dto.Balance{
			Account: b.Account,
			Asset: dto.Asset{
				Issuer:    b.Asset.Issuer,
				Symbol:    b.Asset.Symbol,
				Precision: b.Asset.Precision,
				Amount:    formatAmount(b.Asset),
			},
		})
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) createMarket(c *gin.Context) {
	var req dto.MarketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	quote, err := parseAsset(req.Quote)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	owner := c.GetString(middleware.AccountKey)
	if err := s.eng.CreateMarket(c.Request.Context(), owner, quote); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": true})
}

func (s *Server) removeMarket(c *gin.Context) {
	var req dto.MarketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	quote, err := parseAsset(req.Quote)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.eng.RemoveMarket(c.Request.Context(), quote); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": true})
}

func (s *Server) addPair(c *gin.Context) {
	var req dto.PairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	quote, err := parseAsset(req.Quote)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	base, err := parseAsset(req.Base)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	owner := c.GetString(middleware.AccountKey)
	if err := s.eng.AddPair(c.Request.Context(), owner, quote, base); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": true})
}

func (s *Server) removePair(c *gin.Context) {
	var req dto.PairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	quote, err := parseAsset(req.Quote)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	base, err := parseAsset(req.Base)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.eng.RemovePair(c.Request.Context(), quote, base); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": true})
}

func (s *Server) trade(c *gin.Context) {
	var req dto.TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	price, err := parseAsset(req.Price)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	volume, err := parseAsset(req.Volume)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	trader := c.GetString(middleware.AccountKey)
	id, trades, err := s.eng.Trade(c.Request.Context(), trader, domain.Side(req.Side), price, volume, req.AutoWithdraw)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.TradeResponse{OrderID: id, Trades: convertTrades(trades)})
}

func (s *Server) cancel(c *gin.Context) {
	var req dto.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	base, err := parseAsset(req.Base)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	quote, err := parseAsset(req.Quote)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	trader := c.GetString(middleware.AccountKey)
	if err := s.eng.Cancel(c.Request.Context(), base, quote, trader, domain.Side(req.Side), req.ID); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}

func (s *Server) orderBook(c *gin.Context) {
	base, quote, err := assetsFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	snap, err := s.eng.OrderBook(c.Request.Context(), base, quote)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OrderBookResponse{
		Pair:      snap.Pair,
		SellSide:  convertOrders(snap.SellSide),
		BuySide:   convertOrders(snap.BuySide),
		Timestamp: snap.Timestamp,
	})
}

func (s *Server) pairStat(c *gin.Context) {
	base, quote, err := assetsFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	stat, err := s.eng.PairStat(c.Request.Context(), base, quote)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.StatResponse{Pair: stat.Pair, Price: formatAmount(stat.Price)})
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrState):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientFunds):
		status = http.StatusUnprocessableEntity
	default:
		s.log.Error("request failed", zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// parseAsset converts a wire asset into the fixed-point domain form. The
// decimal amount must fit the declared precision exactly.
func parseAsset(p dto.Asset) (domain.Asset, error) {
	a := domain.Asset{Issuer: p.Issuer, Symbol: p.Symbol, Precision: p.Precision}
	if p.Amount == "" {
		return a, nil
	}
	d, err := decimal.NewFromString(p.Amount)
	if err != nil {
		return domain.Asset{}, fmt.Errorf("invalid amount %q: %w", p.Amount, err)
	}
	scaled := d.Shift(int32(p.Precision))
	if !scaled.IsInteger() {
		return domain.Asset{}, fmt.Errorf("amount %q does not fit precision %d", p.Amount, p.Precision)
	}
	a.Amount = scaled.IntPart()
	return a, nil
}

func assetsFromQuery(c *gin.Context) (base, quote domain.Asset, err error) {
	base = domain.Asset{Issuer: c.Query("base_issuer"), Symbol: c.Query("base_symbol")}
	quote = domain.Asset{Issuer: c.Query("quote_issuer"), Symbol: c.Query("quote_symbol")}
	if base.Symbol == "" || quote.Symbol == "" {
		return base, quote, fmt.Errorf("base_symbol and quote_symbol are required")
	}
	return base, quote, nil
}

func formatAmount(a domain.Asset) string {
	return decimal.New(a.Amount, -int32(a.Precision)).String()
}

func convertOrders(orders []domain.Order) []dto.Order {
	res := make([]dto.Order, len(orders))
	for i, o := range orders {
		res[i] = dto.Order{
			ID:        o.ID,
			Trader:    o.Trader,
			Side:      string(o.Side),
			Price:     formatAmount(o.Price),
			Volume:    formatAmount(o.Volume),
			CreatedAt: o.CreatedAt,
		}
	}
	return res
}

func convertTrades(trades []*domain.Trade) []dto.Trade {
	res := make([]dto.Trade, len(trades))
	for i, t := range trades {
		res[i] = dto.Trade{
			ID:          t.ID,
			Pair:        t.Pair,
			SellOrder:   t.SellOrder,
			BuyOrder:    t.BuyOrder,
			Seller:      t.Seller,
			Buyer:       t.Buyer,
			Price:       formatAmount(t.Price),
			Volume:      formatAmount(t.Volume),
			QuoteVolume: formatAmount(t.QuoteVolume),
			Timestamp:   t.Timestamp,
		}
	}
	return res
}
