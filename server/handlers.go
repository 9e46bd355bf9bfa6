package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	match "github.com/openclob/openclob"
	"github.com/openclob/openclob/protocol"
)

// createOrder handles POST /order. The engine itself accepts degenerate
// numeric inputs, so the boundary rejects non-positive quantity (and
// non-positive price for limit orders) before they reach the book.
func (s *Server) createOrder(c *gin.Context) {
	var req protocol.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, protocol.ErrorResponse{Error: "invalid request payload"})
		return
	}

	var side match.Side
	switch req.Side {
	case protocol.SideBuy:
		side = match.Buy
	case protocol.SideSell:
		side = match.Sell
	default:
		c.JSON(http.StatusBadRequest, protocol.ErrorResponse{Error: "side must be buy or sell"})
		return
	}

	var orderType match.OrderType
	switch req.OrderType {
	case protocol.OrderTypeMarket:
		orderType = match.Market
	case protocol.OrderTypeLimit:
		orderType = match.Limit
	default:
		c.JSON(http.StatusBadRequest, protocol.ErrorResponse{Error: "order_type must be market or limit"})
		return
	}

	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil || !quantity.IsPositive() {
		c.JSON(http.StatusBadRequest, protocol.ErrorResponse{Error: "quantity must be a positive number"})
		return
	}

	price := decimal.Zero
	if orderType == match.Limit {
		price, err = decimal.NewFromString(req.Price)
		if err != nil || !price.IsPositive() {
			c.JSON(http.StatusBadRequest, protocol.ErrorResponse{Error: "price must be a positive number"})
			return
		}
	}

	result, err := s.book.CreateOrder(c.Request.Context(), &match.PlaceOrderCommand{
		Side:     side,
		Type:     orderType,
		Price:    price,
		Quantity: quantity,
		UserID:   req.UserID,
	})
	if err != nil {
		s.failFromEngine(c, err)
		return
	}

	ordersTotal.WithLabelValues(string(req.Side), string(req.OrderType)).Inc()

	c.JSON(http.StatusOK, protocol.CreateOrderResponse{
		OrderID:      result.OrderID,
		Filled:       result.Filled.String(),
		Remaining:    result.Remaining.String(),
		AveragePrice: result.AveragePrice.String(),
	})
}

// deleteOrder handles DELETE /order. Cancelling an unknown order ID is a
// no-op, so the response is 200 either way.
func (s *Server) deleteOrder(c *gin.Context) {
	var req protocol.DeleteOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, protocol.ErrorResponse{Error: "invalid request payload"})
		return
	}

	if err := s.book.CancelOrder(c.Request.Context(), req.OrderID, req.UserID); err != nil {
		s.failFromEngine(c, err)
		return
	}

	c.Status(http.StatusOK)
}

// getDepth handles GET /depth. An optional ?limit= query caps the number of
// levels per side.
func (s *Server) getDepth(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, protocol.ErrorResponse{Error: "limit must be an integer"})
			return
		}
		limit = parsed
	}

	depth, err := s.book.Depth(c.Request.Context(), limit)
	if err != nil {
		s.failFromEngine(c, err)
		return
	}

	resp := protocol.GetDepthResponse{
		UpdateID: depth.UpdateID,
		Bids:     make([]protocol.DepthLevel, 0, len(depth.Bids)),
		Asks:     make([]protocol.DepthLevel, 0, len(depth.Asks)),
	}
	for _, item := range depth.Bids {
		resp.Bids = append(resp.Bids, protocol.DepthLevel{Price: item.Price.String(), Quantity: item.Size.String()})
	}
	for _, item := range depth.Asks {
		resp.Asks = append(resp.Asks, protocol.DepthLevel{Price: item.Price.String(), Quantity: item.Size.String()})
	}

	c.JSON(http.StatusOK, resp)
}

// getTrades handles GET /trades: the full ledger snapshot, unfiltered.
func (s *Server) getTrades(c *gin.Context) {
	trades, err := s.book.Trades(c.Request.Context())
	if err != nil {
		s.failFromEngine(c, err)
		return
	}

	resp := make([]protocol.TradeRecord, 0, len(trades))
	for _, trade := range trades {
		resp = append(resp, protocol.TradeRecord{
			ID:        trade.ID,
			Price:     trade.Price.String(),
			Quantity:  trade.Quantity.String(),
			BuyerID:   trade.BuyerID,
			SellerID:  trade.SellerID,
			Timestamp: trade.Timestamp,
		})
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": match.EngineVersion,
	})
}

func (s *Server) failFromEngine(c *gin.Context, err error) {
	switch {
	case errors.Is(err, match.ErrShutdown):
		c.JSON(http.StatusServiceUnavailable, protocol.ErrorResponse{Error: err.Error()})
	case errors.Is(err, match.ErrTimeout):
		c.JSON(http.StatusGatewayTimeout, protocol.ErrorResponse{Error: err.Error()})
	default:
		s.logger.Error("engine request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, protocol.ErrorResponse{Error: "internal error"})
	}
}
