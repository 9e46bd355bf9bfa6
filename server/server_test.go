package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	match "github.com/openclob/openclob"
	"github.com/openclob/openclob/protocol"
)

// The prometheus middleware registers its collectors in the default registry,
// so the server is built once and shared by all subtests.
var (
	setupOnce sync.Once
	testSrv   *Server
)

func testServer(t *testing.T) *Server {
	t.Helper()

	setupOnce.Do(func() {
		gin.SetMode(gin.TestMode)
		book := match.NewOrderBook()
		go func() {
			_ = book.Start()
		}()
		testSrv = New(book, zap.NewNop())
	})
	return testSrv
}

func doRequest(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestServer(t *testing.T) {
	srv := testServer(t)

	t.Run("rejects malformed payload", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/order", bytes.NewReader([]byte("{not json")))
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects invalid side", func(t *testing.T) {
		w := doRequest(t, srv, http.MethodPost, "/order", protocol.CreateOrderRequest{
			Side: "hold", OrderType: protocol.OrderTypeLimit, Price: "100", Quantity: "1", UserID: "alice",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "side must be buy or sell", decodeJSON[protocol.ErrorResponse](t, w).Error)
	})

	t.Run("rejects invalid order type", func(t *testing.T) {
		w := doRequest(t, srv, http.MethodPost, "/order", protocol.CreateOrderRequest{
			Side: protocol.SideBuy, OrderType: "stop", Price: "100", Quantity: "1", UserID: "alice",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		w := doRequest(t, srv, http.MethodPost, "/order", protocol.CreateOrderRequest{
			Side: protocol.SideBuy, OrderType: protocol.OrderTypeLimit, Price: "100", Quantity: "0", UserID: "alice",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects non-positive limit price", func(t *testing.T) {
		w := doRequest(t, srv, http.MethodPost, "/order", protocol.CreateOrderRequest{
			Side: protocol.SideBuy, OrderType: protocol.OrderTypeLimit, Price: "-5", Quantity: "1", UserID: "alice",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("limit order rests", func(t *testing.T) {
		w := doRequest(t, srv, http.MethodPost, "/order", protocol.CreateOrderRequest{
			Side: protocol.SideBuy, OrderType: protocol.OrderTypeLimit, Price: "100", Quantity: "10", UserID: "alice",
		})
		require.Equal(t, http.StatusOK, w.Code)

		resp := decodeJSON[protocol.CreateOrderResponse](t, w)
		assert.Equal(t, "0", resp.OrderID)
		assert.Equal(t, "0", resp.Filled)
		assert.Equal(t, "10", resp.Remaining)
		assert.Equal(t, "100", resp.AveragePrice)
	})

	t.Run("depth shows the resting order", func(t *testing.T) {
		w := doRequest(t, srv, http.MethodGet, "/depth", nil)
		require.Equal(t, http.StatusOK, w.Code)

		resp := decodeJSON[protocol.GetDepthResponse](t, w)
		require.Len(t, resp.Bids, 1)
		assert.Equal(t, "100", resp.Bids[0].Price)
		assert.Equal(t, "10", resp.Bids[0].Quantity)
		assert.Empty(t, resp.Asks)
	})

	t.Run("crossing sell executes at the resting price", func(t *testing.T) {
		w := doRequest(t, srv, http.MethodPost, "/order", protocol.CreateOrderRequest{
			Side: protocol.SideSell, OrderType: protocol.OrderTypeLimit, Price: "90", Quantity: "4", UserID: "bob",
		})
		require.Equal(t, http.StatusOK, w.Code)

		resp := decodeJSON[protocol.CreateOrderResponse](t, w)
		assert.Equal(t, "1", resp.OrderID)
		assert.Equal(t, "4", resp.Filled)
		assert.Equal(t, "0", resp.Remaining)
		assert.Equal(t, "90", resp.AveragePrice)
	})

	t.Run("trades lists the fill", func(t *testing.T) {
		w := doRequest(t, srv, http.MethodGet, "/trades", nil)
		require.Equal(t, http.StatusOK, w.Code)

		trades := decodeJSON[[]protocol.TradeRecord](t, w)
		require.Len(t, trades, 1)
		assert.Equal(t, "100", trades[0].Price)
		assert.Equal(t, "4", trades[0].Quantity)
		assert.Equal(t, "alice", trades[0].BuyerID)
		assert.Equal(t, "bob", trades[0].SellerID)
		assert.NotEmpty(t, trades[0].ID)
	})

	t.Run("market order on empty opposite side fills nothing", func(t *testing.T) {
		w := doRequest(t, srv, http.MethodPost, "/order", protocol.CreateOrderRequest{
			Side: protocol.SideBuy, OrderType: protocol.OrderTypeMarket, Quantity: "3", UserID: "carol",
		})
		require.Equal(t, http.StatusOK, w.Code)

		resp := decodeJSON[protocol.CreateOrderResponse](t, w)
		assert.Equal(t, "0", resp.AveragePrice)
		assert.Equal(t, "3", resp.Remaining)
	})

	t.Run("delete removes the order", func(t *testing.T) {
		w := doRequest(t, srv, http.MethodDelete, "/order", protocol.DeleteOrderRequest{
			OrderID: "0", UserID: "alice",
		})
		require.Equal(t, http.StatusOK, w.Code)

		w = doRequest(t, srv, http.MethodGet, "/depth", nil)
		resp := decodeJSON[protocol.GetDepthResponse](t, w)
		assert.Empty(t, resp.Bids)
		assert.Empty(t, resp.Asks)
	})

	t.Run("delete unknown order is a no-op", func(t *testing.T) {
		w := doRequest(t, srv, http.MethodDelete, "/order", protocol.DeleteOrderRequest{
			OrderID: "999", UserID: "alice",
		})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("depth limit must be an integer", func(t *testing.T) {
		w := doRequest(t, srv, http.MethodGet, "/depth?limit=abc", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("health", func(t *testing.T) {
		w := doRequest(t, srv, http.MethodGet, "/health", nil)
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeJSON[map[string]string](t, w)
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, match.EngineVersion, body["version"])
	})
}
