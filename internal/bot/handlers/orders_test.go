package handlers

import (
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skalper-bot/trading-bot/internal/domain"
)

type staticTranslator struct{}

func (staticTranslator) T(key string) string { return key }
func (staticTranslator) Lang() string        { return "en" }

func makeOrders(n int) []domain.Order {
	orders := make([]domain.Order, 0, n)
	for i := 1; i <= n; i++ {
		orders = append(orders, domain.Order{
			ID:     int64(i),
			Side:   domain.OrderSideSell,
			Amount: decimal.NewFromInt(1),
			Price:  decimal.NewFromInt(100),
			Status: domain.OrderStatusOpen,
		})
	}
	return orders
}

func TestRenderOrdersPage_SinglePageHasNoNavigation(t *testing.T) {
	text, markup, err := renderOrdersPage(staticTranslator{}, makeOrders(3), 1)
	require.NoError(t, err)

	assert.Equal(t, 3, strings.Count(text, "#"))
	// One cancel row per open order, no trailing navigation row.
	require.Len(t, markup.InlineKeyboard, 3)
	for _, row := range markup.InlineKeyboard {
		require.Len(t, row, 1)
		assert.True(t, strings.HasPrefix(row[0].Data, CallbackOrderCancelPrefix+":"))
	}
}

func TestRenderOrdersPage_SplitsAcrossPages(t *testing.T) {
	orders := makeOrders(ordersPageSize + 2)

	text, markup, err := renderOrdersPage(staticTranslator{}, orders, 1)
	require.NoError(t, err)
	assert.Equal(t, ordersPageSize, strings.Count(text, "#"))

	// Last row is the navigation row pointing at page 2.
	nav := markup.InlineKeyboard[len(markup.InlineKeyboard)-1]
	require.Len(t, nav, 2)
	assert.Equal(t, CallbackOrdersPagePrefix+":1", nav[0].Data)
	assert.Equal(t, CallbackOrdersPagePrefix+":2", nav[1].Data)

	text, markup, err = renderOrdersPage(staticTranslator{}, orders, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(text, "#"))
	assert.Contains(t, text, fmt.Sprintf("#%d", ordersPageSize+1))

	nav = markup.InlineKeyboard[len(markup.InlineKeyboard)-1]
	require.Len(t, nav, 2)
	assert.Equal(t, CallbackOrdersPagePrefix+":1", nav[0].Data)
	assert.Equal(t, CallbackOrdersPagePrefix+":2", nav[1].Data)
}

func TestRenderOrdersPage_ClampsOutOfRangePage(t *testing.T) {
	orders := makeOrders(ordersPageSize + 1)

	high, _, err := renderOrdersPage(staticTranslator{}, orders, 99)
	require.NoError(t, err)
	last, _, err := renderOrdersPage(staticTranslator{}, orders, 2)
	require.NoError(t, err)
	assert.Equal(t, last, high)

	low, _, err := renderOrdersPage(staticTranslator{}, orders, -3)
	require.NoError(t, err)
	first, _, err := renderOrdersPage(staticTranslator{}, orders, 1)
	require.NoError(t, err)
	assert.Equal(t, first, low)
}

func TestRenderOrdersPage_FinalOrdersGetNoCancelButton(t *testing.T) {
	orders := makeOrders(2)
	orders[1].Status = domain.OrderStatusCancelled

	text, markup, err := renderOrdersPage(staticTranslator{}, orders, 1)
	require.NoError(t, err)

	assert.Equal(t, 2, strings.Count(text, "#"))
	require.Len(t, markup.InlineKeyboard, 1)
	assert.True(t, strings.HasPrefix(markup.InlineKeyboard[0][0].Data, CallbackOrderCancelPrefix+":"))
}
