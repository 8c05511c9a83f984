package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func item(sku string, price string, qty int) LineItem {
	return LineItem{SkuID: sku, Price: decimal.RequireFromString(price), Quantity: qty}
}

func quantities(c *Cart) map[string]int {
	out := map[string]int{}
	for _, line := range c.Lines() {
		out[line.SkuID] = line.Quantity
	}
	return out
}

type recordingSaver struct {
	items []LineItem
	ttl   time.Duration
	err   error
}

func (r *recordingSaver) SetItems(_ context.Context, items []LineItem, ttl time.Duration) error {
	r.items = items
	r.ttl = ttl
	return r.err
}

func TestLineItemPlus(t *testing.T) {
	line := item("A", "10", 2)

	qty, ok := line.Plus(item("B", "10", 1), 5, false)
	require.False(t, ok)
	require.Zero(t, qty)
	require.Equal(t, 2, line.Quantity)

	qty, ok = line.Plus(item("A", "10", 1), 3, false)
	require.True(t, ok)
	require.Equal(t, 5, qty)

	qty, ok = line.Plus(item("A", "10", 1), 1, true)
	require.True(t, ok)
	require.Equal(t, 1, qty)

	qty, _ = line.Plus(item("A", "10", 1), -10, false)
	require.Zero(t, qty, "quantity never goes negative")
}

func TestLineItemEqualsRequiresSku(t *testing.T) {
	require.False(t, LineItem{}.Equals(LineItem{}))
	require.True(t, item("A", "1", 1).Equals(item("A", "2", 9)))
}

func TestLineItemSubtotalAppliesDiscount(t *testing.T) {
	line := LineItem{
		SkuID:    "A",
		Price:    decimal.RequireFromString("19.99"),
		Discount: decimal.RequireFromString("15"),
		Quantity: 3,
		Weight:   decimal.RequireFromString("0.5"),
	}
	require.True(t, line.UnitPrice().Equal(decimal.RequireFromString("16.99")), line.UnitPrice().String())
	require.True(t, line.Subtotal().Equal(decimal.RequireFromString("50.97")))
	require.True(t, line.TotalWeight().Equal(decimal.RequireFromString("1.5")))
}

func TestAddMergesSameSku(t *testing.T) {
	ctx := context.Background()
	var events []EventName
	c := New("client", nil, WithListeners(func(_ context.Context, e Event) { events = append(events, e.Name) }))

	for _, q := range []int{1, 2, 3, 4} {
		c.Add(ctx, item("A", "5", 0), q)
	}
	c.Add(ctx, item("B", "5", 0), 1)

	require.Len(t, c.Lines(), 2)
	require.Equal(t, map[string]int{"A": 10, "B": 1}, quantities(c))
	require.Equal(t, []EventName{EventItemAdded, EventItemUpdated, EventItemUpdated, EventItemUpdated, EventItemAdded}, events)
}

func TestAddIgnoresNonPositive(t *testing.T) {
	ctx := context.Background()
	c := New("client", []LineItem{item("A", "5", 2)})

	require.Equal(t, 2, c.Add(ctx, item("A", "5", 0), 0))
	require.Equal(t, 2, c.Add(ctx, item("A", "5", 0), -3))
	require.Zero(t, c.Add(ctx, item("Z", "5", 0), -1))
	require.Equal(t, 2, c.Quantity())
}

func TestPutZeroEqualsRemove(t *testing.T) {
	ctx := context.Background()
	put := New("client", []LineItem{item("A", "5", 2), item("B", "3", 1)})
	removed := New("client", []LineItem{item("A", "5", 2), item("B", "3", 1)})

	put.Put(ctx, item("A", "5", 0), 0)
	removed.Remove(ctx, item("A", "5", 0))

	require.Equal(t, removed.Lines(), put.Lines())
}

func TestPutOverwritesOrInserts(t *testing.T) {
	ctx := context.Background()
	c := New("client", []LineItem{item("A", "5", 2)})

	require.Equal(t, 7, c.Put(ctx, item("A", "5", 0), 7))
	require.Equal(t, 1, c.Put(ctx, item("B", "5", 0), 1))
	require.Equal(t, map[string]int{"A": 7, "B": 1}, quantities(c))
}

func TestRemoveNotifiesOnlyWhenFound(t *testing.T) {
	ctx := context.Background()
	var removed int
	c := New("client", []LineItem{item("A", "5", 2)}, WithListeners(func(_ context.Context, e Event) {
		if e.Name == EventItemRemoved {
			removed++
		}
	}))

	require.False(t, c.Remove(ctx, item("Z", "1", 1)))
	require.Zero(t, removed)
	require.True(t, c.Remove(ctx, item("A", "1", 1)))
	require.Equal(t, 1, removed)
	require.True(t, c.IsEmpty())
}

func TestAddAllMergesAndAppends(t *testing.T) {
	c := New("client", []LineItem{item("A", "5", 1), item("B", "2", 3)})

	c.AddAll([]LineItem{item("A", "5", 2), item("C", "1", 4), item("D", "1", 1)})

	lines := c.Lines()
	require.Len(t, lines, 4)
	require.Equal(t, []string{"A", "B", "C", "D"}, []string{lines[0].SkuID, lines[1].SkuID, lines[2].SkuID, lines[3].SkuID})
	require.Equal(t, map[string]int{"A": 3, "B": 3, "C": 4, "D": 1}, quantities(c))
}

func TestAddAllIntoEmptyCart(t *testing.T) {
	c := New("client", nil)
	c.AddAll([]LineItem{item("A", "5", 2), item("B", "1", 1)})
	require.Equal(t, map[string]int{"A": 2, "B": 1}, quantities(c))
}

func TestAddAllTwiceDoublesQuantities(t *testing.T) {
	source := []LineItem{item("A", "5", 2), item("B", "1", 3)}
	c := New("client", nil)

	c.AddAll(source).AddAll(source)

	require.Equal(t, map[string]int{"A": 4, "B": 6}, quantities(c))
}

func TestSubtotalAndGrandTotalInvariants(t *testing.T) {
	ctx := context.Background()
	c := New("client", nil)
	check := func() {
		t.Helper()
		expected := decimal.Zero
		for _, line := range c.Lines() {
			expected = expected.Add(line.Price.Mul(decimal.NewFromInt(100).Sub(line.Discount)).Div(decimal.NewFromInt(100)).Round(2).Mul(decimal.NewFromInt(int64(line.Quantity))))
		}
		require.True(t, c.Subtotal().Equal(expected), "subtotal %s != %s", c.Subtotal(), expected)
		require.True(t, c.GrandTotal().Equal(c.Subtotal().Sub(c.DiscountAmount()).Add(c.ShippingAmount())))
	}

	c.Add(ctx, LineItem{SkuID: "A", Price: decimal.RequireFromString("12.50"), Discount: decimal.NewFromInt(20)}, 2)
	check()
	c.Add(ctx, item("B", "3.33", 0), 3)
	check()
	c.SetShippingAmount(decimal.RequireFromString("4.99"))
	check()
	c.SetCoupon("SAVE", decimal.RequireFromString("5"))
	check()
	require.True(t, c.DiscountAmount().Equal(decimal.NewFromInt(5)))
	c.Remove(ctx, item("A", "0", 0))
	check()
	c.SetCoupon("", decimal.RequireFromString("5"))
	require.True(t, c.DiscountAmount().IsZero())
	check()
}

func TestStatisticsKeys(t *testing.T) {
	c := New("client", []LineItem{item("A", "2.50", 2)})
	c.SetShippingAmount(decimal.NewFromInt(1))

	stats := c.Statistics()
	require.Equal(t, 2, stats.Quantity)
	require.True(t, stats.Subtotal.Equal(decimal.NewFromInt(5)))
	require.True(t, stats.GrandTotal.Equal(decimal.NewFromInt(6)))
	require.True(t, stats.DiscountAmount.IsZero())
}

func TestSaveOverwritesThroughSaver(t *testing.T) {
	ctx := context.Background()
	saver := &recordingSaver{}
	c := New("client", []LineItem{item("A", "1", 1)}, WithSaver(saver, time.Hour))
	c.Add(ctx, item("B", "1", 0), 2)

	require.NoError(t, c.Save(ctx))
	require.Equal(t, time.Hour, saver.ttl)
	require.Len(t, saver.items, 2)

	saver.err = errors.New("down")
	require.Error(t, c.Save(ctx))

	require.ErrorIs(t, New("x", nil).Save(ctx), errNoStore)
}

func TestLinesAreCopies(t *testing.T) {
	c := New("client", []LineItem{{SkuID: "A", Price: decimal.NewFromInt(1), Quantity: 1, Options: []Option{{Name: "color", Value: "red"}}}})
	lines := c.Lines()
	lines[0].Quantity = 99
	lines[0].Options[0].Value = "blue"

	line, ok := c.Line("A")
	require.True(t, ok)
	require.Equal(t, 1, line.Quantity)
	require.Equal(t, "red", line.Options[0].Value)
}

func TestClearDropsCoupon(t *testing.T) {
	c := New("client", []LineItem{item("A", "1", 1)})
	c.SetCoupon("X", decimal.NewFromInt(1))
	c.Clear()
	require.True(t, c.IsEmpty())
	require.Empty(t, c.CouponCode())
	require.True(t, c.GrandTotal().IsZero())
}
