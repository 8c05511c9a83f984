package promotion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/angelmondragon/cartd/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		ClientID: "cart:client:abc",
		Quantity: 3,
		Subtotal: decimal.RequireFromString("30.00"),
		Lines: []Line{
			{SkuID: "sku-a", Quantity: 3, UnitPrice: decimal.RequireFromString("10.00")},
		},
	}
}

func TestCouponDiscountSuccess(t *testing.T) {
	var captured discountRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/coupons/discount", r.URL.Path)
		require.Equal(t, "key-123", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{"discount_amount":"5.125"}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL+"/", WithAPIKey("key-123"))
	require.NoError(t, err)

	amount, err := client.CouponDiscount(context.Background(), sampleSnapshot(), "  SAVE5 ")
	require.NoError(t, err)
	require.True(t, amount.Equal(decimal.RequireFromString("5.13")), amount.String())
	require.Equal(t, "SAVE5", captured.Code)
	require.Equal(t, 3, captured.Cart.Quantity)
	require.Len(t, captured.Cart.Lines, 1)
}

func TestCouponDiscountClampsToSubtotal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"discount_amount":"99.00"}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	amount, err := client.CouponDiscount(context.Background(), sampleSnapshot(), "BIG")
	require.NoError(t, err)
	require.True(t, amount.Equal(decimal.RequireFromString("30")))
}

func TestCouponDiscountRejectedIsValidation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"coupon expired"}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	_, err = client.CouponDiscount(context.Background(), sampleSnapshot(), "OLD")
	require.Error(t, err)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	require.Equal(t, "coupon expired", pkgerrors.As(err).Message())
}

func TestCouponDiscountServerErrorIsDependency(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	_, err = client.CouponDiscount(context.Background(), sampleSnapshot(), "SAVE5")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
}

func TestCouponDiscountTransportErrorIsDependency(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client, err := NewClient(url)
	require.NoError(t, err)

	_, err = client.CouponDiscount(context.Background(), sampleSnapshot(), "SAVE5")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
}

func TestCouponDiscountGuards(t *testing.T) {
	_, err := NewClient("  ")
	require.ErrorIs(t, err, errBaseURLRequired)

	var nilClient *Client
	_, err = nilClient.CouponDiscount(context.Background(), sampleSnapshot(), "X")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))

	client, err := NewClient("http://promo.test")
	require.NoError(t, err)
	_, err = client.CouponDiscount(context.Background(), sampleSnapshot(), " ")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}
