package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderCartAttachKeepsDuplicates(t *testing.T) {
	ctx := context.Background()
	e := newOrderEnv(t)
	order := e.create(t, Anonymous)

	first, err := e.carts.Attach(ctx, "wishlist", order.ID)
	require.NoError(t, err)
	second, err := e.carts.Attach(ctx, "wishlist", order.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	view, err := e.carts.List(ctx, "wishlist")
	require.NoError(t, err)
	assert.Equal(t, "wishlist", view.IdentityCode)
	require.Len(t, view.Items, 2)
	require.NotNil(t, view.Items[0].CustomOrder)
	assert.Equal(t, order.ID, view.Items[0].CustomOrder.ID)

	require.NoError(t, e.carts.Remove(ctx, "wishlist", order.ID))
	view, err = e.carts.List(ctx, "wishlist")
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, second.ID, view.Items[0].ID)

	_, err = e.store.GetCustomOrder(ctx, order.ID)
	assert.NoError(t, err, "removing from the cart keeps the order")
}

func TestOrderCartErrors(t *testing.T) {
	ctx := context.Background()
	e := newOrderEnv(t)
	order := e.create(t, Anonymous)

	_, err := e.carts.Attach(ctx, "wishlist", uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
	_, err = e.carts.Attach(ctx, "  ", order.ID)
	assert.Contains(t, fieldErrors(t, err), "identity_code")

	_, err = e.carts.List(ctx, "wishlist")
	assert.ErrorIs(t, err, ErrCartNotFound, "a failed attach creates no cart")

	assert.ErrorIs(t, e.carts.Remove(ctx, "unknown", order.ID), ErrCartNotFound)

	_, err = e.carts.Attach(ctx, "wishlist", order.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, e.carts.Remove(ctx, "wishlist", uuid.New()), ErrItemNotFound)
}
