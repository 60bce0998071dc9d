package handlers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skvortsovm/storefront/internal/broadcast"
	"github.com/skvortsovm/storefront/internal/models"
)

func TestAddToCartTwiceMergesQuantity(t *testing.T) {
	env := newTestEnv(t)
	tok := env.registerUser("al", "a@b.com")
	prod := env.seedProduct("laptop", 999.90, "laptop.png")

	rec := env.request(http.MethodPost, "/api/cart", map[string]interface{}{
		"product_id": prod.ID, "quantity": 2,
	}, tok)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.request(http.MethodPost, "/api/cart", map[string]interface{}{
		"product_id": prod.ID, "quantity": 3,
	}, tok)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.request(http.MethodGet, "/api/cart", nil, tok)
	require.Equal(t, http.StatusOK, rec.Code)

	items := decode[[]models.CartItemView](t, rec)
	require.Len(t, items, 1)
	require.Equal(t, prod.ID, items[0].ProductID)
	require.EqualValues(t, 5, items[0].Quantity)
}

func TestAddToCartVariantIsSeparateRow(t *testing.T) {
	env := newTestEnv(t)
	tok := env.registerUser("al", "a@b.com")
	prod := env.seedProduct("laptop", 999.90, "laptop.png")
	variant := env.seedVariant(prod.ID, "laptop 32GB", 1299.90)

	rec := env.request(http.MethodPost, "/api/cart", map[string]interface{}{
		"product_id": prod.ID, "quantity": 1,
	}, tok)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.request(http.MethodPost, "/api/cart", map[string]interface{}{
		"product_id": prod.ID, "quantity": 1, "variant_id": variant.ID,
	}, tok)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.request(http.MethodGet, "/api/cart", nil, tok)
	items := decode[[]models.CartItemView](t, rec)
	require.Len(t, items, 2)

	byVariant := map[bool]models.CartItemView{}
	for _, it := range items {
		byVariant[it.VariantID != nil] = it
	}

	base := byVariant[false]
	require.Equal(t, "laptop", base.Name)
	require.Equal(t, 999.90, base.Price)
	require.Equal(t, "laptop.png", base.ImageURL)
	require.Nil(t, base.VariantName)

	withVariant := byVariant[true]
	require.Equal(t, "laptop 32GB", withVariant.Name)
	require.Equal(t, 1299.90, withVariant.Price)
	require.Equal(t, "laptop.png", withVariant.ImageURL)
	require.NotNil(t, withVariant.VariantName)
	require.Equal(t, "laptop 32GB", *withVariant.VariantName)
}

func TestAddToCartRejectsNonPositiveQuantity(t *testing.T) {
	env := newTestEnv(t)
	tok := env.registerUser("al", "a@b.com")
	prod := env.seedProduct("laptop", 999.90, "laptop.png")

	for _, q := range []int{0, -1} {
		rec := env.request(http.MethodPost, "/api/cart", map[string]interface{}{
			"product_id": prod.ID, "quantity": q,
		}, tok)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}

	var count int64
	env.db.Model(&models.CartItem{}).Count(&count)
	require.EqualValues(t, 0, count)
}

func TestUpdateQuantity(t *testing.T) {
	env := newTestEnv(t)
	tok := env.registerUser("al", "a@b.com")
	prod := env.seedProduct("laptop", 999.90, "laptop.png")

	rec := env.request(http.MethodPost, "/api/cart", map[string]interface{}{
		"product_id": prod.ID, "quantity": 2,
	}, tok)
	item := decode[models.CartItem](t, rec)

	rec = env.request(http.MethodPut, fmt.Sprintf("/api/cart/%d", item.ID), map[string]interface{}{
		"quantity": 7,
	}, tok)
	require.Equal(t, http.StatusOK, rec.Code)

	updated := decode[models.CartItem](t, rec)
	require.EqualValues(t, 7, updated.Quantity)
}

func TestUpdateQuantityBelowOneRejected(t *testing.T) {
	env := newTestEnv(t)
	tok := env.registerUser("al", "a@b.com")
	prod := env.seedProduct("laptop", 999.90, "laptop.png")

	rec := env.request(http.MethodPost, "/api/cart", map[string]interface{}{
		"product_id": prod.ID, "quantity": 2,
	}, tok)
	item := decode[models.CartItem](t, rec)

	rec = env.request(http.MethodPut, fmt.Sprintf("/api/cart/%d", item.ID), map[string]interface{}{
		"quantity": 0,
	}, tok)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var stored models.CartItem
	require.NoError(t, env.db.First(&stored, item.ID).Error)
	require.EqualValues(t, 2, stored.Quantity)
}

func TestCartOwnershipIsEnforced(t *testing.T) {
	env := newTestEnv(t)
	tokA := env.registerUser("al", "a@b.com")
	tokB := env.registerUser("bo", "b@b.com")
	prod := env.seedProduct("laptop", 999.90, "laptop.png")

	rec := env.request(http.MethodPost, "/api/cart", map[string]interface{}{
		"product_id": prod.ID, "quantity": 2,
	}, tokA)
	item := decode[models.CartItem](t, rec)

	// B cannot update or remove A's row even with a valid item id.
	rec = env.request(http.MethodPut, fmt.Sprintf("/api/cart/%d", item.ID), map[string]interface{}{
		"quantity": 9,
	}, tokB)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.request(http.MethodDelete, fmt.Sprintf("/api/cart/%d", item.ID), nil, tokB)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var stored models.CartItem
	require.NoError(t, env.db.First(&stored, item.ID).Error)
	require.EqualValues(t, 2, stored.Quantity)
}

func TestRemoveCartItem(t *testing.T) {
	env := newTestEnv(t)
	tok := env.registerUser("al", "a@b.com")
	prod := env.seedProduct("laptop", 999.90, "laptop.png")

	rec := env.request(http.MethodPost, "/api/cart", map[string]interface{}{
		"product_id": prod.ID, "quantity": 2,
	}, tok)
	item := decode[models.CartItem](t, rec)

	rec = env.request(http.MethodDelete, fmt.Sprintf("/api/cart/%d", item.ID), nil, tok)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.request(http.MethodGet, "/api/cart", nil, tok)
	require.Len(t, decode[[]models.CartItemView](t, rec), 0)

	rec = env.request(http.MethodDelete, fmt.Sprintf("/api/cart/%d", item.ID), nil, tok)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

// Every successful mutation broadcasts the full cart as re-read at broadcast
// time.
func TestCartMutationsBroadcastFullState(t *testing.T) {
	env := newTestEnv(t)
	tok := env.registerUser("al", "a@b.com")
	prod := env.seedProduct("laptop", 999.90, "laptop.png")

	before := env.hub.count()
	rec := env.request(http.MethodPost, "/api/cart", map[string]interface{}{
		"product_id": prod.ID, "quantity": 2,
	}, tok)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, before+1, env.hub.count())

	msg := env.hub.last(t)
	require.Equal(t, broadcast.ChannelCartUpdate, msg.Channel)

	payload, err := json.Marshal(msg.Payload)
	require.NoError(t, err)
	var broadcasted []models.CartItemView
	require.NoError(t, json.Unmarshal(payload, &broadcasted))

	rec = env.request(http.MethodGet, "/api/cart", nil, tok)
	fresh := decode[[]models.CartItemView](t, rec)
	require.Equal(t, fresh, broadcasted)
}

func TestCartRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(http.MethodGet, "/api/cart", nil, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.request(http.MethodPost, "/api/cart", map[string]interface{}{
		"product_id": 1, "quantity": 1,
	}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
