package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/skvortsovm/storefront/internal/broadcast"
	"github.com/skvortsovm/storefront/internal/events"
	"github.com/skvortsovm/storefront/internal/logging"
	authmw "github.com/skvortsovm/storefront/internal/middleware/auth"
	"github.com/skvortsovm/storefront/internal/models"
)

const cartColumns = `ci.id, ci.user_id, ci.product_id, ci.variant_id, ci.quantity,
COALESCE(pv.name, p.name) AS name,
COALESCE(pv.price, p.price) AS price,
p.image AS image_url,
pv.name AS variant_name`

type CartHandler struct {
	DB       *gorm.DB
	Hub      broadcast.Broadcaster
	Producer events.Publisher
}

func (h *CartHandler) loadCart(userID uint) ([]models.CartItemView, error) {
	var items []models.CartItemView
	err := h.DB.Table("cart_items AS ci").
		Select(cartColumns).
		Joins("JOIN products p ON ci.product_id = p.id").
		Joins("LEFT JOIN product_variants pv ON ci.variant_id = pv.id").
		Where("ci.user_id = ?", userID).
		Scan(&items).Error
	if items == nil {
		items = []models.CartItemView{}
	}
	return items, err
}

// broadcastCart re-reads the full cart and pushes it to every connected
// client. Not atomic with the preceding write: a concurrent mutation for the
// same user can make two broadcasts arrive out of order, last publish wins
// at the client.
func (h *CartHandler) broadcastCart(c echo.Context, userID uint) {
	items, err := h.loadCart(userID)
	if err != nil {
		logging.FromContext(c.Request().Context()).Error("cart re-read for broadcast failed", "userID", userID, "error", err)
		return
	}
	h.Hub.Publish(broadcast.ChannelCartUpdate, items)
}

func (h *CartHandler) GetCart(c echo.Context) error {
	userID, err := authmw.UserID(c)
	if err != nil {
		return err
	}

	items, err := h.loadCart(userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}
	return c.JSON(http.StatusOK, items)
}

func (h *CartHandler) AddToCart(c echo.Context) error {
	userID, err := authmw.UserID(c)
	if err != nil {
		return err
	}

	var req struct {
		ProductID uint  `json:"product_id"`
		Quantity  int   `json:"quantity"`
		VariantID *uint `json:"variant_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.ProductID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "product_id is required")
	}
	if req.Quantity < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "quantity must be a positive integer")
	}

	q := h.DB.Where("user_id = ? AND product_id = ?", userID, req.ProductID)
	if req.VariantID != nil {
		q = q.Where("variant_id = ?", *req.VariantID)
	} else {
		q = q.Where("variant_id IS NULL")
	}

	// Idempotent upsert: a second add for the same (user, product, variant)
	// increments quantity on the existing row.
	var item models.CartItem
	err = q.First(&item).Error
	switch {
	case err == nil:
		item.Quantity += uint(req.Quantity)
		if err := h.DB.Save(&item).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "server error")
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		item = models.CartItem{
			UserID:    userID,
			ProductID: req.ProductID,
			VariantID: req.VariantID,
			Quantity:  uint(req.Quantity),
		}
		if err := h.DB.Create(&item).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "server error")
		}
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}

	h.broadcastCart(c, userID)
	publishEvent(c, h.Producer, events.TopicCartEvents, fmt.Sprint(userID), map[string]interface{}{
		"type":      "cart_item_added",
		"userID":    userID,
		"productID": req.ProductID,
		"quantity":  item.Quantity,
	})

	return c.JSON(http.StatusCreated, item)
}

// UpdateQuantity sets the quantity on a row owned by the caller. A value
// below 1 is rejected; removal goes through DELETE.
func (h *CartHandler) UpdateQuantity(c echo.Context) error {
	userID, err := authmw.UserID(c)
	if err != nil {
		return err
	}

	itemID, err := strconv.Atoi(c.Param("itemId"))
	if err != nil || itemID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Quantity < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "quantity must be a positive integer")
	}

	// Filter by both id and owner in one statement, never trusting the id
	// alone.
	tx := h.DB.Model(&models.CartItem{}).
		Where("id = ? AND user_id = ?", itemID, userID).
		Update("quantity", req.Quantity)
	if tx.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}
	if tx.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "cart item not found")
	}

	var item models.CartItem
	if err := h.DB.First(&item, itemID).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}

	h.broadcastCart(c, userID)
	publishEvent(c, h.Producer, events.TopicCartEvents, fmt.Sprint(userID), map[string]interface{}{
		"type":     "cart_item_updated",
		"userID":   userID,
		"itemID":   item.ID,
		"quantity": item.Quantity,
	})

	return c.JSON(http.StatusOK, item)
}

func (h *CartHandler) RemoveItem(c echo.Context) error {
	userID, err := authmw.UserID(c)
	if err != nil {
		return err
	}

	itemID, err := strconv.Atoi(c.Param("itemId"))
	if err != nil || itemID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}

	var item models.CartItem
	if err := h.DB.Where("id = ? AND user_id = ?", itemID, userID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "cart item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}

	if err := h.DB.Delete(&item).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}

	h.broadcastCart(c, userID)
	publishEvent(c, h.Producer, events.TopicCartEvents, fmt.Sprint(userID), map[string]interface{}{
		"type":   "cart_item_removed",
		"userID": userID,
		"itemID": item.ID,
	})

	return c.JSON(http.StatusOK, item)
}
