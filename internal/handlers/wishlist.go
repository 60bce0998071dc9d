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

const wishlistColumns = `w.id, w.user_id, w.product_id, w.variant_id,
COALESCE(pv.name, p.name) AS name,
COALESCE(pv.price, p.price) AS price,
p.image AS image_url,
pv.name AS variant_name`

type WishlistHandler struct {
	DB       *gorm.DB
	Hub      broadcast.Broadcaster
	Producer events.Publisher
}

func (h *WishlistHandler) loadWishlist(userID uint) ([]models.WishlistItemView, error) {
	var items []models.WishlistItemView
	err := h.DB.Table("wishlist_items AS w").
		Select(wishlistColumns).
		Joins("JOIN products p ON w.product_id = p.id").
		Joins("LEFT JOIN product_variants pv ON w.variant_id = pv.id").
		Where("w.user_id = ?", userID).
		Scan(&items).Error
	if items == nil {
		items = []models.WishlistItemView{}
	}
	return items, err
}

func (h *WishlistHandler) broadcastWishlist(c echo.Context, userID uint) {
	items, err := h.loadWishlist(userID)
	if err != nil {
		logging.FromContext(c.Request().Context()).Error("wishlist re-read for broadcast failed", "userID", userID, "error", err)
		return
	}
	h.Hub.Publish(broadcast.ChannelWishlistUpdate, items)
}

func (h *WishlistHandler) GetWishlist(c echo.Context) error {
	userID, err := authmw.UserID(c)
	if err != nil {
		return err
	}

	items, err := h.loadWishlist(userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}
	return c.JSON(http.StatusOK, items)
}

// AddItem is insert-or-ignore: a duplicate (user, product, variant) triple
// is a no-op reported as "already in wishlist", not an error, and skips the
// broadcast.
func (h *WishlistHandler) AddItem(c echo.Context) error {
	userID, err := authmw.UserID(c)
	if err != nil {
		return err
	}

	var req struct {
		ProductID uint  `json:"product_id"`
		VariantID *uint `json:"variant_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.ProductID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "product_id is required")
	}

	q := h.DB.Where("user_id = ? AND product_id = ?", userID, req.ProductID)
	if req.VariantID != nil {
		q = q.Where("variant_id = ?", *req.VariantID)
	} else {
		q = q.Where("variant_id IS NULL")
	}

	var existing models.WishlistItem
	err = q.First(&existing).Error
	if err == nil {
		return c.JSON(http.StatusOK, echo.Map{"message": "item already in wishlist"})
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}

	item := models.WishlistItem{
		UserID:    userID,
		ProductID: req.ProductID,
		VariantID: req.VariantID,
	}
	if err := h.DB.Create(&item).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}

	h.broadcastWishlist(c, userID)
	publishEvent(c, h.Producer, events.TopicWishlistEvents, fmt.Sprint(userID), map[string]interface{}{
		"type":      "wishlist_item_added",
		"userID":    userID,
		"productID": req.ProductID,
	})

	return c.JSON(http.StatusCreated, item)
}

func (h *WishlistHandler) RemoveItem(c echo.Context) error {
	userID, err := authmw.UserID(c)
	if err != nil {
		return err
	}

	itemID, err := strconv.Atoi(c.Param("itemId"))
	if err != nil || itemID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}

	var item models.WishlistItem
	if err := h.DB.Where("id = ? AND user_id = ?", itemID, userID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "item not found in wishlist")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}

	if err := h.DB.Delete(&item).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}

	h.broadcastWishlist(c, userID)
	publishEvent(c, h.Producer, events.TopicWishlistEvents, fmt.Sprint(userID), map[string]interface{}{
		"type":   "wishlist_item_removed",
		"userID": userID,
		"itemID": item.ID,
	})

	return c.JSON(http.StatusOK, echo.Map{"message": "item removed from wishlist"})
}
