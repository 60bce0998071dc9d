package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/skvortsovm/storefront/internal/broadcast"
	"github.com/skvortsovm/storefront/internal/events"
	"github.com/skvortsovm/storefront/internal/logging"
	"github.com/skvortsovm/storefront/internal/models"
	"github.com/skvortsovm/storefront/internal/service/search"
)

const productColumns = "p.id, p.name, p.description, p.price, p.image, p.stock, p.badge, c.name AS category, b.name AS brand"

type ProductHandler struct {
	DB       *gorm.DB
	Hub      broadcast.Broadcaster
	Producer events.Publisher
	ES       *elasticsearch.Client
	Index    string
}

type productRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
	Stock       uint    `json:"stock"`
	Badge       string  `json:"badge"`
	CategoryID  uint    `json:"category_id"`
	BrandID     uint    `json:"brand_id"`
}

func (r *productRequest) validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if r.Price <= 0 {
		return errors.New("price must be positive")
	}
	if r.CategoryID == 0 || r.BrandID == 0 {
		return errors.New("category_id and brand_id are required")
	}
	return nil
}

func (h *ProductHandler) productQuery() *gorm.DB {
	return h.DB.Table("products AS p").
		Select(productColumns).
		Joins("JOIN categories c ON p.category_id = c.id").
		Joins("JOIN brands b ON p.brand_id = b.id")
}

// GetProducts returns the whole catalog; filtering and sorting are a client
// concern.
func (h *ProductHandler) GetProducts(c echo.Context) error {
	var items []models.ProductView
	if err := h.productQuery().Scan(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}
	if items == nil {
		items = []models.ProductView{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	var view models.ProductView
	if err := h.productQuery().Where("p.id = ?", id).Take(&view).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}

	var variants []models.ProductVariant
	if err := h.DB.Where("product_id = ?", id).Find(&variants).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}

	var specs []models.ProductSpecification
	if err := h.DB.Where("product_id = ?", id).Order("id").Find(&specs).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}

	detail := models.ProductDetail{
		ProductView:    view,
		Variants:       variants,
		Specifications: groupSpecs(specs),
	}
	return c.JSON(http.StatusOK, detail)
}

func groupSpecs(specs []models.ProductSpecification) []models.SpecGroup {
	groups := make([]models.SpecGroup, 0)
	index := map[string]int{}
	for _, s := range specs {
		i, ok := index[s.Title]
		if !ok {
			i = len(groups)
			index[s.Title] = i
			groups = append(groups, models.SpecGroup{Title: s.Title})
		}
		groups[i].Specs = append(groups[i].Specs, models.SpecEntry{Key: s.Key, Value: s.Value})
	}
	return groups
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	var req productRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := req.validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	prod := models.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Image:       req.Image,
		Stock:       req.Stock,
		Badge:       req.Badge,
		CategoryID:  req.CategoryID,
		BrandID:     req.BrandID,
	}
	if err := h.DB.Create(&prod).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}

	h.Hub.Publish(broadcast.ChannelProductCreated, prod)
	h.indexProduct(c, prod)
	publishEvent(c, h.Producer, events.TopicProductEvents, fmt.Sprint(prod.ID), map[string]interface{}{
		"type":      "product_created",
		"productID": prod.ID,
		"name":      prod.Name,
	})

	return c.JSON(http.StatusCreated, prod)
}

func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	var req productRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := req.validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var prod models.Product
	if err := h.DB.First(&prod, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}

	prod.Name = req.Name
	prod.Description = req.Description
	prod.Price = req.Price
	prod.Image = req.Image
	prod.Stock = req.Stock
	prod.Badge = req.Badge
	prod.CategoryID = req.CategoryID
	prod.BrandID = req.BrandID

	if err := h.DB.Save(&prod).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}

	h.Hub.Publish(broadcast.ChannelProductUpdated, prod)
	h.indexProduct(c, prod)
	publishEvent(c, h.Producer, events.TopicProductEvents, fmt.Sprint(prod.ID), map[string]interface{}{
		"type":      "product_updated",
		"productID": prod.ID,
		"name":      prod.Name,
	})

	return c.JSON(http.StatusOK, prod)
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	var prod models.Product
	if err := h.DB.First(&prod, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}

	if err := h.DB.Delete(&prod).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "server error")
	}

	h.Hub.Publish(broadcast.ChannelProductDeleted, echo.Map{"id": prod.ID})
	h.deindexProduct(c, prod.ID)
	publishEvent(c, h.Producer, events.TopicProductEvents, fmt.Sprint(prod.ID), map[string]interface{}{
		"type":      "product_deleted",
		"productID": prod.ID,
	})

	return c.JSON(http.StatusOK, echo.Map{"message": "product deleted"})
}

// Index maintenance is best-effort: a search outage must not fail catalog
// writes.
func (h *ProductHandler) indexProduct(c echo.Context, prod models.Product) {
	if h.ES == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), publishTimeout)
	defer cancel()
	if err := search.IndexProduct(ctx, h.ES, h.Index, prod); err != nil {
		logging.FromContext(c.Request().Context()).Error("product index failed", "productID", prod.ID, "error", err)
	}
}

func (h *ProductHandler) deindexProduct(c echo.Context, id uint) {
	if h.ES == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), publishTimeout)
	defer cancel()
	if err := search.DeleteProduct(ctx, h.ES, h.Index, id); err != nil {
		logging.FromContext(c.Request().Context()).Error("product deindex failed", "productID", id, "error", err)
	}
}
