package models

// Read models for the joined queries. Name and Price fall back from the
// selected variant to the base product (COALESCE in the query).

type ProductView struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
	Stock       uint    `json:"stock"`
	Badge       string  `json:"badge,omitempty"`
	Category    string  `json:"category"`
	Brand       string  `json:"brand"`
}

type SpecEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type SpecGroup struct {
	Title string      `json:"title"`
	Specs []SpecEntry `json:"specs"`
}

type ProductDetail struct {
	ProductView
	Variants       []ProductVariant `json:"variants"`
	Specifications []SpecGroup      `json:"specifications"`
}

type CartItemView struct {
	ID          uint    `json:"id"`
	UserID      uint    `json:"user_id"`
	ProductID   uint    `json:"product_id"`
	VariantID   *uint   `json:"variant_id"`
	Quantity    uint    `json:"quantity"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"image_url"`
	VariantName *string `json:"variant_name"`
}

type WishlistItemView struct {
	ID          uint    `json:"id"`
	UserID      uint    `json:"user_id"`
	ProductID   uint    `json:"product_id"`
	VariantID   *uint   `json:"variant_id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"image_url"`
	VariantName *string `json:"variant_name"`
}
