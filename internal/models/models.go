package models

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"  json:"id"`
	Username     string `gorm:"not null"                  json:"username"`
	Email        string `gorm:"unique;not null"           json:"email"`
	PasswordHash string `gorm:"not null"                  json:"-"`
	Role         string `gorm:"not null;default:customer" json:"role"`
}

type Category struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"unique;not null"          json:"name"`
}

type Brand struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"unique;not null"          json:"name"`
}

type Product struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string  `gorm:"not null"                 json:"name"`
	Description string  `json:"description"`
	Price       float64 `gorm:"not null"                 json:"price"`
	Image       string  `json:"image"`
	Stock       uint    `json:"stock"`
	Badge       string  `json:"badge,omitempty"`
	CategoryID  uint    `gorm:"index;not null"           json:"category_id"`
	BrandID     uint    `gorm:"index;not null"           json:"brand_id"`
}

// ProductVariant overrides the base product's name and price when selected.
type ProductVariant struct {
	ID        uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID uint    `gorm:"index;not null"           json:"product_id"`
	Name      string  `gorm:"not null"                 json:"name"`
	Price     float64 `gorm:"not null"                 json:"price"`
}

type ProductSpecification struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID uint   `gorm:"index;not null"           json:"product_id"`
	Title     string `gorm:"not null"                 json:"title"`
	Key       string `gorm:"not null;column:spec_key" json:"key"`
	Value     string `gorm:"not null"                 json:"value"`
}

// CartItem holds at most one row per (user, product, variant) triple;
// a repeated add increments Quantity on the existing row.
type CartItem struct {
	ID        uint  `gorm:"primaryKey;autoIncrement"                   json:"id"`
	UserID    uint  `gorm:"not null;uniqueIndex:idx_cart_user_product" json:"user_id"`
	ProductID uint  `gorm:"not null;uniqueIndex:idx_cart_user_product" json:"product_id"`
	VariantID *uint `gorm:"uniqueIndex:idx_cart_user_product"          json:"variant_id"`
	Quantity  uint  `gorm:"not null;check:quantity>0"                  json:"quantity"`
}

type WishlistItem struct {
	ID        uint  `gorm:"primaryKey;autoIncrement"                   json:"id"`
	UserID    uint  `gorm:"not null;uniqueIndex:idx_wish_user_product" json:"user_id"`
	ProductID uint  `gorm:"not null;uniqueIndex:idx_wish_user_product" json:"product_id"`
	VariantID *uint `gorm:"uniqueIndex:idx_wish_user_product"          json:"variant_id"`
}
