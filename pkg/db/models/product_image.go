package models

import "time"

// ProductImage stores one gallery entry; ImageURL is the object store key.
type ProductImage struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ProductID    int64     `gorm:"column:product_id;not null;uniqueIndex:idx_product_images_product_url"`
	ImageURL     string    `gorm:"column:image_url;not null;uniqueIndex:idx_product_images_product_url"`
	DisplayOrder int       `gorm:"column:display_order;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (ProductImage) TableName() string { return "product_images" }
