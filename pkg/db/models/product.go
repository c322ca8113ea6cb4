package models

import "time"

// Product is a catalog entry. Image mirrors the lowest ordered ProductImage.
type Product struct {
	ID           int64          `gorm:"column:id;primaryKey;autoIncrement"`
	Name         string         `gorm:"column:name;not null"`
	Category     string         `gorm:"column:category;not null;index"`
	Folder       string         `gorm:"column:folder;not null;default:''"`
	Features     *string        `gorm:"column:features"`
	Image        string         `gorm:"column:image;not null;default:''"`
	DisplayOrder int            `gorm:"column:display_order;not null;default:0"`
	Images       []ProductImage `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string { return "products" }
