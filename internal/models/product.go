// internal/models/product.go
package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Category struct {
	BaseModel
	Name     string `json:"name" gorm:"uniqueIndex;size:100;not null"`
	Slug     string `json:"slug" gorm:"uniqueIndex;size:100;not null"`
	IsActive bool   `json:"is_active" gorm:"not null"`

	Products []Product `json:"products,omitempty" gorm:"foreignKey:CategoryID"`
}

type Product struct {
	BaseModel
	Name        string    `json:"name" gorm:"size:255;not null"`
	Description string    `json:"description" gorm:"type:text"`
	CategoryID  uuid.UUID `json:"category_id" gorm:"type:uuid;not null;index"`
	// Prices in minor currency units. Price > 0, stock >= 0.
	Price         int64          `json:"price" gorm:"not null"`
	OriginalPrice *int64         `json:"original_price,omitempty"`
	Stock         int            `json:"stock" gorm:"not null;default:0"`
	IsActive      bool           `json:"is_active" gorm:"not null;index"`
	IsFeatured    bool           `json:"is_featured" gorm:"default:false"`
	Rating        float64        `json:"rating" gorm:"type:decimal(3,2);default:0"`
	Images        pq.StringArray `json:"images" gorm:"type:text[]"`
	Tags          pq.StringArray `json:"tags" gorm:"type:text[]"`

	// Relationships
	Category Category `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
}
