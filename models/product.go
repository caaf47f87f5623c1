package models

import "time"

type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Stock       int       `json:"stock"`
	Category    string    `json:"category"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreateProductRequest struct {
	Name        string  `json:"name" form:"name" binding:"required,min=3,max=100"`
	Description string  `json:"description" form:"description" binding:"required,min=10"`
	Price       float64 `json:"price" form:"price" binding:"required,gt=0"`
	Stock       int     `json:"stock" form:"stock" binding:"gte=0"`
	Category    string  `json:"category" form:"category" binding:"required"`
	ImageURL    string  `json:"image_url" form:"image_url" binding:"omitempty,url"`
}

// UpdateProductRequest carries merge-patch semantics: nil fields are
// left unchanged.
type UpdateProductRequest struct {
	Name        *string  `json:"name" form:"name" binding:"omitempty,min=3,max=100"`
	Description *string  `json:"description" form:"description" binding:"omitempty,min=10"`
	Price       *float64 `json:"price" form:"price" binding:"omitempty,gt=0"`
	Stock       *int     `json:"stock" form:"stock" binding:"omitempty,gte=0"`
	Category    *string  `json:"category" form:"category" binding:"omitempty,min=1"`
	ImageURL    *string  `json:"image_url" form:"image_url" binding:"omitempty,url"`
}

type ProductPage struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	Limit    int       `json:"limit"`
}
