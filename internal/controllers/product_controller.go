package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"krypto_store/internal/models"
)

type createProductInput struct {
	ID       string           `json:"id"`
	Name     string           `json:"name" binding:"required"`
	Category string           `json:"category"`
	Price    *decimal.Decimal `json:"price" binding:"required"`
	Stock    int              `json:"stock"`
}

// ListProducts lists products; ?category= narrows the list.
func (ctl *Controller) ListProducts(c *gin.Context) {
	products, err := ctl.Store.Products()
	if err != nil {
		respondError(c, err)
		return
	}
	if category := c.Query("category"); category != "" {
		filtered := []models.Product{}
		for _, p := range products {
			if p.Category == category {
				filtered = append(filtered, p)
			}
		}
		products = filtered
	}
	c.JSON(http.StatusOK, gin.H{"data": products})
}

func (ctl *Controller) CreateProduct(c *gin.Context) {
	var input createProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	product, err := ctl.Store.AddProduct(models.Product{
		ID:       input.ID,
		Name:     input.Name,
		Category: input.Category,
		Price:    *input.Price,
		Stock:    input.Stock,
	}, actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"product": product})
}

func (ctl *Controller) UpdateProduct(c *gin.Context) {
	var patch models.ProductPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err)
		return
	}
	product, err := ctl.Store.UpdateProduct(c.Param("id"), patch, actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

func (ctl *Controller) RestockProduct(c *gin.Context) {
	var input struct {
		Quantity int `json:"quantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	product, err := ctl.Store.Restock(c.Param("id"), input.Quantity, actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

func (ctl *Controller) DeleteProduct(c *gin.Context) {
	if err := ctl.Store.DeleteProduct(c.Param("id"), actor(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}
