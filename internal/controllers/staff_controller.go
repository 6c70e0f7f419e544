package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"krypto_store/internal/models"
)

// Workers and employees share these handlers; roster picks the collection.

func (ctl *Controller) ListStaff(roster models.Roster) gin.HandlerFunc {
	return func(c *gin.Context) {
		staff, err := ctl.Store.Staff(roster)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": staff})
	}
}

func (ctl *Controller) CreateStaff(roster models.Roster) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			ID       string `json:"id"`
			Name     string `json:"name" binding:"required"`
			Email    string `json:"email" binding:"required,email"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		member, err := ctl.Store.AddStaff(roster, models.Staff{
			ID:       input.ID,
			Name:     input.Name,
			Email:    input.Email,
			Password: input.Password,
		}, actor(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"staff": member})
	}
}

func (ctl *Controller) UpdateStaff(roster models.Roster) gin.HandlerFunc {
	return func(c *gin.Context) {
		var patch models.StaffPatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			badRequest(c, err)
			return
		}
		member, err := ctl.Store.UpdateStaff(roster, c.Param("id"), patch, actor(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"staff": member})
	}
}

func (ctl *Controller) DeleteStaff(roster models.Roster) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := ctl.Store.DeleteStaff(roster, c.Param("id"), actor(c)); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Staff member deleted"})
	}
}
