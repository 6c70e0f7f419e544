package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"krypto_store/internal/middleware"
	"krypto_store/internal/models"
)

type createUserInput struct {
	ID         string           `json:"id"`
	Name       string           `json:"name" binding:"required"`
	Email      string           `json:"email"`
	Role       models.Role      `json:"role"`
	Balance    *decimal.Decimal `json:"balance"`
	Barcode    *string          `json:"barcode"`
	Grade      *string          `json:"grade"`
	SecretCode *string          `json:"secret_code"`
}

// ListUsers lists users; ?role= narrows the list.
func (ctl *Controller) ListUsers(c *gin.Context) {
	users, err := ctl.Store.Users()
	if err != nil {
		respondError(c, err)
		return
	}
	if role := models.Role(c.Query("role")); role != "" {
		filtered := []models.User{}
		for _, u := range users {
			if u.Role == role {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}
	c.JSON(http.StatusOK, gin.H{"data": users})
}

func (ctl *Controller) GetUser(c *gin.Context) {
	user, err := ctl.Store.User(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (ctl *Controller) CreateUser(c *gin.Context) {
	var input createUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	u := models.User{
		ID:         input.ID,
		Name:       input.Name,
		Email:      input.Email,
		Role:       input.Role,
		Balance:    decimal.Zero,
		Barcode:    nonEmpty(input.Barcode),
		Grade:      nonEmpty(input.Grade),
		SecretCode: nonEmpty(input.SecretCode),
	}
	if input.Balance != nil {
		u.Balance = *input.Balance
	}

	user, err := ctl.Store.AddUser(u, actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

func (ctl *Controller) UpdateUser(c *gin.Context) {
	var patch models.UserPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err)
		return
	}
	user, err := ctl.Store.UpdateUser(c.Param("id"), patch, actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (ctl *Controller) DeleteUser(c *gin.Context) {
	if err := ctl.Store.DeleteUser(c.Param("id"), actor(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

type adjustInput struct {
	Amount      *decimal.Decimal `json:"amount" binding:"required"`
	Description string           `json:"description"`
}

// Deposit credits a user's balance.
func (ctl *Controller) Deposit(c *gin.Context) {
	var input adjustInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	tx, err := ctl.Store.Deposit(c.Param("id"), *input.Amount, input.Description, actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transaction": tx})
}

// Deduct debits a user's balance.
func (ctl *Controller) Deduct(c *gin.Context) {
	var input adjustInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	tx, err := ctl.Store.Deduct(c.Param("id"), *input.Amount, input.Description, actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transaction": tx})
}

// LookupStudent finds a student by ?barcode= or ?secret_code= at the terminal.
func (ctl *Controller) LookupStudent(c *gin.Context) {
	var (
		user models.User
		err  error
	)
	switch {
	case c.Query("barcode") != "":
		user, err = ctl.Store.FindUserByBarcode(c.Query("barcode"))
	case c.Query("secret_code") != "":
		user, err = ctl.Store.FindUserBySecretCode(c.Query("secret_code"))
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "barcode or secret_code is required", "kind": "invalid_input"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	// Terminal operators never see a student's login code.
	user.SecretCode = nil
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Me returns the signed-in student.
func (ctl *Controller) Me(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	user, err := ctl.Store.User(claims.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func nonEmpty(p *string) *string {
	if p == nil || *p == "" {
		return nil
	}
	return p
}
