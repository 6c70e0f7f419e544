package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"krypto_store/internal/ledger"
	"krypto_store/internal/models"
	"krypto_store/internal/storage"
)

type credentialsInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// Signup creates an account login and makes the new account active.
func (ctl *Controller) Signup(c *gin.Context) {
	var input credentialsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	email := ledger.NormalizeAccountKey(input.Email)

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not hash password"})
		return
	}

	if _, err := ctl.Operators.Create(c.Request.Context(), email, string(hashed)); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already in use", "kind": "conflict"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create account: " + err.Error()})
		return
	}

	ctl.openAccount(c, http.StatusCreated, email)
}

// Login checks an account login and switches the ledger to that account.
func (ctl *Controller) Login(c *gin.Context) {
	var input credentialsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	email := ledger.NormalizeAccountKey(input.Email)

	op, err := ctl.Operators.FindByEmail(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "account not found or invalid credentials", "kind": "invalid_credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error: " + err.Error()})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "incorrect password", "kind": "invalid_credentials"})
		return
	}

	ctl.openAccount(c, http.StatusOK, email)
}

func (ctl *Controller) openAccount(c *gin.Context, status int, email string) {
	if err := ctl.Store.SwitchAccount(email); err != nil {
		respondError(c, err)
		return
	}
	token, err := ctl.Tokens.GenerateToken(email, email, models.RoleAdmin, "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate token"})
		return
	}
	logrus.WithField("account", email).Info("Operator signed in.")
	c.JSON(status, gin.H{"token": token, "account": email, "role": models.RoleAdmin})
}

// WorkerLogin signs a worker in to the active account.
func (ctl *Controller) WorkerLogin(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	worker, account, err := ctl.Store.AuthenticateWorker(input.Email, input.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	token, err := ctl.Tokens.GenerateToken(account, worker.Email, models.RoleWorker, "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "account": account, "role": models.RoleWorker, "worker": worker.Name})
}

// StudentLogin signs a student in with their secret code.
func (ctl *Controller) StudentLogin(c *gin.Context) {
	var input struct {
		SecretCode string `json:"secret_code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	student, account, err := ctl.Store.AuthenticateStudent(strings.TrimSpace(input.SecretCode))
	if err != nil {
		respondError(c, err)
		return
	}
	token, err := ctl.Tokens.GenerateToken(account, student.ID, models.RoleStudent, student.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "account": account, "role": models.RoleStudent, "user": student})
}
