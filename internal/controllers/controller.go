package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"krypto_store/internal/ledger"
	"krypto_store/internal/middleware"
	"krypto_store/internal/models"
	"krypto_store/internal/realtime"
	"krypto_store/internal/receipts"
)

// OperatorStore looks up and creates account logins.
type OperatorStore interface {
	Create(ctx context.Context, email, passwordHash string) (models.Operator, error)
	FindByEmail(ctx context.Context, email string) (models.Operator, error)
}

// Controller holds what the HTTP handlers share. Receipts and Hub are
// optional.
type Controller struct {
	Store     *ledger.Store
	Operators OperatorStore
	Tokens    *middleware.TokenIssuer
	Receipts  receipts.Repository
	Hub       *realtime.LedgerHub
}

var kindStatus = map[string]int{
	"not_found":               http.StatusNotFound,
	"insufficient_funds":      http.StatusUnprocessableEntity,
	"insufficient_stock":      http.StatusUnprocessableEntity,
	"invalid_amount":          http.StatusBadRequest,
	"invalid_input":           http.StatusBadRequest,
	"no_active_account":       http.StatusConflict,
	"persistence_unavailable": http.StatusServiceUnavailable,
	"conflict":                http.StatusConflict,
	"reset_not_confirmed":     http.StatusForbidden,
	"invalid_credentials":     http.StatusUnauthorized,
}

// respondError writes a ledger error as {"error", "kind"} with a status that
// matches its kind.
func respondError(c *gin.Context, err error) {
	kind := ledger.Kind(err)
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
		logrus.WithError(err).WithField("path", c.FullPath()).Error("Unhandled ledger error")
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": kind})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "invalid_input"})
}

// actor names the caller for the createdBy / updatedBy stamps.
func actor(c *gin.Context) string {
	if claims := middleware.ClaimsFrom(c); claims != nil {
		return claims.Actor
	}
	return ledger.SystemActor
}
