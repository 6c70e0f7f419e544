package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"krypto_store/internal/middleware"
	"krypto_store/internal/models"
	"krypto_store/internal/receipts"
)

const receiptTimeout = 5 * time.Second

// recordReceipt stores a receipt for a completed purchase. The sale has
// already happened, so failures are only logged.
func (ctl *Controller) recordReceipt(c *gin.Context, tx models.Transaction) {
	if ctl.Receipts == nil {
		return
	}
	student, err := ctl.Store.User(tx.StudentID)
	if err != nil {
		logrus.WithError(err).WithField("transaction_id", tx.ID).Warn("Receipt skipped, student not found.")
		return
	}
	rec, err := receipts.FromTransaction(receiptAccount(c), tx, student.Balance)
	if err != nil {
		logrus.WithError(err).WithField("transaction_id", tx.ID).Warn("Could not build receipt.")
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), receiptTimeout)
	defer cancel()
	if _, err := ctl.Receipts.Create(ctx, rec); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"transaction_id": tx.ID,
			"student_id":     tx.StudentID,
		}).Warn("Could not store receipt.")
	}
}

// receiptAccount is the store account the caller's token was issued for.
func receiptAccount(c *gin.Context) string {
	if claims := middleware.ClaimsFrom(c); claims != nil {
		return claims.Account
	}
	return ""
}

func (ctl *Controller) receiptsEnabled(c *gin.Context) bool {
	if ctl.Receipts == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Receipt history is not configured", "kind": "persistence_unavailable"})
		return false
	}
	return true
}

func (ctl *Controller) listReceipts(c *gin.Context, studentID string) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), receiptTimeout)
	defer cancel()
	list, err := ctl.Receipts.ListByStudent(ctx, receiptAccount(c), studentID)
	if err != nil {
		logrus.WithError(err).WithField("student_id", studentID).Error("Could not list receipts.")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Could not load receipts", "kind": "persistence_unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

// StudentReceipts lists a student's receipts, newest first.
func (ctl *Controller) StudentReceipts(c *gin.Context) {
	if !ctl.receiptsEnabled(c) {
		return
	}
	ctl.listReceipts(c, c.Param("id"))
}

// MyReceipts lists the signed-in student's receipts.
func (ctl *Controller) MyReceipts(c *gin.Context) {
	if !ctl.receiptsEnabled(c) {
		return
	}
	ctl.listReceipts(c, middleware.ClaimsFrom(c).UserID)
}

func (ctl *Controller) DeleteReceipt(c *gin.Context) {
	if !ctl.receiptsEnabled(c) {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), receiptTimeout)
	defer cancel()
	if err := ctl.Receipts.Delete(ctx, receiptAccount(c), c.Param("id")); err != nil {
		if errors.Is(err, receipts.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Receipt not found", "kind": "not_found"})
			return
		}
		logrus.WithError(err).Error("Could not delete receipt.")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Could not delete receipt", "kind": "persistence_unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Receipt deleted"})
}
