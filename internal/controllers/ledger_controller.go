package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"krypto_store/internal/ledger"
	"krypto_store/internal/middleware"
	"krypto_store/internal/models"
)

// transactionView adds the display name of a transfer's other side. Users
// that no longer exist show as "Unknown".
type transactionView struct {
	models.Transaction
	CounterpartName string `json:"counterpart_name,omitempty"`
}

func (ctl *Controller) views(txs []models.Transaction) []transactionView {
	out := make([]transactionView, len(txs))
	for i, t := range txs {
		out[i] = transactionView{Transaction: t}
		if id, ok := t.Counterpart(); ok {
			out[i].CounterpartName = ctl.Store.UserName(id)
		}
	}
	return out
}

// Purchase sells one product to a student.
func (ctl *Controller) Purchase(c *gin.Context) {
	var input struct {
		StudentID string `json:"student_id" binding:"required"`
		ProductID string `json:"product_id" binding:"required"`
		Quantity  int    `json:"quantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	tx, err := ctl.Store.Purchase(input.StudentID, input.ProductID, input.Quantity, actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	ctl.recordReceipt(c, tx)
	c.JSON(http.StatusCreated, gin.H{"transaction": tx})
}

// Checkout sells a whole cart to a student.
func (ctl *Controller) Checkout(c *gin.Context) {
	var input struct {
		StudentID string            `json:"student_id" binding:"required"`
		Items     []ledger.CartLine `json:"items" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	tx, err := ctl.Store.Checkout(input.StudentID, input.Items, actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	ctl.recordReceipt(c, tx)
	c.JSON(http.StatusCreated, gin.H{"transaction": tx})
}

// Transfer moves balance between any two users.
func (ctl *Controller) Transfer(c *gin.Context) {
	var input struct {
		FromID string           `json:"from_id" binding:"required"`
		ToID   string           `json:"to_id" binding:"required"`
		Amount *decimal.Decimal `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	pair, err := ctl.Store.Transfer(input.FromID, input.ToID, *input.Amount, actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transactions": pair})
}

// StudentTransfer sends from the signed-in student's own balance.
func (ctl *Controller) StudentTransfer(c *gin.Context) {
	var input struct {
		ToID   string           `json:"to_id" binding:"required"`
		Amount *decimal.Decimal `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	claims := middleware.ClaimsFrom(c)
	pair, err := ctl.Store.Transfer(claims.UserID, input.ToID, *input.Amount, claims.Actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transactions": pair})
}

// ListTransactions lists transactions newest first, filtered by ?type= and
// ?student_id=.
func (ctl *Controller) ListTransactions(c *gin.Context) {
	txs, err := ctl.Store.Transactions(ledger.TransactionFilter{
		Type:      models.TransactionType(c.Query("type")),
		StudentID: c.Query("student_id"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": ctl.views(txs)})
}

// MyTransactions lists the signed-in student's transactions.
func (ctl *Controller) MyTransactions(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	txs, err := ctl.Store.TransactionsFor(claims.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": ctl.views(txs)})
}

// ClearHistory deletes transactions by ?type= or ?student_id=.
func (ctl *Controller) ClearHistory(c *gin.Context) {
	removed, err := ctl.Store.ClearHistory(ledger.HistoryFilter{
		Type:      models.TransactionType(c.Query("type")),
		StudentID: c.Query("student_id"),
	}, actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (ctl *Controller) GetExchangeRate(c *gin.Context) {
	rate, err := ctl.Store.ExchangeRate()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exchange_rate": rate})
}

func (ctl *Controller) UpdateExchangeRate(c *gin.Context) {
	var input struct {
		KshToKrypto *decimal.Decimal `json:"ksh_to_krypto" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	rate, err := ctl.Store.UpdateExchangeRate(*input.KshToKrypto, actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exchange_rate": rate})
}

// Convert converts ?ksh= to Krypto Bucks or ?krypto= to shillings.
func (ctl *Controller) Convert(c *gin.Context) {
	if v := c.Query("ksh"); v != "" {
		ksh, err := decimal.NewFromString(v)
		if err != nil {
			badRequest(c, err)
			return
		}
		krypto, err := ctl.Store.KshToKrypto(ksh)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ksh": ksh, "krypto": krypto})
		return
	}
	if v := c.Query("krypto"); v != "" {
		krypto, err := decimal.NewFromString(v)
		if err != nil {
			badRequest(c, err)
			return
		}
		ksh, err := ctl.Store.KryptoToKsh(krypto)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ksh": ksh, "krypto": krypto})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "ksh or krypto is required", "kind": "invalid_input"})
}

// FactoryReset wipes the account back to the seed data. The body must carry
// the confirmation phrase.
func (ctl *Controller) FactoryReset(c *gin.Context) {
	var input struct {
		Confirmation string `json:"confirmation" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	if err := ctl.Store.FactoryReset(input.Confirmation, actor(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Store reset to seed data"})
}

func (ctl *Controller) Backup(c *gin.Context) {
	snap, err := ctl.Store.Export()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": ctl.Store.ActiveAccount(), "snapshot": snap})
}

func (ctl *Controller) Restore(c *gin.Context) {
	var input struct {
		Snapshot *models.Snapshot `json:"snapshot" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	if err := ctl.Store.Restore(*input.Snapshot, actor(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Backup restored"})
}

func (ctl *Controller) Stats(c *gin.Context) {
	stats, err := ctl.Store.Stats()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

// Status reports the active account and whether its last save worked.
func (ctl *Controller) Status(c *gin.Context) {
	st := ctl.Store.Status()
	resp := gin.H{"status": st}
	if ctl.Hub != nil {
		resp["live_clients"] = ctl.Hub.Clients(st.Account)
	}
	c.JSON(http.StatusOK, resp)
}
