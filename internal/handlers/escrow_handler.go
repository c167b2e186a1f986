package handlers

import (
	"net/http"

	"fitstake/internal/auth"
	"fitstake/internal/models"
	"fitstake/internal/services"

	"github.com/gin-gonic/gin"
)

// EscrowHandler exposes escrow ledger queries, fee withdrawal and the
// wallet funding endpoint
type EscrowHandler struct {
	escrowService *services.EscrowService
	walletService *services.WalletService
	authService   *services.AuthService
}

func NewEscrowHandler(escrowService *services.EscrowService, walletService *services.WalletService, authService *services.AuthService) *EscrowHandler {
	return &EscrowHandler{
		escrowService: escrowService,
		walletService: walletService,
		authService:   authService,
	}
}

// GetChallengeBalance returns the custody balance for a challenge
// GET /api/escrow/challenges/:id/balance
func (h *EscrowHandler) GetChallengeBalance(c *gin.Context) {
	challengeID, ok := parseChallengeID(c)
	if !ok {
		return
	}

	balance, err := h.escrowService.GetChallengeBalance(c.Request.Context(), challengeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get balance"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"challenge_id":    challengeID,
		"balance":         balance,
		"balance_display": models.DisplayAmount(balance),
	})
}

// GetChallengeTransactions returns the custody journal for a challenge
// GET /api/escrow/challenges/:id/transactions
func (h *EscrowHandler) GetChallengeTransactions(c *gin.Context) {
	challengeID, ok := parseChallengeID(c)
	if !ok {
		return
	}

	transactions, err := h.escrowService.GetChallengeTransactions(c.Request.Context(), challengeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get transactions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": transactions,
		"total":        len(transactions),
	})
}

// GetPlatformFees returns the accrued platform fee pool balance
// GET /api/escrow/fees
func (h *EscrowHandler) GetPlatformFees(c *gin.Context) {
	fees, err := h.escrowService.GetPlatformFees(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get fees"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"balance":         fees,
		"balance_display": models.DisplayAmount(fees),
	})
}

// WithdrawPlatformFees debits the fee pool to the admin wallet
// POST /api/escrow/fees/withdraw
func (h *EscrowHandler) WithdrawPlatformFees(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req struct {
		Amount int64 `json:"amount" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	caller, err := h.authService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	if err := h.escrowService.WithdrawPlatformFees(c.Request.Context(), caller, req.Amount); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "fees withdrawn"})
}

// GetWallet returns the caller's external balance
// GET /api/wallet
func (h *EscrowHandler) GetWallet(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	balance, err := h.walletService.GetBalance(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get balance"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"balance":         balance,
		"balance_display": models.DisplayAmount(balance),
	})
}

// FundWallet credits the caller's external balance. Called by the payment
// relay after an on-chain transfer confirms.
// POST /api/wallet/fund
func (h *EscrowHandler) FundWallet(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req struct {
		Amount int64 `json:"amount" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.walletService.Credit(c.Request.Context(), userID, req.Amount); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	balance, err := h.walletService.GetBalance(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get balance"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"balance": balance,
	})
}
