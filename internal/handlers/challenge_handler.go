package handlers

import (
	"net/http"
	"strconv"

	"fitstake/internal/auth"
	"fitstake/internal/blockchain"
	"fitstake/internal/models"
	"fitstake/internal/services"

	"github.com/gin-gonic/gin"
)

// ChallengeHandler exposes the challenge registry over HTTP
type ChallengeHandler struct {
	challengeService *services.ChallengeService
	solanaClient     *blockchain.SolanaClient
	verifyDeposits   bool
}

func NewChallengeHandler(challengeService *services.ChallengeService, solanaClient *blockchain.SolanaClient, verifyDeposits bool) *ChallengeHandler {
	return &ChallengeHandler{
		challengeService: challengeService,
		solanaClient:     solanaClient,
		verifyDeposits:   verifyDeposits,
	}
}

// CreateChallenge creates a new challenge
// POST /api/challenges
func (h *ChallengeHandler) CreateChallenge(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.CreateChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	challenge, err := h.challengeService.CreateChallenge(c.Request.Context(), userID, &req)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, challenge)
}

// GetChallenge retrieves challenge details
// GET /api/challenges/:id
func (h *ChallengeHandler) GetChallenge(c *gin.Context) {
	challengeID, ok := parseChallengeID(c)
	if !ok {
		return
	}

	details, err := h.challengeService.GetChallengeDetails(c.Request.Context(), challengeID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, details)
}

// ListChallenges retrieves challenges with pagination
// GET /api/challenges
func (h *ChallengeHandler) ListChallenges(c *gin.Context) {
	limit := 20
	offset := 0

	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	challenges, err := h.challengeService.ListChallenges(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list challenges"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"challenges": challenges,
		"total":      len(challenges),
	})
}

// JoinChallenge adds the caller to a challenge roster, escrowing the
// entry fee. When on-chain verification is enabled the caller must supply
// the confirmed deposit transaction signature.
// POST /api/challenges/:id/join
func (h *ChallengeHandler) JoinChallenge(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	challengeID, ok := parseChallengeID(c)
	if !ok {
		return
	}

	if h.verifyDeposits {
		var req struct {
			Signature string `json:"signature" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "deposit signature required"})
			return
		}
		confirmed, err := h.solanaClient.VerifyTransaction(c.Request.Context(), req.Signature, 1)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if !confirmed {
			c.JSON(http.StatusBadRequest, gin.H{"error": "transaction not confirmed on blockchain"})
			return
		}
	}

	if err := h.challengeService.JoinChallenge(c.Request.Context(), userID, challengeID); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "joined"})
}

// SubmitProof records the caller's completion proof
// POST /api/challenges/:id/submissions
func (h *ChallengeHandler) SubmitProof(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	challengeID, ok := parseChallengeID(c)
	if !ok {
		return
	}

	var req models.SubmitProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.challengeService.SubmitProof(c.Request.Context(), userID, challengeID, req.ProofURI); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "proof submitted"})
}

// Vote casts the caller's ballot on a participant's submission
// POST /api/challenges/:id/votes
func (h *ChallengeHandler) Vote(c *gin.Context) {
	voterID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	challengeID, ok := parseChallengeID(c)
	if !ok {
		return
	}

	var req models.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.challengeService.Vote(c.Request.Context(), voterID, challengeID, req.ParticipantID, req.Approve); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "vote recorded"})
}

// DistributeRewards settles an ended challenge
// POST /api/challenges/:id/distribute
func (h *ChallengeHandler) DistributeRewards(c *gin.Context) {
	if _, exists := auth.GetUserID(c); !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	challengeID, ok := parseChallengeID(c)
	if !ok {
		return
	}

	if err := h.challengeService.DistributeRewards(c.Request.Context(), challengeID); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "rewards distributed"})
}

// CancelChallenge cancels an active challenge and refunds the roster
// POST /api/challenges/:id/cancel
func (h *ChallengeHandler) CancelChallenge(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	challengeID, ok := parseChallengeID(c)
	if !ok {
		return
	}

	if err := h.challengeService.CancelChallenge(c.Request.Context(), userID, challengeID); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "challenge cancelled"})
}

// GetParticipants returns the roster in join order
// GET /api/challenges/:id/participants
func (h *ChallengeHandler) GetParticipants(c *gin.Context) {
	challengeID, ok := parseChallengeID(c)
	if !ok {
		return
	}

	participants, err := h.challengeService.ListParticipants(c.Request.Context(), challengeID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"participants": participants,
		"total":        len(participants),
	})
}

// GetSubmissions returns all submissions for a challenge
// GET /api/challenges/:id/submissions
func (h *ChallengeHandler) GetSubmissions(c *gin.Context) {
	challengeID, ok := parseChallengeID(c)
	if !ok {
		return
	}

	submissions, err := h.challengeService.ListSubmissions(c.Request.Context(), challengeID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"submissions": submissions,
		"total":       len(submissions),
	})
}

// GetSubmissionVotes returns the voting state of a participant's submission
// GET /api/challenges/:id/submissions/:participantId/votes
func (h *ChallengeHandler) GetSubmissionVotes(c *gin.Context) {
	challengeID, ok := parseChallengeID(c)
	if !ok {
		return
	}

	participantID, err := strconv.ParseUint(c.Param("participantId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid participant id"})
		return
	}

	votes, err := h.challengeService.GetSubmissionVotes(c.Request.Context(), challengeID, uint(participantID))
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, votes)
}

// parseChallengeID extracts the numeric challenge id from the route,
// writing the error response itself on failure
func parseChallengeID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid challenge id"})
		return 0, false
	}
	return uint(id), true
}
