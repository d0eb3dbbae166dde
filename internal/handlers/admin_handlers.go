package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/01moynul/seller-console/internal/models"
	"github.com/01moynul/seller-console/internal/verification"
)

//
// --- Reviewer: Document Review Handlers ---
//

type DocumentReviewInput struct {
	Status models.DocumentStatus `json:"status" binding:"required"`
	Reason string                `json:"reason"`
}

// ReviewDocument is the handler for PATCH /v1/reviewer/sellers/:id/documents/:category
// It sets one category's status, notifies the seller and recomputes the
// overall status. A seller whose four documents are approved is approved.
func (h *Handlers) ReviewDocument(c *gin.Context) {
	ctx := c.Request.Context()
	sellerID := c.Param("id")

	// 1. --- Validate Input ---
	category, ok := documentCategory(c)
	if !ok {
		return
	}
	var input DocumentReviewInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !input.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid document status"})
		return
	}

	// 2. --- Transition and Persist ---
	sess, ok := h.session(c, sellerID)
	if !ok {
		return
	}
	approve := func(st verification.State) error {
		if st.VerificationStatus.Overall != models.OverallApproved {
			return nil
		}
		if err := h.Sellers.SetStatus(ctx, sellerID, models.SellerStatusApproved, true); err != nil {
			return fmt.Errorf("approve seller: %w", err)
		}
		return nil
	}
	st, err := h.updateVerification(ctx, sess, sellerID, func(st verification.State) (verification.State, error) {
		if input.Status != models.DocNotUploaded && st.Documents.Get(category) == nil {
			return st, errNoDocument
		}
		return sess.Review(st, category, input.Status, input.Reason), nil
	}, approve)
	switch {
	case errors.Is(err, errNoDocument):
		c.JSON(http.StatusConflict, gin.H{"error": "No document uploaded for this category"})
		return
	case err != nil:
		h.verificationError(c, sellerID, "Failed to save verification status", err)
		return
	}

	h.logger().Info("document reviewed",
		zap.String("sellerId", sellerID),
		zap.String("category", string(category)),
		zap.String("status", string(input.Status)),
		zap.String("overall", string(st.VerificationStatus.Overall)),
	)
	c.JSON(http.StatusOK, gin.H{
		"verificationStatus": st.VerificationStatus,
		"progress":           verification.ProgressOf(st.VerificationStatus),
	})
}
