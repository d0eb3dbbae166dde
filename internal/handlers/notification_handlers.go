package handlers

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/01moynul/seller-console/internal/middleware"
	"github.com/01moynul/seller-console/internal/verification"
)

//
// --- Verification & Notification Handlers ---
//

// GetVerification is the handler for GET /v1/seller/verification
// It returns the document checklist with its progress.
func (h *Handlers) GetVerification(c *gin.Context) {
	sess, seller, ok := h.sellerSession(c, middleware.SellerID(c))
	if !ok {
		return
	}
	st := sess.State()

	c.JSON(http.StatusOK, gin.H{
		"status":             seller.Status,
		"documentsUploaded":  seller.DocumentsUploaded,
		"documents":          st.Documents,
		"verificationStatus": st.VerificationStatus,
		"progress":           verification.ProgressOf(st.VerificationStatus),
	})
}

// GetMyNotifications is the handler for GET /v1/seller/notifications
// Newest first.
func (h *Handlers) GetMyNotifications(c *gin.Context) {
	sess, ok := h.session(c, middleware.SellerID(c))
	if !ok {
		return
	}
	list := sess.State().Notifications
	sort.SliceStable(list, func(i, j int) bool { return list[i].ID > list[j].ID })

	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

// DismissNotification is the handler for DELETE /v1/seller/notifications/:id
func (h *Handlers) DismissNotification(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification ID"})
		return
	}
	sess, ok := h.session(c, middleware.SellerID(c))
	if !ok {
		return
	}
	st, err := sess.Dispatch(c.Request.Context(), verification.RemoveNotification{ID: id})
	if err != nil {
		h.serverError(c, "Failed to update session", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": st.Notifications})
}

// ClearNotifications is the handler for DELETE /v1/seller/notifications
func (h *Handlers) ClearNotifications(c *gin.Context) {
	sess, ok := h.session(c, middleware.SellerID(c))
	if !ok {
		return
	}
	if _, err := sess.Dispatch(c.Request.Context(), verification.ClearNotifications{}); err != nil {
		h.serverError(c, "Failed to update session", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": []verification.Notification{}})
}
