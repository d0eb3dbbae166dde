package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/01moynul/seller-console/internal/email"
	"github.com/01moynul/seller-console/internal/middleware"
	"github.com/01moynul/seller-console/internal/models"
	"github.com/01moynul/seller-console/internal/store"
	"github.com/01moynul/seller-console/internal/verification"
)

// --- Seller Registration ---

// RegisterSellerInput is the registration form. Only the seller supplied
// fields are accepted; id and status are set by the server.
type RegisterSellerInput struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	BusinessName    string `json:"businessName"`
	BusinessType    string `json:"businessType"`
	GSTNumber       string `json:"gstNumber"`
	Address         string `json:"address"`
	City            string `json:"city"`
	State           string `json:"state"`
	Pincode         string `json:"pincode"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

var (
	emailRe   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe   = regexp.MustCompile(`^[6-9]\d{9}$`)
	pincodeRe = regexp.MustCompile(`^[1-9][0-9]{5}$`)
	gstRe     = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z]{1}[1-9A-Z]{1}Z[0-9A-Z]{1}$`)
)

// Validate returns one message per invalid field.
func (in RegisterSellerInput) Validate() map[string]string {
	errs := map[string]string{}
	required := []struct{ field, value, msg string }{
		{"firstName", in.FirstName, "First name is required"},
		{"lastName", in.LastName, "Last name is required"},
		{"email", in.Email, "Email is required"},
		{"phone", in.Phone, "Phone number is required"},
		{"businessName", in.BusinessName, "Business name is required"},
		{"businessType", in.BusinessType, "Business type is required"},
		{"address", in.Address, "Address is required"},
		{"city", in.City, "City is required"},
		{"state", in.State, "State is required"},
		{"pincode", in.Pincode, "Pincode is required"},
		{"password", in.Password, "Password is required"},
		{"confirmPassword", in.ConfirmPassword, "Confirm password is required"},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs[r.field] = r.msg
		}
	}

	if in.Email != "" && !emailRe.MatchString(in.Email) {
		errs["email"] = "Please enter a valid email address"
	}
	if in.Phone != "" && !phoneRe.MatchString(in.Phone) {
		errs["phone"] = "Please enter a valid 10-digit phone number"
	}
	if in.Pincode != "" && !pincodeRe.MatchString(in.Pincode) {
		errs["pincode"] = "Please enter a valid 6-digit pincode"
	}
	if in.GSTNumber != "" && !gstRe.MatchString(in.GSTNumber) {
		errs["gstNumber"] = "Please enter a valid GST number"
	}
	if in.Password != "" && len(in.Password) < 8 {
		errs["password"] = "Password must be at least 8 characters long"
	}
	if in.Password != in.ConfirmPassword {
		errs["confirmPassword"] = "Passwords do not match"
	}
	return errs
}

// RegisterSeller handles POST /v1/auth/register
func (h *Handlers) RegisterSeller(c *gin.Context) {
	// 1. --- Bind & Validate ---
	var input RegisterSellerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if errs := input.Validate(); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": errs})
		return
	}

	// 2. --- Build Seller ---
	now := time.Now().UTC()
	seller := &models.Seller{
		ID:                 uuid.NewString(),
		Role:               models.RoleSeller,
		Status:             models.SellerStatusPending,
		Email:              strings.ToLower(strings.TrimSpace(input.Email)),
		FirstName:          strings.TrimSpace(input.FirstName),
		LastName:           strings.TrimSpace(input.LastName),
		Phone:              input.Phone,
		BusinessName:       strings.TrimSpace(input.BusinessName),
		BusinessType:       input.BusinessType,
		GSTNumber:          input.GSTNumber,
		Address:            strings.TrimSpace(input.Address),
		City:               strings.TrimSpace(input.City),
		State:              input.State,
		Pincode:            input.Pincode,
		VerificationStatus: models.NewVerificationStatus(),
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	// 3. --- Hash the Password ---
	var password models.Password
	if err := password.Set(input.Password); err != nil {
		h.serverError(c, "Failed to hash password", err)
		return
	}
	seller.PasswordHash = password.Hash

	// 4. --- Save ---
	if err := h.Sellers.Create(c.Request.Context(), seller); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "An account with this email already exists"})
			return
		}
		h.serverError(c, "Failed to create seller", err)
		return
	}

	// 5. --- Session & Token ---
	sess, ok := h.session(c, seller.ID)
	if !ok {
		return
	}
	if _, err := sess.Dispatch(c.Request.Context(), verification.RegisterSeller{Seller: seller.Profile()}); err != nil {
		h.logger().Warn("session persist failed", zap.String("sellerId", seller.ID), zap.Error(err))
	}

	token, err := h.Tokens.GenerateToken(seller.ID, seller.Role)
	if err != nil {
		h.serverError(c, "Failed to generate token", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful! Please upload your documents next.",
		"token":   token,
		"seller":  seller,
	})
}

// --- Seller Login ---

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// loginBlock returns the message that stops a seller in the given status
// from logging in, or "" if login may proceed.
func loginBlock(status string) string {
	switch status {
	case models.SellerStatusBlocked:
		return "Your account has been blocked. Please contact support."
	case models.SellerStatusRejected:
		return "Your seller account has been rejected."
	case models.SellerStatusPending:
		return "Your seller account is still under review."
	}
	return ""
}

// Login handles POST /v1/auth/login
func (h *Handlers) Login(c *gin.Context) {
	ctx := c.Request.Context()

	// 1. --- Bind Input ---
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 2. --- Find Seller ---
	seller, err := h.Sellers.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Seller account not found. Please register first."})
			return
		}
		h.serverError(c, "Failed to load seller", err)
		return
	}

	// 3. --- Check Password ---
	pw := models.Password{Hash: seller.PasswordHash}
	match, err := pw.Matches(input.Password)
	if err != nil {
		h.serverError(c, "Failed to check password", err)
		return
	}
	if !match {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password."})
		return
	}

	// 4. --- Check Status ---
	if msg := loginBlock(seller.Status); msg != "" {
		c.JSON(http.StatusForbidden, gin.H{"error": msg, "status": seller.Status})
		return
	}

	// 5. --- Session & Token ---
	sess, ok := h.session(c, seller.ID)
	if !ok {
		return
	}
	docs, status := seller.Documents, seller.VerificationStatus
	st, err := sess.Dispatch(ctx, verification.LoginSuccess{
		Seller:             seller.Profile(),
		Documents:          &docs,
		VerificationStatus: &status,
	})
	if err != nil {
		h.logger().Warn("session persist failed", zap.String("sellerId", seller.ID), zap.Error(err))
	}

	token, err := h.Tokens.GenerateToken(seller.ID, seller.Role)
	if err != nil {
		h.serverError(c, "Failed to generate token", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Login successful",
		"token":    token,
		"seller":   seller,
		"progress": verification.ProgressOf(st.VerificationStatus),
	})
}

// Logout handles POST /v1/auth/logout
func (h *Handlers) Logout(c *gin.Context) {
	sellerID := middleware.SellerID(c)
	sess, ok := h.session(c, sellerID)
	if !ok {
		return
	}
	if _, err := sess.Dispatch(c.Request.Context(), verification.Logout{}); err != nil {
		h.serverError(c, "Failed to clear session", err)
		return
	}
	h.Sessions.Drop(sellerID)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// --- Password Reset ---

type PasswordResetInput struct {
	Email string `json:"email" binding:"required,email"`
}

type PasswordResetConfirmInput struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// RequestPasswordReset handles POST /v1/auth/password-reset
// The response is the same whether or not the email is registered.
func (h *Handlers) RequestPasswordReset(c *gin.Context) {
	ctx := c.Request.Context()
	const reply = "If an account exists for this email, a reset link has been sent."

	var input PasswordResetInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	seller, err := h.Sellers.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"message": reply})
			return
		}
		h.serverError(c, "Failed to load seller", err)
		return
	}

	token, err := resetToken()
	if err != nil {
		h.serverError(c, "Failed to create reset token", err)
		return
	}
	ttl := h.ResetTokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	if err := h.Sellers.SetResetToken(ctx, seller.ID, token, time.Now().Add(ttl)); err != nil {
		h.serverError(c, "Failed to save reset token", err)
		return
	}

	link := strings.TrimRight(h.BaseURL, "/") + "/seller/reset-password?token=" + token
	if err := email.SendPasswordReset(ctx, h.Mailer, seller.Email, link); err != nil {
		h.logger().Error("reset email failed", zap.String("sellerId", seller.ID), zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"message": reply})
}

// ConfirmPasswordReset handles POST /v1/auth/password-reset/confirm
func (h *Handlers) ConfirmPasswordReset(c *gin.Context) {
	ctx := c.Request.Context()

	var input PasswordResetConfirmInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	seller, err := h.Sellers.GetByResetToken(ctx, input.Token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired reset token"})
			return
		}
		h.serverError(c, "Failed to load seller", err)
		return
	}
	if seller.ResetExpiry == nil || time.Now().After(*seller.ResetExpiry) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired reset token"})
		return
	}

	var password models.Password
	if err := password.Set(input.Password); err != nil {
		h.serverError(c, "Failed to hash password", err)
		return
	}
	if err := h.Sellers.UpdatePassword(ctx, seller.ID, password.Hash); err != nil {
		h.serverError(c, "Failed to update password", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated. You can now log in."})
}

func resetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// --- Profile ---

// GetProfile handles GET /v1/seller/profile
func (h *Handlers) GetProfile(c *gin.Context) {
	seller, err := h.Sellers.GetByID(c.Request.Context(), middleware.SellerID(c))
	if err != nil {
		h.notFoundOr(c, "Seller", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"seller": seller})
}

// UpdateProfile handles PATCH /v1/seller/profile
func (h *Handlers) UpdateProfile(c *gin.Context) {
	ctx := c.Request.Context()
	sellerID := middleware.SellerID(c)

	// 1. --- Bind Patch ---
	var patch models.ProfilePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if patch.Phone != nil && !phoneRe.MatchString(*patch.Phone) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please enter a valid 10-digit phone number"})
		return
	}
	if patch.Pincode != nil && !pincodeRe.MatchString(*patch.Pincode) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please enter a valid 6-digit pincode"})
		return
	}
	if patch.GSTNumber != nil && *patch.GSTNumber != "" && !gstRe.MatchString(*patch.GSTNumber) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please enter a valid GST number"})
		return
	}

	// 2. --- Apply to Stored Profile ---
	seller, err := h.Sellers.GetByID(ctx, sellerID)
	if err != nil {
		h.notFoundOr(c, "Seller", err)
		return
	}
	profile := seller.Profile()
	patch.Apply(profile)
	if err := h.Sellers.UpdateProfile(ctx, sellerID, profile); err != nil {
		h.notFoundOr(c, "Seller", err)
		return
	}

	// 3. --- Session ---
	sess, ok := h.session(c, sellerID)
	if !ok {
		return
	}
	st, err := sess.Dispatch(ctx, verification.UpdateSellerProfile{Patch: patch})
	if err != nil {
		h.logger().Warn("session persist failed", zap.String("sellerId", sellerID), zap.Error(err))
	}
	if st.Seller == nil {
		st.Seller = profile
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated", "seller": st.Seller})
}
