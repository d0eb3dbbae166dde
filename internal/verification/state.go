// Package verification models a seller's document checklist as a pure
// reducer plus a session service that mirrors the state into persistence.
package verification

import (
	"github.com/01moynul/seller-console/internal/models"
)

// Notification kinds.
const (
	NotifySuccess = "success"
	NotifyError   = "error"
	NotifyInfo    = "info"
)

// Notification is a user-visible message produced by state changes.
type Notification struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// State is the session view of one seller.
type State struct {
	Seller             *models.SellerProfile     `json:"seller"`
	IsAuthenticated    bool                      `json:"isAuthenticated"`
	Documents          models.Documents          `json:"documents"`
	VerificationStatus models.VerificationStatus `json:"verificationStatus"`
	Notifications      []Notification            `json:"notifications"`
}

// InitialState is the state of a signed-out session.
func InitialState() State {
	return State{
		Documents:          models.Documents{},
		VerificationStatus: models.NewVerificationStatus(),
		Notifications:      []Notification{},
	}
}

// ComputeOverall derives the account status from the four required
// categories: all approved wins, then any rejected, then all uploaded.
func ComputeOverall(v models.VerificationStatus) models.OverallStatus {
	allApproved, anyRejected, allUploaded := true, false, true
	for _, c := range models.RequiredCategories {
		s := v.Get(c)
		if s != models.DocApproved {
			allApproved = false
		}
		if s == models.DocRejected {
			anyRejected = true
		}
		if !isUploaded(s) {
			allUploaded = false
		}
	}

	switch {
	case allApproved:
		return models.OverallApproved
	case anyRejected:
		return models.OverallRejected
	case allUploaded:
		return models.OverallInReview
	default:
		return models.OverallPending
	}
}

// WithOverall returns s with its overall status derived from the categories.
func WithOverall(s State) State {
	s.VerificationStatus.Overall = ComputeOverall(s.VerificationStatus)
	return s
}

func isUploaded(s models.DocumentStatus) bool {
	switch s {
	case models.DocUploaded, models.DocPending, models.DocApproved, models.DocRejected:
		return true
	}
	return false
}

// Progress summarizes how far a seller is through verification.
type Progress struct {
	Verification    int  `json:"verificationProgress"`
	Upload          int  `json:"uploadProgress"`
	CanStartSelling bool `json:"canStartSelling"`
}

// ProgressOf reports approval and upload percentages over the required
// categories.
func ProgressOf(v models.VerificationStatus) Progress {
	approved, uploaded := 0, 0
	for _, c := range models.RequiredCategories {
		s := v.Get(c)
		if s == models.DocApproved {
			approved++
		}
		if isUploaded(s) {
			uploaded++
		}
	}
	n := len(models.RequiredCategories)
	return Progress{
		Verification:    percent(approved, n),
		Upload:          percent(uploaded, n),
		CanStartSelling: v.Overall == models.OverallApproved,
	}
}

func percent(part, total int) int {
	// round half up, matching Math.round on non-negative values
	return (part*200 + total) / (2 * total)
}
