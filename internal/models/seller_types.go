package models

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Seller account statuses stored on the sellers row.
const (
	SellerStatusPending       = "pending"
	SellerStatusPendingReview = "pending_review"
	SellerStatusApproved      = "approved"
	SellerStatusRejected      = "rejected"
	SellerStatusBlocked       = "blocked"
)

// Roles
const (
	RoleSeller   = "seller"
	RoleReviewer = "reviewer"
)

// DocumentCategory names one slot of the verification checklist.
type DocumentCategory string

const (
	CategoryIdentity DocumentCategory = "identity"
	CategoryBusiness DocumentCategory = "business"
	CategoryBank     DocumentCategory = "bank"
	CategoryAddress  DocumentCategory = "address"
	CategoryProduct  DocumentCategory = "product"
)

// RequiredCategories are the four categories that decide the overall status.
var RequiredCategories = []DocumentCategory{CategoryIdentity, CategoryBusiness, CategoryBank, CategoryAddress}

// AllCategories includes the optional product category.
var AllCategories = []DocumentCategory{CategoryIdentity, CategoryBusiness, CategoryBank, CategoryAddress, CategoryProduct}

// ParseDocumentCategory validates a category coming from a URL or payload.
func ParseDocumentCategory(s string) (DocumentCategory, bool) {
	for _, c := range AllCategories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// DocumentStatus is the per-category review state.
type DocumentStatus string

const (
	DocNotUploaded DocumentStatus = "not_uploaded"
	DocUploaded    DocumentStatus = "uploaded"
	DocPending     DocumentStatus = "pending"
	DocApproved    DocumentStatus = "approved"
	DocRejected    DocumentStatus = "rejected"
)

// Valid reports whether s is one of the five known document statuses.
func (s DocumentStatus) Valid() bool {
	switch s {
	case DocNotUploaded, DocUploaded, DocPending, DocApproved, DocRejected:
		return true
	}
	return false
}

// OverallStatus is the account-level verification state.
type OverallStatus string

const (
	OverallPending  OverallStatus = "pending"
	OverallInReview OverallStatus = "in_review"
	OverallApproved OverallStatus = "approved"
	OverallRejected OverallStatus = "rejected"
)

// VerificationStatus mirrors sellers/{uid}.verificationStatus.
type VerificationStatus struct {
	Overall  OverallStatus  `json:"overall"`
	Identity DocumentStatus `json:"identity"`
	Business DocumentStatus `json:"business"`
	Bank     DocumentStatus `json:"bank"`
	Address  DocumentStatus `json:"address"`
	Product  DocumentStatus `json:"product"`
}

// NewVerificationStatus returns the status of a freshly registered seller.
func NewVerificationStatus() VerificationStatus {
	return VerificationStatus{
		Overall:  OverallPending,
		Identity: DocNotUploaded,
		Business: DocNotUploaded,
		Bank:     DocNotUploaded,
		Address:  DocNotUploaded,
		Product:  DocNotUploaded,
	}
}

// Get returns the status of one category.
func (v VerificationStatus) Get(c DocumentCategory) DocumentStatus {
	switch c {
	case CategoryIdentity:
		return v.Identity
	case CategoryBusiness:
		return v.Business
	case CategoryBank:
		return v.Bank
	case CategoryAddress:
		return v.Address
	case CategoryProduct:
		return v.Product
	}
	return ""
}

// With returns a copy with one category replaced.
func (v VerificationStatus) With(c DocumentCategory, s DocumentStatus) VerificationStatus {
	switch c {
	case CategoryIdentity:
		v.Identity = s
	case CategoryBusiness:
		v.Business = s
	case CategoryBank:
		v.Bank = s
	case CategoryAddress:
		v.Address = s
	case CategoryProduct:
		v.Product = s
	}
	return v
}

// DocumentRecord is the metadata stored under documents.{category}.
type DocumentRecord struct {
	FileURL          string `json:"fileUrl"`
	FileName         string `json:"fileName"`
	OriginalFileName string `json:"originalFileName"`
	FileSize         int64  `json:"fileSize"`
	FileType         string `json:"fileType"`
	Path             string `json:"path"`
	UploadedAt       string `json:"uploadedAt"`
}

// Documents holds one optional record per category. Nil means not uploaded.
type Documents struct {
	Identity *DocumentRecord `json:"identity"`
	Business *DocumentRecord `json:"business"`
	Bank     *DocumentRecord `json:"bank"`
	Address  *DocumentRecord `json:"address"`
	Product  *DocumentRecord `json:"product"`
}

// Get returns the record of one category.
func (d Documents) Get(c DocumentCategory) *DocumentRecord {
	switch c {
	case CategoryIdentity:
		return d.Identity
	case CategoryBusiness:
		return d.Business
	case CategoryBank:
		return d.Bank
	case CategoryAddress:
		return d.Address
	case CategoryProduct:
		return d.Product
	}
	return nil
}

// With returns a copy with one category replaced.
func (d Documents) With(c DocumentCategory, rec *DocumentRecord) Documents {
	switch c {
	case CategoryIdentity:
		d.Identity = rec
	case CategoryBusiness:
		d.Business = rec
	case CategoryBank:
		d.Bank = rec
	case CategoryAddress:
		d.Address = rec
	case CategoryProduct:
		d.Product = rec
	}
	return d
}

// Seller is the model for the 'sellers' table.
type Seller struct {
	ID           string `json:"id" db:"id"`
	Role         string `json:"role" db:"role"`
	Status       string `json:"status" db:"status"`
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password_hash"`

	// --- Profile ---
	FirstName    string `json:"firstName" db:"first_name"`
	LastName     string `json:"lastName" db:"last_name"`
	Phone        string `json:"phone" db:"phone"`
	BusinessName string `json:"businessName" db:"business_name"`
	BusinessType string `json:"businessType" db:"business_type"`
	GSTNumber    string `json:"gstNumber" db:"gst_number"`
	Address      string `json:"address" db:"address"`
	City         string `json:"city" db:"city"`
	State        string `json:"state" db:"state"`
	Pincode      string `json:"pincode" db:"pincode"`

	// --- Verification (JSON columns, decoded by the store) ---
	Documents          Documents          `json:"documents" db:"-"`
	VerificationStatus VerificationStatus `json:"verificationStatus" db:"-"`
	DocumentsUploaded  bool               `json:"documentsUploaded" db:"documents_uploaded"`

	// Password reset
	ResetToken  *string    `json:"-" db:"reset_token"`
	ResetExpiry *time.Time `json:"-" db:"reset_expiry"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// SellerProfile is the subset of a seller kept in the session state.
type SellerProfile struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Status       string `json:"status"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Phone        string `json:"phone"`
	BusinessName string `json:"businessName"`
	BusinessType string `json:"businessType"`
	GSTNumber    string `json:"gstNumber"`
	Address      string `json:"address"`
	City         string `json:"city"`
	State        string `json:"state"`
	Pincode      string `json:"pincode"`
}

// Profile projects the session view of a seller.
func (s *Seller) Profile() *SellerProfile {
	return &SellerProfile{
		ID:           s.ID,
		Email:        s.Email,
		Status:       s.Status,
		FirstName:    s.FirstName,
		LastName:     s.LastName,
		Phone:        s.Phone,
		BusinessName: s.BusinessName,
		BusinessType: s.BusinessType,
		GSTNumber:    s.GSTNumber,
		Address:      s.Address,
		City:         s.City,
		State:        s.State,
		Pincode:      s.Pincode,
	}
}

// ProfilePatch carries optional profile updates. Nil fields are left alone.
type ProfilePatch struct {
	FirstName    *string `json:"firstName"`
	LastName     *string `json:"lastName"`
	Phone        *string `json:"phone"`
	BusinessName *string `json:"businessName"`
	BusinessType *string `json:"businessType"`
	GSTNumber    *string `json:"gstNumber"`
	Address      *string `json:"address"`
	City         *string `json:"city"`
	State        *string `json:"state"`
	Pincode      *string `json:"pincode"`
}

// Apply copies the set fields of the patch onto p.
func (patch ProfilePatch) Apply(p *SellerProfile) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.FirstName, patch.FirstName)
	set(&p.LastName, patch.LastName)
	set(&p.Phone, patch.Phone)
	set(&p.BusinessName, patch.BusinessName)
	set(&p.BusinessType, patch.BusinessType)
	set(&p.GSTNumber, patch.GSTNumber)
	set(&p.Address, patch.Address)
	set(&p.City, patch.City)
	set(&p.State, patch.State)
	set(&p.Pincode, patch.Pincode)
}

// Password Helper (Standard)
type Password struct {
	Plaintext *string
	Hash      string
}

func (p *Password) Set(plaintextPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintextPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.Hash = string(hash)
	p.Plaintext = &plaintextPassword
	return nil
}

func (p *Password) Matches(plaintextPassword string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(p.Hash), []byte(plaintextPassword))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
