package verification

import (
	"github.com/01moynul/seller-console/internal/models"
)

// Action is one state transition. The concrete types below form a closed set.
type Action interface {
	isAction()
}

type UploadDocument struct {
	Category models.DocumentCategory
	Document *models.DocumentRecord
}

type UpdateDocumentStatus struct {
	Category models.DocumentCategory
	Status   models.DocumentStatus
}

// SetVerificationStatus merges the non-empty fields of Partial.
type SetVerificationStatus struct {
	Partial models.VerificationStatus
}

// LoginSuccess replaces documents and status only when they are provided.
type LoginSuccess struct {
	Seller             *models.SellerProfile
	Documents          *models.Documents
	VerificationStatus *models.VerificationStatus
}

type RegisterSeller struct {
	Seller *models.SellerProfile
}

type LoginSeller struct {
	Seller *models.SellerProfile
}

type UpdateSellerProfile struct {
	Patch models.ProfilePatch
}

type Logout struct{}

type AddNotification struct {
	Notification Notification
}

type RemoveNotification struct {
	ID int64
}

type ClearNotifications struct{}

func (UploadDocument) isAction()        {}
func (UpdateDocumentStatus) isAction()  {}
func (SetVerificationStatus) isAction() {}
func (LoginSuccess) isAction()          {}
func (RegisterSeller) isAction()        {}
func (LoginSeller) isAction()           {}
func (UpdateSellerProfile) isAction()   {}
func (Logout) isAction()                {}
func (AddNotification) isAction()       {}
func (RemoveNotification) isAction()    {}
func (ClearNotifications) isAction()    {}

// Reduce returns the state after applying a. The input state is not
// modified; slices are copied before being changed.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case UploadDocument:
		s.Documents = s.Documents.With(a.Category, a.Document)
		s.VerificationStatus = s.VerificationStatus.With(a.Category, models.DocUploaded)

	case UpdateDocumentStatus:
		s.VerificationStatus = s.VerificationStatus.With(a.Category, a.Status)

	case SetVerificationStatus:
		s.VerificationStatus = merge(s.VerificationStatus, a.Partial)

	case LoginSuccess:
		s.Seller = cloneProfile(a.Seller)
		s.IsAuthenticated = true
		if a.Documents != nil {
			s.Documents = *a.Documents
		}
		if a.VerificationStatus != nil {
			s.VerificationStatus = *a.VerificationStatus
		}

	case RegisterSeller:
		s.Seller = cloneProfile(a.Seller)
		s.IsAuthenticated = true

	case LoginSeller:
		s.Seller = cloneProfile(a.Seller)
		s.IsAuthenticated = true

	case UpdateSellerProfile:
		p := &models.SellerProfile{}
		if s.Seller != nil {
			*p = *s.Seller
		}
		a.Patch.Apply(p)
		s.Seller = p

	case Logout:
		return InitialState()

	case AddNotification:
		n := make([]Notification, len(s.Notifications), len(s.Notifications)+1)
		copy(n, s.Notifications)
		s.Notifications = append(n, a.Notification)

	case RemoveNotification:
		n := make([]Notification, 0, len(s.Notifications))
		for _, item := range s.Notifications {
			if item.ID != a.ID {
				n = append(n, item)
			}
		}
		s.Notifications = n

	case ClearNotifications:
		s.Notifications = []Notification{}
	}
	return s
}

func merge(dst, src models.VerificationStatus) models.VerificationStatus {
	if src.Overall != "" {
		dst.Overall = src.Overall
	}
	for _, c := range models.AllCategories {
		if v := src.Get(c); v != "" {
			dst = dst.With(c, v)
		}
	}
	return dst
}

func cloneProfile(p *models.SellerProfile) *models.SellerProfile {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
