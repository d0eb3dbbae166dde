package verification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01moynul/seller-console/internal/models"
)

var docStatuses = []models.DocumentStatus{
	models.DocNotUploaded, models.DocUploaded, models.DocPending, models.DocApproved, models.DocRejected,
}

func expectedOverall(vals [4]models.DocumentStatus) models.OverallStatus {
	approved, rejected, uploaded := 0, 0, 0
	for _, v := range vals {
		if v == models.DocApproved {
			approved++
		}
		if v == models.DocRejected {
			rejected++
		}
		if v != models.DocNotUploaded {
			uploaded++
		}
	}
	switch {
	case approved == 4:
		return models.OverallApproved
	case rejected > 0:
		return models.OverallRejected
	case uploaded == 4:
		return models.OverallInReview
	}
	return models.OverallPending
}

func TestComputeOverall_AllCombinations(t *testing.T) {
	seen := map[models.OverallStatus]int{}
	for _, a := range docStatuses {
		for _, b := range docStatuses {
			for _, c := range docStatuses {
				for _, d := range docStatuses {
					v := models.NewVerificationStatus()
					v.Identity, v.Business, v.Bank, v.Address = a, b, c, d

					got := ComputeOverall(v)
					require.Equal(t, expectedOverall([4]models.DocumentStatus{a, b, c, d}), got,
						"identity=%s business=%s bank=%s address=%s", a, b, c, d)
					seen[got]++
				}
			}
		}
	}

	assert.Equal(t, 1, seen[models.OverallApproved])
	assert.Equal(t, 625-256, seen[models.OverallRejected])
	assert.Equal(t, 81-1, seen[models.OverallInReview])
	assert.Equal(t, 256-81, seen[models.OverallPending])
}

func TestComputeOverall_ProductCategoryIgnored(t *testing.T) {
	v := models.NewVerificationStatus()
	v.Identity, v.Business, v.Bank, v.Address = models.DocApproved, models.DocApproved, models.DocApproved, models.DocApproved
	v.Product = models.DocRejected

	assert.Equal(t, models.OverallApproved, ComputeOverall(v))
}

func TestProgressOf(t *testing.T) {
	v := models.NewVerificationStatus()
	v.Identity = models.DocApproved
	v.Business = models.DocUploaded
	v.Bank = models.DocRejected

	p := ProgressOf(v)
	assert.Equal(t, 25, p.Verification)
	assert.Equal(t, 75, p.Upload)
	assert.False(t, p.CanStartSelling)
}

func TestReduce(t *testing.T) {
	seller := &models.SellerProfile{ID: "s1", Email: "a@b.c", FirstName: "Asha"}

	t.Run("UploadDocumentMarksUploaded", func(t *testing.T) {
		start := InitialState()
		doc := &models.DocumentRecord{FileName: "pan.pdf"}

		next := Reduce(start, UploadDocument{Category: models.CategoryIdentity, Document: doc})
		assert.Equal(t, models.DocUploaded, next.VerificationStatus.Identity)
		assert.Equal(t, doc, next.Documents.Identity)
		assert.Nil(t, start.Documents.Identity)
		assert.Equal(t, models.DocNotUploaded, start.VerificationStatus.Identity)
	})

	t.Run("SetVerificationStatusMerges", func(t *testing.T) {
		start := InitialState()
		start.VerificationStatus.Bank = models.DocApproved

		next := Reduce(start, SetVerificationStatus{Partial: models.VerificationStatus{Overall: models.OverallInReview}})
		assert.Equal(t, models.OverallInReview, next.VerificationStatus.Overall)
		assert.Equal(t, models.DocApproved, next.VerificationStatus.Bank)
	})

	t.Run("LoginSuccessKeepsDocumentsWhenAbsent", func(t *testing.T) {
		start := Reduce(InitialState(), UploadDocument{Category: models.CategoryBank, Document: &models.DocumentRecord{}})

		next := Reduce(start, LoginSuccess{Seller: seller})
		assert.True(t, next.IsAuthenticated)
		assert.Equal(t, "s1", next.Seller.ID)
		assert.NotNil(t, next.Documents.Bank)
		assert.Equal(t, models.DocUploaded, next.VerificationStatus.Bank)
	})

	t.Run("UpdateSellerProfilePatches", func(t *testing.T) {
		start := Reduce(InitialState(), LoginSeller{Seller: seller})
		city := "Pune"

		next := Reduce(start, UpdateSellerProfile{Patch: models.ProfilePatch{City: &city}})
		assert.Equal(t, "Pune", next.Seller.City)
		assert.Equal(t, "Asha", next.Seller.FirstName)
		assert.Empty(t, start.Seller.City)
	})

	t.Run("Notifications", func(t *testing.T) {
		s := InitialState()
		s = Reduce(s, AddNotification{Notification: Notification{ID: 1}})
		s = Reduce(s, AddNotification{Notification: Notification{ID: 2}})
		require.Len(t, s.Notifications, 2)

		removed := Reduce(s, RemoveNotification{ID: 1})
		require.Len(t, removed.Notifications, 1)
		assert.Equal(t, int64(2), removed.Notifications[0].ID)
		assert.Len(t, s.Notifications, 2)

		assert.Empty(t, Reduce(s, ClearNotifications{}).Notifications)
	})

	t.Run("LogoutReturnsInitialState", func(t *testing.T) {
		s := Reduce(InitialState(), RegisterSeller{Seller: seller})
		s = Reduce(s, UploadDocument{Category: models.CategoryAddress, Document: &models.DocumentRecord{}})
		s = Reduce(s, AddNotification{Notification: Notification{ID: 9}})

		assert.Equal(t, InitialState(), Reduce(s, Logout{}))
	})
}

func TestSession(t *testing.T) {
	ctx := context.Background()
	seller := &models.SellerProfile{ID: "s1", Email: "a@b.c"}

	t.Run("DispatchPersistsAuthenticatedState", func(t *testing.T) {
		store := NewMemoryPersistence()
		s := NewSession("s1", store, nil)

		_, err := s.Dispatch(ctx, LoginSeller{Seller: seller})
		require.NoError(t, err)
		_, err = s.Dispatch(ctx, UploadDocument{Category: models.CategoryBank, Document: &models.DocumentRecord{FileName: "b.pdf"}})
		require.NoError(t, err)

		restored := NewSession("s1", store, nil)
		require.NoError(t, restored.Load(ctx))
		st := restored.State()
		assert.True(t, st.IsAuthenticated)
		assert.Equal(t, "s1", st.Seller.ID)
		require.NotNil(t, st.Documents.Bank)
		assert.Equal(t, "b.pdf", st.Documents.Bank.FileName)
		assert.Equal(t, models.DocUploaded, st.VerificationStatus.Bank)
	})

	t.Run("LogoutClearsPersistedKey", func(t *testing.T) {
		store := NewMemoryPersistence()
		s := NewSession("s1", store, nil)

		_, err := s.Dispatch(ctx, LoginSeller{Seller: seller})
		require.NoError(t, err)
		_, err = store.Get(ctx, SessionKey("s1"))
		require.NoError(t, err)

		st, err := s.Dispatch(ctx, Logout{})
		require.NoError(t, err)
		assert.Equal(t, InitialState(), st)

		_, err = store.Get(ctx, SessionKey("s1"))
		assert.ErrorIs(t, err, ErrNoSession)
	})

	t.Run("MalformedPayloadDiscarded", func(t *testing.T) {
		store := NewMemoryPersistence()
		require.NoError(t, store.Set(ctx, SessionKey("s1"), []byte("{not json")))

		s := NewSession("s1", store, nil)
		require.NoError(t, s.Load(ctx))
		assert.Equal(t, InitialState(), s.State())

		_, err := store.Get(ctx, SessionKey("s1"))
		assert.ErrorIs(t, err, ErrNoSession)
	})

	t.Run("UpdateDocumentStatusNotifiesAndRecomputes", func(t *testing.T) {
		s := NewSession("s1", NewMemoryPersistence(), nil)
		s.now = func() time.Time { return time.Unix(1700000000, 0) }
		_, err := s.Dispatch(ctx, LoginSeller{Seller: seller})
		require.NoError(t, err)

		for _, c := range models.RequiredCategories {
			_, err := s.Dispatch(ctx, UploadDocument{Category: c, Document: &models.DocumentRecord{}})
			require.NoError(t, err)
		}

		st, err := s.UpdateDocumentStatus(ctx, models.CategoryBank, models.DocRejected, "")
		require.NoError(t, err)
		assert.Equal(t, models.OverallRejected, st.VerificationStatus.Overall)
		require.Len(t, st.Notifications, 1)
		assert.Equal(t, NotifyError, st.Notifications[0].Type)
		assert.Contains(t, st.Notifications[0].Message, "bank")

		st, err = s.UpdateDocumentStatus(ctx, models.CategoryBank, models.DocPending, "")
		require.NoError(t, err)
		assert.Equal(t, models.OverallInReview, st.VerificationStatus.Overall)
		assert.Equal(t, NotifyInfo, st.Notifications[1].Type)

		for _, c := range models.RequiredCategories {
			st, err = s.UpdateDocumentStatus(ctx, c, models.DocApproved, "")
			require.NoError(t, err)
		}
		assert.Equal(t, models.OverallApproved, st.VerificationStatus.Overall)
		assert.Equal(t, NotifySuccess, st.Notifications[len(st.Notifications)-1].Type)
	})

	t.Run("RejectionReasonUsed", func(t *testing.T) {
		s := NewSession("s1", NewMemoryPersistence(), nil)
		st, err := s.UpdateDocumentStatus(ctx, models.CategoryIdentity, models.DocRejected, "Blurry scan")
		require.NoError(t, err)
		require.Len(t, st.Notifications, 1)
		assert.Equal(t, "Blurry scan", st.Notifications[0].Message)
	})
}

func TestSessionManager(t *testing.T) {
	ctx := context.Background()
	m := NewSessionManager(NewMemoryPersistence(), nil, 0)

	a, err := m.Get(ctx, "s1")
	require.NoError(t, err)
	b, err := m.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Same(t, a, b)

	m.Drop("s1")
	c, err := m.Get(ctx, "s1")
	require.NoError(t, err)
	assert.NotSame(t, a, c)
}

func TestSessionApply(t *testing.T) {
	ctx := context.Background()
	seller := &models.SellerProfile{ID: "s1", Email: "a@b.c"}

	t.Run("ConcurrentStepsKeepEveryUpdate", func(t *testing.T) {
		s := NewSession("s1", NewMemoryPersistence(), nil)
		_, err := s.Dispatch(ctx, LoginSeller{Seller: seller})
		require.NoError(t, err)

		// saved mimics the seller row written from inside each step
		var saved models.Documents
		var wg sync.WaitGroup
		for _, c := range models.RequiredCategories {
			wg.Add(1)
			go func(c models.DocumentCategory) {
				defer wg.Done()
				_, err := s.Apply(ctx, func(st State) (State, error) {
					st = Reduce(st, UploadDocument{Category: c, Document: &models.DocumentRecord{FileName: string(c)}})
					time.Sleep(time.Millisecond)
					saved = st.Documents
					return st, nil
				})
				assert.NoError(t, err)
			}(c)
		}
		wg.Wait()

		st := s.State()
		for _, c := range models.RequiredCategories {
			require.NotNil(t, st.Documents.Get(c), c)
			require.NotNil(t, saved.Get(c), c)
			assert.Equal(t, models.DocUploaded, st.VerificationStatus.Get(c))
		}
		assert.Equal(t, models.OverallInReview, st.VerificationStatus.Overall)
	})

	t.Run("FailedStepLeavesStateUnchanged", func(t *testing.T) {
		store := NewMemoryPersistence()
		s := NewSession("s1", store, nil)
		_, err := s.Dispatch(ctx, LoginSeller{Seller: seller})
		require.NoError(t, err)
		before := s.State()

		boom := errors.New("write failed")
		st, err := s.Apply(ctx, func(st State) (State, error) {
			return Reduce(st, UploadDocument{Category: models.CategoryBank, Document: &models.DocumentRecord{}}), boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, before, st)
		assert.Equal(t, before, s.State())

		restored := NewSession("s1", store, nil)
		require.NoError(t, restored.Load(ctx))
		assert.Nil(t, restored.State().Documents.Bank)
	})

	t.Run("OverallDerivedOnCommit", func(t *testing.T) {
		s := NewSession("s1", NewMemoryPersistence(), nil)
		st, err := s.Apply(ctx, func(st State) (State, error) {
			st.VerificationStatus.Overall = models.OverallApproved
			return st, nil
		})
		require.NoError(t, err)
		assert.Equal(t, models.OverallPending, st.VerificationStatus.Overall)
	})
}

func TestSessionManagerEviction(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryPersistence()
	m := NewSessionManager(store, nil, time.Hour)
	clock := time.Unix(1700000000, 0)
	m.now = func() time.Time { return clock }

	s1, err := m.Get(ctx, "s1")
	require.NoError(t, err)
	_, err = s1.Dispatch(ctx, LoginSeller{Seller: &models.SellerProfile{ID: "s1"}})
	require.NoError(t, err)
	s2, err := m.Get(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())

	clock = clock.Add(30 * time.Minute)
	again, err := m.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Same(t, s1, again)

	// s2 has been idle for 75 minutes, s1 for 45
	clock = clock.Add(45 * time.Minute)
	_, err = m.Get(ctx, "s3")
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())

	fresh, err := m.Get(ctx, "s2")
	require.NoError(t, err)
	assert.NotSame(t, s2, fresh)

	// evicted sessions come back from the store
	clock = clock.Add(2 * time.Hour)
	_, err = m.Get(ctx, "s4")
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())
	reloaded, err := m.Get(ctx, "s1")
	require.NoError(t, err)
	assert.NotSame(t, s1, reloaded)
	assert.True(t, reloaded.State().IsAuthenticated)
}

func TestSessionManagerKeepsBusySession(t *testing.T) {
	ctx := context.Background()
	m := NewSessionManager(NewMemoryPersistence(), nil, time.Hour)
	clock := time.Unix(1700000000, 0)
	m.now = func() time.Time { return clock }

	s1, err := m.Get(ctx, "s1")
	require.NoError(t, err)

	_, err = s1.Apply(ctx, func(st State) (State, error) {
		clock = clock.Add(2 * time.Hour)
		_, err := m.Get(ctx, "s2")
		require.NoError(t, err)
		again, err := m.Get(ctx, "s1")
		require.NoError(t, err)
		assert.Same(t, s1, again)
		return st, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())
}
