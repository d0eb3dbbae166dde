package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/01moynul/seller-console/internal/auth"
	"github.com/01moynul/seller-console/internal/catalog"
	"github.com/01moynul/seller-console/internal/email"
	"github.com/01moynul/seller-console/internal/handlers"
	"github.com/01moynul/seller-console/internal/importer"
	"github.com/01moynul/seller-console/internal/models"
	"github.com/01moynul/seller-console/internal/routes"
	"github.com/01moynul/seller-console/internal/store"
	"github.com/01moynul/seller-console/internal/upload"
	"github.com/01moynul/seller-console/internal/verification"
)

// --- Fakes ---

type memSellers struct {
	mu       sync.Mutex
	byID     map[string]*models.Seller
	statuses map[string]string
}

func newMemSellers() *memSellers {
	return &memSellers{byID: map[string]*models.Seller{}, statuses: map[string]string{}}
}

func (m *memSellers) Create(_ context.Context, s *models.Seller) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == s.Email {
			return store.ErrDuplicate
		}
	}
	c := *s
	m.byID[s.ID] = &c
	return nil
}

func (m *memSellers) find(match func(*models.Seller) bool) (*models.Seller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byID {
		if match(s) {
			c := *s
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memSellers) GetByID(_ context.Context, id string) (*models.Seller, error) {
	return m.find(func(s *models.Seller) bool { return s.ID == id })
}

func (m *memSellers) GetByEmail(_ context.Context, email string) (*models.Seller, error) {
	return m.find(func(s *models.Seller) bool { return s.Email == email })
}

func (m *memSellers) GetByResetToken(_ context.Context, token string) (*models.Seller, error) {
	return m.find(func(s *models.Seller) bool { return s.ResetToken != nil && *s.ResetToken == token })
}

func (m *memSellers) update(id string, fn func(*models.Seller)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	fn(s)
	return nil
}

func (m *memSellers) UpdateProfile(_ context.Context, id string, p *models.SellerProfile) error {
	return m.update(id, func(s *models.Seller) {
		s.FirstName, s.LastName, s.Phone = p.FirstName, p.LastName, p.Phone
		s.BusinessName, s.City = p.BusinessName, p.City
	})
}

func (m *memSellers) SaveVerification(_ context.Context, id string, docs models.Documents, v models.VerificationStatus) error {
	return m.update(id, func(s *models.Seller) { s.Documents, s.VerificationStatus = docs, v })
}

func (m *memSellers) SetStatus(_ context.Context, id, status string, uploaded bool) error {
	return m.update(id, func(s *models.Seller) {
		s.Status, s.DocumentsUploaded = status, uploaded
		m.statuses[id] = status
	})
}

func (m *memSellers) SetResetToken(_ context.Context, id, token string, expiry time.Time) error {
	return m.update(id, func(s *models.Seller) { s.ResetToken, s.ResetExpiry = &token, &expiry })
}

func (m *memSellers) UpdatePassword(_ context.Context, id, hash string) error {
	return m.update(id, func(s *models.Seller) { s.PasswordHash, s.ResetToken, s.ResetExpiry = hash, nil, nil })
}

type memProducts struct {
	mu   sync.Mutex
	byID map[string]models.Product
}

func (m *memProducts) InsertProduct(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[p.ID] = *p
	return nil
}

func (m *memProducts) GetProduct(_ context.Context, id string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	p.Variants = append([]models.Variant(nil), p.Variants...)
	return &p, nil
}

func (m *memProducts) ListBySeller(_ context.Context, sellerID string) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Product{}
	for _, p := range m.byID {
		if p.Owner() == sellerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memProducts) Search(ctx context.Context, sellerID, q string) ([]models.Product, error) {
	all, _ := m.ListBySeller(ctx, sellerID)
	out := []models.Product{}
	for _, p := range all {
		for _, k := range p.SearchKeywords {
			if k == strings.ToLower(q) {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

func (m *memProducts) ReplaceProduct(ctx context.Context, p *models.Product) error {
	return m.InsertProduct(ctx, p)
}

func (m *memProducts) DeleteProduct(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
	return nil
}

func (m *memProducts) DeleteByUpload(_ context.Context, uploadID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, p := range m.byID {
		if p.UploadID == uploadID {
			delete(m.byID, id)
			n++
		}
	}
	return n, nil
}

type mockSales struct{ mock.Mock }

func (m *mockSales) InsertSale(ctx context.Context, s *models.Sale) error {
	return m.Called(ctx, s).Error(0)
}

func (m *mockSales) ListSales(ctx context.Context, sellerID string) ([]models.Sale, error) {
	args := m.Called(ctx, sellerID)
	return args.Get(0).([]models.Sale), args.Error(1)
}

type memOrders struct{ orders []models.Order }

func (m *memOrders) ListBySeller(_ context.Context, sellerID string) ([]models.Order, error) {
	var out []models.Order
	for _, o := range m.orders {
		if o.SellerID == sellerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memOrders) GetByPath(_ context.Context, path string) (*models.Order, error) {
	if !strings.HasPrefix(path, "users/") && !strings.HasPrefix(path, "orders/") {
		return nil, store.ErrInvalidOrderPath
	}
	for _, o := range m.orders {
		if o.Path == path {
			return &o, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memOrders) UpdateStatus(_ context.Context, sellerID, ref, status string) (*models.Order, error) {
	for i, o := range m.orders {
		if (o.Path == ref || o.ID == ref) && o.SellerID == sellerID {
			m.orders[i].Status = status
			return &m.orders[i], nil
		}
	}
	return nil, store.ErrNotFound
}

type memTaxonomy struct {
	brands []string
}

func (m *memTaxonomy) ListCategories(context.Context) ([]models.Category, error) {
	return []models.Category{{ID: "c1", Name: "Apparel"}, {ID: "c2", Name: "Home"}}, nil
}

func (m *memTaxonomy) ListSubCategories(_ context.Context, categoryID string) ([]models.SubCategory, error) {
	all := []models.SubCategory{{ID: "s1", CategoryID: "c1", Name: "Shirts"}, {ID: "s2", CategoryID: "c2", Name: "Lamps"}}
	if categoryID == "" {
		return all, nil
	}
	var out []models.SubCategory
	for _, s := range all {
		if s.CategoryID == categoryID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memTaxonomy) ListBrands(context.Context) ([]models.Brand, error) {
	return []models.Brand{{ID: 1, Name: "Acme", Slug: "acme"}}, nil
}

func (m *memTaxonomy) EnsureBrand(_ context.Context, name string) (*models.Brand, error) {
	m.brands = append(m.brands, name)
	return &models.Brand{Name: name}, nil
}

func (m *memTaxonomy) CategoryNames(_ context.Context, ids []string) (map[string]string, error) {
	names := map[string]string{"c1": "Apparel", "c2": "Home"}
	out := map[string]string{}
	for _, id := range ids {
		if n, ok := names[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}

func (m *memTaxonomy) SubCategoryNames(_ context.Context, ids []string) (map[string]string, error) {
	out := map[string]string{}
	for _, id := range ids {
		if id == "s1" {
			out[id] = "Shirts"
		}
	}
	return out, nil
}

type memUploads struct {
	mu   sync.Mutex
	recs map[string]models.UploadRecord
}

func (m *memUploads) CreateUpload(_ context.Context, r *models.UploadRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[r.ID] = *r
	return nil
}

func (m *memUploads) UpdateUpload(ctx context.Context, r *models.UploadRecord) error {
	return m.CreateUpload(ctx, r)
}

func (m *memUploads) GetUpload(_ context.Context, id string) (*models.UploadRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &r, nil
}

func (m *memUploads) DeleteUpload(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.recs, id)
	return nil
}

func (m *memUploads) ListUploads(_ context.Context, sellerID string) ([]models.UploadRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.UploadRecord{}
	for _, r := range m.recs {
		if r.SellerID == sellerID {
			out = append(out, r)
		}
	}
	return out, nil
}

// --- Harness ---

type env struct {
	t        *testing.T
	router   *gin.Engine
	h        *handlers.Handlers
	sellers  *memSellers
	products *memProducts
	sales    *mockSales
	orders   *memOrders
	taxonomy *memTaxonomy
	store    verification.Persistence
	root     string
}

func newEnv(t *testing.T) *env {
	gin.SetMode(gin.TestMode)

	e := &env{
		t:        t,
		sellers:  newMemSellers(),
		products: &memProducts{byID: map[string]models.Product{}},
		sales:    &mockSales{},
		orders:   &memOrders{},
		taxonomy: &memTaxonomy{},
		store:    verification.NewMemoryPersistence(),
	}
	uploads := &memUploads{recs: map[string]models.UploadRecord{}}
	e.root = t.TempDir()
	media := upload.NewOrchestrator(upload.NewLocalStore(e.root, "http://test/uploads"), nil)

	e.h = &handlers.Handlers{
		Sellers:  e.sellers,
		Products: e.products,
		Sales:    e.sales,
		Orders:   e.orders,
		Taxonomy: e.taxonomy,
		Uploads:  uploads,
		Importer: &importer.Driver{
			Grouper:  &importer.Grouper{Resolver: e.taxonomy},
			Products: e.products,
			Records:  uploads,
			Brands:   e.taxonomy,
			Uploader: media,
			Tracker:  importer.NewTracker(time.Hour),
		},
		Media:    media,
		Sessions: verification.NewSessionManager(e.store, nil, time.Hour),
		Tokens:   auth.NewTokenIssuer("test-secret", time.Hour),
		Mailer:   email.LogSender{Log: zap.NewNop()},
		BaseURL:  "http://test",
	}
	e.router = routes.SetupRouter(e.h, routes.Options{})
	return e
}

func (e *env) token(id, role string) string {
	tok, err := e.h.Tokens.GenerateToken(id, role)
	require.NoError(e.t, err)
	return tok
}

func (e *env) addSeller(id, status string) *models.Seller {
	var pw models.Password
	require.NoError(e.t, pw.Set("secret-pass"))
	s := &models.Seller{
		ID: id, Role: models.RoleSeller, Status: status, Email: id + "@example.com",
		PasswordHash: pw.Hash, FirstName: "Asha", VerificationStatus: models.NewVerificationStatus(),
	}
	require.NoError(e.t, e.sellers.Create(context.Background(), s))
	return s
}

func (e *env) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type part struct {
	field, name, contentType string
	data                     []byte
}

func (e *env) multipart(path, token string, fields map[string]string, parts ...part) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, e.multipartRequest(path, token, fields, parts...))
	return w
}

func (e *env) multipartRequest(path, token string, fields map[string]string, parts ...part) *http.Request {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(e.t, mw.WriteField(k, v))
	}
	for _, p := range parts {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, p.field, p.name))
		h.Set("Content-Type", p.contentType)
		w, err := mw.CreatePart(h)
		require.NoError(e.t, err)
		_, err = w.Write(p.data)
		require.NoError(e.t, err)
	}
	require.NoError(e.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// --- Auth ---

func TestRegisterSellerInputValidate(t *testing.T) {
	in := handlers.RegisterSellerInput{
		FirstName: "Asha", LastName: "Rao", Email: "asha@example.com", Phone: "9876543210",
		BusinessName: "Rao Textiles", BusinessType: "proprietorship", Address: "12 MG Road",
		City: "Pune", State: "MH", Pincode: "411001", Password: "longenough", ConfirmPassword: "longenough",
	}
	assert.Empty(t, in.Validate())

	bad := in
	bad.Phone = "12345"
	bad.Pincode = "011001"
	bad.GSTNumber = "nope"
	bad.ConfirmPassword = "different"
	errs := bad.Validate()
	assert.Equal(t, "Please enter a valid 10-digit phone number", errs["phone"])
	assert.Equal(t, "Please enter a valid 6-digit pincode", errs["pincode"])
	assert.Equal(t, "Please enter a valid GST number", errs["gstNumber"])
	assert.Equal(t, "Passwords do not match", errs["confirmPassword"])

	short := in
	short.Password, short.ConfirmPassword = "short", "short"
	assert.Equal(t, "Password must be at least 8 characters long", short.Validate()["password"])
}

func TestRegisterAndLogin(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodPost, "/v1/auth/register", "", map[string]string{
		"firstName": "Asha", "lastName": "Rao", "email": "Asha@Example.com", "phone": "9876543210",
		"businessName": "Rao Textiles", "businessType": "proprietorship", "address": "12 MG Road",
		"city": "Pune", "state": "MH", "pincode": "411001",
		"password": "longenough", "confirmPassword": "longenough",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.NotEmpty(t, body["token"])

	seller, err := e.sellers.GetByEmail(context.Background(), "asha@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.SellerStatusPending, seller.Status)

	// session persisted under the seller key
	_, err = e.store.Get(context.Background(), verification.SessionKey(seller.ID))
	assert.NoError(t, err)

	// pending sellers cannot log in
	w = e.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "asha@example.com", "password": "longenough"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Your seller account is still under review.", decode(t, w)["error"])

	// duplicate email
	w = e.do(http.MethodPost, "/v1/auth/register", "", map[string]string{
		"firstName": "A", "lastName": "B", "email": "asha@example.com", "phone": "9876543210",
		"businessName": "X", "businessType": "y", "address": "z", "city": "c", "state": "s",
		"pincode": "411001", "password": "longenough", "confirmPassword": "longenough",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLoginStatuses(t *testing.T) {
	e := newEnv(t)
	e.addSeller("blocked", models.SellerStatusBlocked)
	e.addSeller("rejected", models.SellerStatusRejected)
	e.addSeller("ok", models.SellerStatusPendingReview)

	cases := []struct {
		email, password string
		code            int
		msg             string
	}{
		{"missing@example.com", "secret-pass", http.StatusNotFound, "Seller account not found. Please register first."},
		{"blocked@example.com", "secret-pass", http.StatusForbidden, "Your account has been blocked. Please contact support."},
		{"rejected@example.com", "secret-pass", http.StatusForbidden, "Your seller account has been rejected."},
		{"ok@example.com", "wrong-pass", http.StatusUnauthorized, "Invalid email or password."},
	}
	for _, tc := range cases {
		w := e.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"email": tc.email, "password": tc.password})
		assert.Equal(t, tc.code, w.Code, tc.email)
		assert.Equal(t, tc.msg, decode(t, w)["error"], tc.email)
	}

	w := e.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "ok@example.com", "password": "secret-pass"})
	require.Equal(t, http.StatusOK, w.Code)
	tok := decode(t, w)["token"].(string)

	w = e.do(http.MethodPost, "/v1/auth/logout", tok, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	_, err := e.store.Get(context.Background(), verification.SessionKey("ok"))
	assert.ErrorIs(t, err, verification.ErrNoSession)
}

func TestPasswordReset(t *testing.T) {
	e := newEnv(t)
	e.addSeller("s1", models.SellerStatusApproved)

	w := e.do(http.MethodPost, "/v1/auth/password-reset", "", map[string]string{"email": "s1@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	s, _ := e.sellers.GetByID(context.Background(), "s1")
	require.NotNil(t, s.ResetToken)

	w = e.do(http.MethodPost, "/v1/auth/password-reset/confirm", "", map[string]string{"token": "bogus", "password": "new-password"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodPost, "/v1/auth/password-reset/confirm", "", map[string]string{"token": *s.ResetToken, "password": "new-password"})
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "s1@example.com", "password": "new-password"})
	assert.Equal(t, http.StatusOK, w.Code)
}

// --- Documents & review ---

func TestDocumentUploadValidation(t *testing.T) {
	e := newEnv(t)
	e.addSeller("s1", models.SellerStatusPending)
	tok := e.token("s1", models.RoleSeller)

	w := e.multipart("/v1/seller/documents/passport", tok, nil, part{"file", "a.pdf", "application/pdf", []byte("%PDF")})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.multipart("/v1/seller/documents/identity", tok, nil, part{"file", "a.gif", "image/gif", []byte("GIF")})
	assert.Equal(t, "Invalid format. Allowed PDF, JPG, JPEG, PNG", decode(t, w)["error"])

	big := bytes.Repeat([]byte("x"), handlers.MaxDocumentSize+1)
	w = e.multipart("/v1/seller/documents/identity", tok, nil, part{"file", "a.pdf", "application/pdf", big})
	assert.Equal(t, "Max file size is 5MB", decode(t, w)["error"])
}

func TestDocumentLifecycle(t *testing.T) {
	e := newEnv(t)
	e.addSeller("s1", models.SellerStatusPending)
	tok := e.token("s1", models.RoleSeller)
	reviewer := e.token("r1", models.RoleReviewer)

	// submitting early is refused
	w := e.do(http.MethodPost, "/v1/seller/documents/submit", tok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	for _, c := range models.RequiredCategories {
		w := e.multipart("/v1/seller/documents/"+string(c), tok, nil, part{"file", "scan.pdf", "application/pdf", []byte("%PDF-1.4")})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	s, _ := e.sellers.GetByID(context.Background(), "s1")
	assert.Equal(t, models.DocUploaded, s.VerificationStatus.Identity)
	require.NotNil(t, s.Documents.Bank)
	assert.True(t, strings.HasPrefix(s.Documents.Bank.Path, "seller-documents/s1/bank_scan_"))

	w = e.do(http.MethodPost, "/v1/seller/documents/submit", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.SellerStatusPendingReview, e.sellers.statuses["s1"])

	// sellers cannot review
	w = e.do(http.MethodPatch, "/v1/reviewer/sellers/s1/documents/identity", tok, map[string]string{"status": "approved"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(http.MethodPatch, "/v1/reviewer/sellers/s1/documents/identity", reviewer,
		map[string]string{"status": "rejected", "reason": "Blurry scan"})
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(http.MethodGet, "/v1/seller/notifications", tok, nil)
	var notes struct {
		Notifications []verification.Notification `json:"notifications"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &notes))
	require.NotEmpty(t, notes.Notifications)
	assert.Equal(t, "Blurry scan", notes.Notifications[0].Message)
	assert.Equal(t, verification.NotifyError, notes.Notifications[0].Type)

	for _, c := range models.RequiredCategories {
		w := e.do(http.MethodPatch, "/v1/reviewer/sellers/s1/documents/"+string(c), reviewer, map[string]string{"status": "approved"})
		require.Equal(t, http.StatusOK, w.Code)
	}
	s, _ = e.sellers.GetByID(context.Background(), "s1")
	assert.Equal(t, models.OverallApproved, s.VerificationStatus.Overall)
	assert.Equal(t, models.SellerStatusApproved, s.Status)

	w = e.do(http.MethodGet, "/v1/seller/verification", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	progress := decode(t, w)["progress"].(map[string]any)
	assert.Equal(t, float64(100), progress["verificationProgress"])
	assert.Equal(t, true, progress["canStartSelling"])

	// deleting resets the category
	w = e.do(http.MethodDelete, "/v1/seller/documents/address", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	s, _ = e.sellers.GetByID(context.Background(), "s1")
	assert.Nil(t, s.Documents.Address)
	assert.Equal(t, models.DocNotUploaded, s.VerificationStatus.Address)
}

func TestConcurrentDocumentUploads(t *testing.T) {
	e := newEnv(t)
	e.addSeller("s1", models.SellerStatusPending)
	tok := e.token("s1", models.RoleSeller)

	reqs := make([]*http.Request, 0, len(models.RequiredCategories))
	for _, c := range models.RequiredCategories {
		reqs = append(reqs, e.multipartRequest("/v1/seller/documents/"+string(c), tok, nil,
			part{"file", string(c) + ".pdf", "application/pdf", []byte("%PDF-1.4")}))
	}

	codes := make([]int, len(reqs))
	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req *http.Request) {
			defer wg.Done()
			w := httptest.NewRecorder()
			e.router.ServeHTTP(w, req)
			codes[i] = w.Code
		}(i, req)
	}
	wg.Wait()

	for i, code := range codes {
		assert.Equal(t, http.StatusOK, code, models.RequiredCategories[i])
	}
	s, err := e.sellers.GetByID(context.Background(), "s1")
	require.NoError(t, err)
	for _, c := range models.RequiredCategories {
		assert.NotNil(t, s.Documents.Get(c), c)
		assert.Equal(t, models.DocUploaded, s.VerificationStatus.Get(c), c)
	}
	assert.Equal(t, models.OverallInReview, s.VerificationStatus.Overall)
}

func TestReviewReseedsFromSellerRow(t *testing.T) {
	e := newEnv(t)
	e.addSeller("s1", models.SellerStatusPending)
	tok := e.token("s1", models.RoleSeller)
	reviewer := e.token("r1", models.RoleReviewer)

	w := e.multipart("/v1/seller/documents/identity", tok, nil, part{"file", "id.pdf", "application/pdf", []byte("%PDF")})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// the row changes behind the cached session
	s, err := e.sellers.GetByID(context.Background(), "s1")
	require.NoError(t, err)
	docs := s.Documents.With(models.CategoryBank, &models.DocumentRecord{FileName: "bank.pdf", Path: "seller-documents/s1/bank.pdf"})
	status := s.VerificationStatus.With(models.CategoryBank, models.DocUploaded)
	require.NoError(t, e.sellers.SaveVerification(context.Background(), "s1", docs, status))

	w = e.do(http.MethodPatch, "/v1/reviewer/sellers/s1/documents/bank", reviewer, map[string]string{"status": "approved"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	s, err = e.sellers.GetByID(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, s.Documents.Identity)
	require.NotNil(t, s.Documents.Bank)
	assert.Equal(t, models.DocUploaded, s.VerificationStatus.Identity)
	assert.Equal(t, models.DocApproved, s.VerificationStatus.Bank)
	assert.Equal(t, models.OverallPending, s.VerificationStatus.Overall)
}

// --- Products ---

func createProduct(e *env, tok string, input handlers.CreateProductInput) *httptest.ResponseRecorder {
	raw, err := json.Marshal(input)
	require.NoError(e.t, err)
	return e.multipart("/v1/products", tok, map[string]string{"product": string(raw), "imageColors": "Red"},
		part{"mainImage", "front.jpg", "image/jpeg", []byte("jpeg-main")},
		part{"images", "side.jpg", "image/jpeg", []byte("jpeg-side")},
	)
}

func TestCreateProduct(t *testing.T) {
	e := newEnv(t)
	tok := e.token("s1", models.RoleSeller)

	input := handlers.CreateProductInput{
		Name: "Cotton Shirt", SKU: "CS-1", Brand: "Acme", CategoryID: "c1", SubCategoryID: "s9",
		Variants: []catalog.VariantInput{
			{Color: " Red ", Size: "m", Price: "500", OfferPrice: "450", Stock: "3"},
			{Color: "Blue", Size: "l", Price: "500", Stock: "2"},
		},
	}
	w := createProduct(e, tok, input)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Product models.Product `json:"product"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	p := resp.Product
	assert.Equal(t, "s1", p.SellerID)
	assert.Equal(t, "s1", p.SellerIDLower)
	assert.Equal(t, "s1", p.SellerIDUpper)
	assert.Equal(t, "Apparel", p.Category.Name)
	require.NotNil(t, p.SubCategory)
	assert.Equal(t, "N/A", p.SubCategory.Name)
	assert.Equal(t, 5, p.Stock)
	assert.Equal(t, "Red", p.Variants[0].Color)
	assert.Equal(t, "M", p.Variants[0].Size)
	require.Len(t, p.ImageURLs, 2)
	assert.True(t, p.ImageURLs[0].IsMain)
	assert.Equal(t, p.ImageURLs[0].URL, p.MainImageURL)
	assert.Equal(t, "Red", p.ImageURLs[1].Color)
	assert.Contains(t, p.SearchKeywords, "cotton")
	assert.Equal(t, []string{"Acme"}, e.taxonomy.brands)

	w = e.do(http.MethodGet, "/v1/products/search?q=cotton", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["total"])

	// other sellers cannot see it
	w = e.do(http.MethodGet, "/v1/products/"+p.ID, e.token("s2", models.RoleSeller), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(http.MethodDelete, "/v1/products/"+p.ID, tok, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, e.products.byID)
}

func TestDeleteProductRemovesMedia(t *testing.T) {
	e := newEnv(t)
	tok := e.token("s1", models.RoleSeller)

	raw, err := json.Marshal(handlers.CreateProductInput{
		Name: "Lamp", SKU: "L-1", CategoryID: "c2",
		Variants: []catalog.VariantInput{{Color: "White", Price: "900", Stock: "1"}},
	})
	require.NoError(t, err)
	w := e.multipart("/v1/products", tok, map[string]string{"product": string(raw)},
		part{"mainImage", "lamp.png", "image/png", []byte("png")},
		part{"video", "demo.mp4", "video/mp4", []byte("mp4-bytes")},
	)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Product models.Product `json:"product"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	p := resp.Product
	assert.Equal(t, models.VideoTypeUpload, p.VideoType)
	require.NotEmpty(t, p.VideoPath)
	require.FileExists(t, filepath.Join(e.root, p.VideoPath))
	require.FileExists(t, filepath.Join(e.root, p.ImageURLs[0].Path))

	w = e.do(http.MethodDelete, "/v1/products/"+p.ID, tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NoFileExists(t, filepath.Join(e.root, p.VideoPath))
	assert.NoFileExists(t, filepath.Join(e.root, p.ImageURLs[0].Path))
}

func TestCreateProductRejectsBadVariant(t *testing.T) {
	e := newEnv(t)
	tok := e.token("s1", models.RoleSeller)

	w := createProduct(e, tok, handlers.CreateProductInput{
		Name: "Shirt", SKU: "CS-1", CategoryID: "c1",
		Variants: []catalog.VariantInput{
			{Color: "Red", Size: "M", Price: "500", Stock: "1"},
			{Color: "red", Size: "m", Price: "400", Stock: "1"},
		},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, catalog.ErrDuplicateVariant.Error(), body["error"])
	assert.Equal(t, float64(1), body["variant"])
	assert.Empty(t, e.products.byID)
}

func TestBuildVariants(t *testing.T) {
	vs, err := handlers.BuildVariants([]catalog.VariantInput{{Price: "100", Stock: "1"}})
	require.NoError(t, err)
	assert.Equal(t, "N/A", vs[0].Color)

	_, err = handlers.BuildVariants([]catalog.VariantInput{{Price: "100", OfferPrice: "100"}})
	assert.ErrorIs(t, err, catalog.ErrOfferPrice)
}

// --- Inventory ---

func seedProduct(e *env, id, seller string, stocks ...int) {
	p := models.Product{ID: id, Name: "Lamp"}
	for i, s := range stocks {
		p.Variants = append(p.Variants, models.Variant{VariantID: fmt.Sprintf("v%d", i), Price: 100, Stock: s})
	}
	p.SetSellerID(seller)
	p.Stock = p.TotalStock()
	e.products.byID[id] = p
}

func TestRecordSale(t *testing.T) {
	e := newEnv(t)
	tok := e.token("s1", models.RoleSeller)
	seedProduct(e, "p1", "s1", 2, 3)

	e.sales.On("InsertSale", mock.Anything, mock.MatchedBy(func(s *models.Sale) bool {
		return s.Quantity == 4 && s.TotalAmount == 400 && s.SellerID == "s1"
	})).Return(nil).Once()

	w := e.do(http.MethodPost, "/v1/products/p1/sales", tok, map[string]any{"quantity": 4})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	p := e.products.byID["p1"]
	assert.Equal(t, 0, p.Variants[0].Stock)
	assert.Equal(t, 1, p.Variants[1].Stock)

	w = e.do(http.MethodPost, "/v1/products/p1/sales", tok, map[string]any{"quantity": 5})
	assert.Equal(t, http.StatusConflict, w.Code)
	e.sales.AssertExpectations(t)
}

func TestRecordSaleRestoresStockOnFailure(t *testing.T) {
	e := newEnv(t)
	tok := e.token("s1", models.RoleSeller)
	seedProduct(e, "p1", "s1", 5)
	e.sales.On("InsertSale", mock.Anything, mock.Anything).Return(errors.New("mongo down"))

	w := e.do(http.MethodPost, "/v1/products/p1/sales", tok, map[string]any{"quantity": 2})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 5, e.products.byID["p1"].Variants[0].Stock)
}

func TestUpdateVariantStockAndStats(t *testing.T) {
	e := newEnv(t)
	tok := e.token("s1", models.RoleSeller)
	seedProduct(e, "p1", "s1", 1)
	e.orders.orders = []models.Order{
		{ID: "o1", SellerID: "s1", Status: models.OrderStatusPending},
		{ID: "o2", SellerID: "s1", Status: models.OrderStatusDelivered},
	}
	e.sales.On("ListSales", mock.Anything, "s1").Return([]models.Sale{{Quantity: 2, TotalAmount: 200}}, nil)

	w := e.do(http.MethodPatch, "/v1/products/p1/variants/v0/stock", tok, map[string]any{"stock": 7})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 7, e.products.byID["p1"].Stock)

	w = e.do(http.MethodPatch, "/v1/products/p1/variants/v0/stock", tok, map[string]any{"stock": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodGet, "/v1/products/stats", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats handlers.SellerDashboard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 7, stats.TotalStock)
	assert.Equal(t, int64(700), stats.TotalValue)
	assert.Equal(t, 2, stats.TotalSold)
	assert.Equal(t, 2, stats.Orders.Total)
	assert.Equal(t, 1, stats.Orders.Delivered)
}

// --- Bulk import ---

func TestBulkPreviewAndImport(t *testing.T) {
	e := newEnv(t)
	tok := e.token("s1", models.RoleSeller)
	csv := "SKU,Name,Brand,CategoryID,Variant_Color,Variant_Size,Variant_Price,Variant_Stock\n" +
		"B-1,Bulb,Acme,c2,White,S,50,10\n" +
		"B-1,Bulb,Acme,c2,Warm,S,55,5\n"

	w := e.multipart("/v1/products/bulk/preview", tok, nil, part{"files", "bulbs.csv", "text/csv", []byte(csv)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, float64(1), body["totalProducts"])
	assert.Equal(t, float64(2), body["totalVariants"])
	assert.Empty(t, e.products.byID)

	w = e.multipart("/v1/products/bulk", tok, nil, part{"files", "bulbs.csv", "text/csv", []byte(csv)})
	require.Equal(t, http.StatusAccepted, w.Code)
	id := decode(t, w)["uploadId"].(string)

	require.Eventually(t, func() bool {
		job, ok := e.h.Importer.Tracker.Get(id)
		return ok && job.Status == models.UploadStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	w = e.do(http.MethodGet, "/v1/products/bulk/"+id, tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = e.do(http.MethodGet, "/v1/products/bulk/"+id, e.token("s2", models.RoleSeller), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(http.MethodGet, "/v1/products/export", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")

	w = e.do(http.MethodDelete, "/v1/products/bulk/"+id, tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["deletedProducts"])
}

func TestBulkImportWithoutProducts(t *testing.T) {
	e := newEnv(t)
	tok := e.token("s1", models.RoleSeller)

	w := e.multipart("/v1/products/bulk", tok, nil, part{"files", "empty.csv", "text/csv", []byte("SKU,Name\n")})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.multipart("/v1/products/bulk/preview", tok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Orders, taxonomy, assistant ---

func TestOrders(t *testing.T) {
	e := newEnv(t)
	tok := e.token("s1", models.RoleSeller)
	e.orders.orders = []models.Order{
		{ID: "o1", Path: "users/u1/orders/o1", SellerID: "s1", Status: models.OrderStatusPending},
		{ID: "o2", Path: "orders/o2", SellerID: "s2", Status: models.OrderStatusPending},
	}

	w := e.do(http.MethodGet, "/v1/orders", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	counts := decode(t, w)["counts"].(map[string]any)
	assert.Equal(t, float64(1), counts["total"])

	w = e.do(http.MethodGet, "/v1/orders/by-path?path=users/u1/orders/o1", tok, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = e.do(http.MethodGet, "/v1/orders/by-path?path=orders/o2", tok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = e.do(http.MethodGet, "/v1/orders/by-path?path=carts/c1", tok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodPatch, "/v1/orders/o1/status", tok, map[string]string{"status": "teleported"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = e.do(http.MethodPatch, "/v1/orders/o1/status", tok, map[string]string{"status": models.OrderStatusShipped})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.OrderStatusShipped, e.orders.orders[0].Status)
}

func TestCategoriesAndBrands(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodGet, "/v1/categories", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Categories []handlers.CategoryNode `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Categories, 2)
	assert.Equal(t, "Shirts", resp.Categories[0].SubCategories[0].Name)

	w = e.do(http.MethodGet, "/v1/brands", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBuildCategoryTreeDropsOrphans(t *testing.T) {
	tree := handlers.BuildCategoryTree(
		[]models.Category{{ID: "c1"}},
		[]models.SubCategory{{ID: "s1", CategoryID: "c1"}, {ID: "s2", CategoryID: "gone"}},
	)
	require.Len(t, tree, 1)
	assert.Len(t, tree[0].SubCategories, 1)
}

func TestDescribeWithoutAssistant(t *testing.T) {
	e := newEnv(t)
	w := e.do(http.MethodPost, "/v1/products/describe", e.token("s1", models.RoleSeller), map[string]string{"name": "Lamp"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
