package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/01moynul/seller-console/internal/models"
)

// SellerStore reads and writes the 'sellers' table.
type SellerStore struct {
	DB *sqlx.DB
}

func NewSellerStore(db *sqlx.DB) *SellerStore {
	return &SellerStore{DB: db}
}

// sellerRow carries the JSON columns next to the flat ones.
type sellerRow struct {
	models.Seller
	DocumentsJSON    []byte `db:"documents"`
	VerificationJSON []byte `db:"verification_status"`
}

func (r *sellerRow) decode() (*models.Seller, error) {
	s := r.Seller
	s.VerificationStatus = models.NewVerificationStatus()
	if len(r.DocumentsJSON) > 0 {
		if err := json.Unmarshal(r.DocumentsJSON, &s.Documents); err != nil {
			return nil, fmt.Errorf("decode documents of seller %s: %w", s.ID, err)
		}
	}
	if len(r.VerificationJSON) > 0 {
		if err := json.Unmarshal(r.VerificationJSON, &s.VerificationStatus); err != nil {
			return nil, fmt.Errorf("decode verification status of seller %s: %w", s.ID, err)
		}
	}
	return &s, nil
}

const sellerColumns = `id, role, status, email, password_hash, first_name, last_name, phone,
	business_name, business_type, gst_number, address, city, state, pincode,
	documents, verification_status, documents_uploaded, reset_token, reset_expiry,
	created_at, updated_at`

// Create inserts a new seller. A taken email returns ErrDuplicate.
func (s *SellerStore) Create(ctx context.Context, seller *models.Seller) error {
	docs, err := json.Marshal(seller.Documents)
	if err != nil {
		return err
	}
	status, err := json.Marshal(seller.VerificationStatus)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO sellers (id, role, status, email, password_hash, first_name, last_name, phone,
			business_name, business_type, gst_number, address, city, state, pincode,
			documents, verification_status, documents_uploaded, created_at, updated_at)
		VALUES (:id, :role, :status, :email, :password_hash, :first_name, :last_name, :phone,
			:business_name, :business_type, :gst_number, :address, :city, :state, :pincode,
			:documents, :verification_status, :documents_uploaded, :created_at, :updated_at)`

	_, err = s.DB.NamedExecContext(ctx, query, sellerRow{Seller: *seller, DocumentsJSON: docs, VerificationJSON: status})
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return ErrDuplicate
		}
		return fmt.Errorf("insert seller: %w", err)
	}
	return nil
}

func (s *SellerStore) get(ctx context.Context, where string, arg any) (*models.Seller, error) {
	var row sellerRow
	query := "SELECT " + sellerColumns + " FROM sellers WHERE " + where + " LIMIT 1"
	if err := s.DB.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return row.decode()
}

func (s *SellerStore) GetByID(ctx context.Context, id string) (*models.Seller, error) {
	return s.get(ctx, "id = ?", id)
}

func (s *SellerStore) GetByEmail(ctx context.Context, email string) (*models.Seller, error) {
	return s.get(ctx, "email = ?", email)
}

func (s *SellerStore) GetByResetToken(ctx context.Context, token string) (*models.Seller, error) {
	return s.get(ctx, "reset_token = ?", token)
}

// UpdateProfile writes the editable profile columns.
func (s *SellerStore) UpdateProfile(ctx context.Context, id string, p *models.SellerProfile) error {
	query := `
		UPDATE sellers
		SET first_name = ?, last_name = ?, phone = ?, business_name = ?, business_type = ?,
			gst_number = ?, address = ?, city = ?, state = ?, pincode = ?, updated_at = ?
		WHERE id = ?`
	return s.exec(ctx, query, p.FirstName, p.LastName, p.Phone, p.BusinessName, p.BusinessType,
		p.GSTNumber, p.Address, p.City, p.State, p.Pincode, time.Now(), id)
}

// SaveVerification writes documents and verification status together.
func (s *SellerStore) SaveVerification(ctx context.Context, id string, docs models.Documents, v models.VerificationStatus) error {
	d, err := json.Marshal(docs)
	if err != nil {
		return err
	}
	vs, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.exec(ctx,
		"UPDATE sellers SET documents = ?, verification_status = ?, updated_at = ? WHERE id = ?",
		d, vs, time.Now(), id)
}

// SetStatus changes the account status. documentsUploaded is set alongside
// when the seller submits for review.
func (s *SellerStore) SetStatus(ctx context.Context, id, status string, documentsUploaded bool) error {
	return s.exec(ctx,
		"UPDATE sellers SET status = ?, documents_uploaded = ?, updated_at = ? WHERE id = ?",
		status, documentsUploaded, time.Now(), id)
}

func (s *SellerStore) SetResetToken(ctx context.Context, id, token string, expiry time.Time) error {
	return s.exec(ctx,
		"UPDATE sellers SET reset_token = ?, reset_expiry = ?, updated_at = ? WHERE id = ?",
		token, expiry, time.Now(), id)
}

// UpdatePassword stores a new hash and clears any reset token.
func (s *SellerStore) UpdatePassword(ctx context.Context, id, hash string) error {
	return s.exec(ctx,
		"UPDATE sellers SET password_hash = ?, reset_token = NULL, reset_expiry = NULL, updated_at = ? WHERE id = ?",
		hash, time.Now(), id)
}

func (s *SellerStore) exec(ctx context.Context, query string, args ...any) error {
	res, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
