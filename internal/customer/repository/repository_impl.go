package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/cablebill/cablebill/internal/customer/domain"
	"github.com/cablebill/cablebill/pkg/db/option"
	"github.com/cablebill/cablebill/pkg/db/pagination"
	"gorm.io/gorm"
)

const customerColumns = `id, name, address, area, phone, email, stb_number,
	id_proof_url, id_proof_key, id_proof_verified,
	address_proof_url, address_proof_key, address_proof_verified,
	metadata, active, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO customers (`+customerColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		customer.ID,
		customer.Name,
		customer.Address,
		customer.Area,
		customer.Phone,
		customer.Email,
		customer.STBNumber,
		customer.IDProofURL,
		customer.IDProofKey,
		customer.IDProofVerified,
		customer.AddressProofURL,
		customer.AddressProofKey,
		customer.AddressProofVerified,
		customer.Metadata,
		customer.Active,
		customer.CreatedAt,
		customer.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Exec(
		`UPDATE customers
		 SET name = ?, address = ?, area = ?, phone = ?, email = ?, stb_number = ?,
		     id_proof_url = ?, id_proof_key = ?, id_proof_verified = ?,
		     address_proof_url = ?, address_proof_key = ?, address_proof_verified = ?,
		     metadata = ?, active = ?, updated_at = ?
		 WHERE id = ?`,
		customer.Name,
		customer.Address,
		customer.Area,
		customer.Phone,
		customer.Email,
		customer.STBNumber,
		customer.IDProofURL,
		customer.IDProofKey,
		customer.IDProofVerified,
		customer.AddressProofURL,
		customer.AddressProofKey,
		customer.AddressProofVerified,
		customer.Metadata,
		customer.Active,
		customer.UpdatedAt,
		customer.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM customers WHERE id = ?`, id).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT `+customerColumns+` FROM customers WHERE id = ?`,
		id,
	).Scan(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListCustomerFilter, page pagination.Pagination) ([]*domain.Customer, error) {
	var customers []*domain.Customer
	stmt := db.WithContext(ctx).Model(&domain.Customer{})
	if filter.Area != "" {
		stmt = stmt.Where("area = ?", filter.Area)
	}
	if filter.Active != nil {
		stmt = stmt.Where("active = ?", *filter.Active)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		stmt = stmt.Where("(name LIKE ? OR phone LIKE ? OR stb_number LIKE ?)", like, like, like)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&customers).Error
	if err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *repo) CountBills(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(`SELECT COUNT(1) FROM bills WHERE customer_id = ?`, id).Scan(&count).Error
	return count, err
}

func (r *repo) DeleteSubscriptions(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM subscriptions WHERE customer_id = ?`, id).Error
}
