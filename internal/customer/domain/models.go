package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Customer struct {
	ID                   snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name                 string            `gorm:"not null" json:"name"`
	Address              string            `json:"address"`
	Area                 string            `json:"area"`
	Phone                string            `gorm:"not null" json:"phone"`
	Email                string            `json:"email,omitempty"`
	STBNumber            string            `gorm:"column:stb_number" json:"stb_number,omitempty"`
	IDProofURL           string            `gorm:"column:id_proof_url" json:"id_proof_url,omitempty"`
	IDProofKey           string            `gorm:"column:id_proof_key" json:"-"`
	IDProofVerified      bool              `gorm:"column:id_proof_verified" json:"id_proof_verified"`
	AddressProofURL      string            `gorm:"column:address_proof_url" json:"address_proof_url,omitempty"`
	AddressProofKey      string            `gorm:"column:address_proof_key" json:"-"`
	AddressProofVerified bool              `gorm:"column:address_proof_verified" json:"address_proof_verified"`
	Metadata             datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	Active               bool              `gorm:"not null" json:"active"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

func (Customer) TableName() string { return "customers" }

type DocumentKind string

const (
	DocumentIDProof      DocumentKind = "id_proof"
	DocumentAddressProof DocumentKind = "address_proof"
)

func ParseDocumentKind(value string) (DocumentKind, bool) {
	switch DocumentKind(value) {
	case DocumentIDProof, "idProof":
		return DocumentIDProof, true
	case DocumentAddressProof, "addressProof":
		return DocumentAddressProof, true
	}
	return "", false
}

// Document returns the stored URL, storage key and verification flag for kind.
func (c *Customer) Document(kind DocumentKind) (url, key string, verified bool) {
	if kind == DocumentAddressProof {
		return c.AddressProofURL, c.AddressProofKey, c.AddressProofVerified
	}
	return c.IDProofURL, c.IDProofKey, c.IDProofVerified
}

func (c *Customer) SetDocument(kind DocumentKind, url, key string, verified bool) {
	if kind == DocumentAddressProof {
		c.AddressProofURL, c.AddressProofKey, c.AddressProofVerified = url, key, verified
		return
	}
	c.IDProofURL, c.IDProofKey, c.IDProofVerified = url, key, verified
}
