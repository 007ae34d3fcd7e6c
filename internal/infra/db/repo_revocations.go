package db

import (
	"context"
	"log"
	"time"

	"veritas/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RevocationRepository backs the attestation validator's revocation lookups
// with the certificate_revocations table.
type RevocationRepository struct {
	db *gorm.DB
}

func NewRevocationRepository(db *gorm.DB) *RevocationRepository {
	return &RevocationRepository{db: db}
}

// Status implements domain.RevocationChecker. A database error is reported
// as Unknown so the validator's RevocationMode decides the outcome.
func (r *RevocationRepository) Status(ctx context.Context, issuer, serial string) (domain.RevocationStatus, error) {
	if r.db == nil {
		return domain.RevocationStatusUnknown, errDBUnavailable
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&CertificateRevocationModel{}).
		Where("issuer = ? AND serial = ?", issuer, serial).
		Count(&count).Error
	if err != nil {
		log.Printf("db: revocation lookup failed for serial %s: %v", serial, err)
		return domain.RevocationStatusUnknown, err
	}
	if count > 0 {
		return domain.RevocationStatusRevoked, nil
	}
	return domain.RevocationStatusGood, nil
}

func (r *RevocationRepository) Revoke(ctx context.Context, rev domain.Revocation) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if rev.ID == "" {
		rev.ID = uuid.NewString()
	}
	model := CertificateRevocationModel{
		ID:        rev.ID,
		Issuer:    rev.Issuer,
		Serial:    rev.Serial,
		Reason:    rev.Reason,
		RevokedAt: rev.RevokedAt,
		CreatedAt: time.Now().UTC(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model).Error
}
