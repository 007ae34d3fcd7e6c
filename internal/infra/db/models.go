package db

import "time"

type MediaRecordModel struct {
	ID             string    `gorm:"type:uuid;primaryKey"`
	Fingerprint    string    `gorm:"index;not null"`
	Status         string    `gorm:"not null"`
	Reason         string    `gorm:"not null"`
	HardwareBacked bool      `gorm:"not null"`
	TrustScore     int       `gorm:"not null"`
	CaptureTime    time.Time `gorm:"not null"`
	UploadTime     time.Time `gorm:"not null"`
	Latitude       float64   `gorm:"not null"`
	Longitude      float64   `gorm:"not null"`
	Azimuth        *float64
	Pitch          *float64
	Roll           *float64
	CreatedAt      time.Time `gorm:"not null"`
}

func (MediaRecordModel) TableName() string {
	return "media_records"
}

type CertificateRevocationModel struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	Issuer    string    `gorm:"index:idx_cert_revocations_issuer_serial;not null"`
	Serial    string    `gorm:"index:idx_cert_revocations_issuer_serial;not null"`
	Reason    string
	RevokedAt time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (CertificateRevocationModel) TableName() string {
	return "certificate_revocations"
}
