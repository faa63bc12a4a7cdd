// Package catalog serves the static rental-package listing shown before
// checkout. Read-only; rows are managed by seeding/ops, not by this service.
package catalog

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Package struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SetKey          string    `gorm:"type:varchar(64);not null" json:"setKey"`
	SiteType        string    `gorm:"type:varchar(32);not null;index:ix_packages_site_type" json:"siteType"`
	SiteNo          *string   `gorm:"type:varchar(64);index:ix_packages_site_no" json:"siteNo"`
	Name            string    `gorm:"type:varchar(128);not null" json:"name"`
	AmountHalalas   int       `gorm:"not null" json:"amountHalalas"`
	DurationMinutes int       `gorm:"not null" json:"durationMinutes"`
	DisplayOrder    int       `gorm:"not null;default:0" json:"displayOrder"`
	Recommended     int       `gorm:"not null;default:0" json:"recommended"`
	Active          int       `gorm:"not null;default:1" json:"active"`
	CreatedAt       time.Time `gorm:"precision:3;not null" json:"createdAt"`
	UpdatedAt       time.Time `gorm:"precision:3;not null" json:"updatedAt"`
}

func (Package) TableName() string { return "packages" }

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

// List returns site-specific packages when the site has any, otherwise the
// site-type defaults (rows with no site binding).
func (r *Repo) List(ctx context.Context, siteType, siteNo string) ([]Package, error) {
	if siteType == "" {
		siteType = "SHOPPING_MALL"
	}

	if siteNo != "" {
		var siteRows []Package
		err := r.db.WithContext(ctx).
			Where("active = 1 AND site_no = ?", siteNo).
			Order("display_order ASC").
			Find(&siteRows).Error
		if err != nil {
			return nil, err
		}
		if len(siteRows) > 0 {
			return siteRows, nil
		}
	}

	var defaults []Package
	err := r.db.WithContext(ctx).
		Where("active = 1 AND site_type = ? AND site_no IS NULL", siteType).
		Order("display_order ASC").
		Find(&defaults).Error
	return defaults, err
}
