package repo

import (
	"context"

	"github.com/angelmondragon/civicpulse-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Base is embedded by the domain repositories. It binds every query to the
// request context so cancellations reach the driver.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Paginate is a gorm scope applying the offset and limit of a 1-indexed page.
// A non-positive limit leaves the query unbounded.
func Paginate(p pagination.Params) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if p.Limit <= 0 {
			return db
		}
		return db.Offset(p.Offset()).Limit(p.Limit)
	}
}
