package option

import (
	"strconv"
	"time"

	"github.com/cablebill/cablebill/pkg/db/pagination"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 50
	maxPageSize     = 250
)

type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type pageOption struct {
	page pagination.Pagination
}

// ApplyPagination applies keyset pagination over (created_at, id) descending.
// One extra row is fetched so callers can tell whether another page exists.
func ApplyPagination(page pagination.Pagination) QueryOption {
	return pageOption{page: page}
}

func (o pageOption) Apply(db *gorm.DB) *gorm.DB {
	size := o.page.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	if o.page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(o.page.PageToken)
		if err == nil && cursor != nil {
			createdAt, terr := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
			id, ierr := strconv.ParseInt(cursor.ID, 10, 64)
			if terr == nil && ierr == nil {
				db = db.Where("(created_at < ?) OR (created_at = ? AND id < ?)", createdAt.UTC(), createdAt.UTC(), id)
			}
		}
	}

	return db.Limit(size + 1)
}
