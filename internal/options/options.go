// Package options carries listing configuration as a plain value so the
// course service stays free of ambient state and easy to test.
package options

import (
	"github.com/mycourse/catalog-backend/internal/logger"
	"github.com/mycourse/catalog-backend/internal/utils"
)

// CoursesOptions configures the listing query surface.
type CoursesOptions struct {
	// InHome is how many courses the home-page lists show.
	InHome int
	// PerPage is the default page size for the full catalog listing.
	PerPage int
	// Order is the allow-listed set of sort keys accepted by the listing.
	Order []string
}

var defaultOrder = []string{"Title", "Rating", "CurrentPrice", "Id"}

func Default() CoursesOptions {
	return CoursesOptions{
		InHome:  5,
		PerPage: 10,
		Order:   defaultOrder,
	}
}

// Load reads listing options from the environment, falling back to defaults.
func Load(log *logger.Logger) CoursesOptions {
	def := Default()
	return CoursesOptions{
		InHome:  utils.GetEnvAsInt("COURSES_IN_HOME", def.InHome, log),
		PerPage: utils.GetEnvAsInt("COURSES_PER_PAGE", def.PerPage, log),
		Order:   utils.GetEnvAsList("COURSES_ORDER_FIELDS", def.Order, log),
	}
}

// Allows reports whether key is an accepted sort key.
func (o CoursesOptions) Allows(key string) bool {
	for _, k := range o.Order {
		if k == key {
			return true
		}
	}
	return false
}
