// Package store persists scan reports.
//
// Two backends implement Store:
//   - FileStore: one JSON file per report, for single-user CLI use
//   - MongoStore: a MongoDB collection, for CI fleets sharing history
//
// Both return REPORT_NOT_FOUND from Get when the ID is unknown and list
// reports newest first.
package store

import (
	"context"

	"github.com/matzehuels/noscripts/pkg/report"
)

// DefaultListLimit caps List when callers pass a non-positive limit.
const DefaultListLimit = 20

// Store saves and loads reports.
type Store interface {
	Save(ctx context.Context, r *report.Report) error
	Get(ctx context.Context, id string) (*report.Report, error)
	List(ctx context.Context, limit int) ([]report.Summary, error)
	Close() error
}

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
