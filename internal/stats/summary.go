// Package stats aggregates per-entity counts and amounts for dashboards.
package stats

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
)

// StatusBucket is the count and amount sum for one status.
type StatusBucket struct {
	Status string          `json:"status"`
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// Summary is the aggregation returned for every entity.
type Summary struct {
	TotalCount  int64           `json:"totalCount"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	ByStatus    []StatusBucket  `json:"byStatus"`
}

// Provider computes a Summary for one entity.
type Provider interface {
	Stats(ctx context.Context) (Summary, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (Summary, error)

// Stats calls f.
func (f ProviderFunc) Stats(ctx context.Context) (Summary, error) {
	return f(ctx)
}

// FromBuckets builds a Summary from grouped rows, sorted by status.
func FromBuckets(buckets []StatusBucket) Summary {
	sum := Summary{TotalAmount: decimal.Zero, ByStatus: make([]StatusBucket, 0, len(buckets))}
	for _, b := range buckets {
		sum.TotalCount += b.Count
		sum.TotalAmount = sum.TotalAmount.Add(b.Amount)
		sum.ByStatus = append(sum.ByStatus, b)
	}
	sort.Slice(sum.ByStatus, func(i, j int) bool { return sum.ByStatus[i].Status < sum.ByStatus[j].Status })
	return sum
}

// Rows scans status/count/amount tuples produced by a GROUP BY query.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// ScanBuckets reads rows of (status, count, amount).
func ScanBuckets(rows Rows) ([]StatusBucket, error) {
	defer rows.Close()
	buckets := make([]StatusBucket, 0)
	for rows.Next() {
		var b StatusBucket
		if err := rows.Scan(&b.Status, &b.Count, &b.Amount); err != nil {
			return nil, err
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}
