package lock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var ErrNotObtained = errors.New("lock not obtained")

// Release frees a held lock. It is safe to call once.
type Release func()

// Locker serializes work on a key. Obtain blocks until the key is free, the
// context ends, or the implementation gives up.
type Locker interface {
	Obtain(ctx context.Context, key string) (Release, error)
}

// ObtainAll acquires every key in sorted order so two callers needing an
// overlapping set of keys cannot deadlock. Duplicate keys are taken once.
func ObtainAll(ctx context.Context, l Locker, keys ...string) (Release, error) {
	sorted := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	held := make([]Release, 0, len(sorted))
	releaseAll := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i]()
		}
	}
	for _, k := range sorted {
		release, err := l.Obtain(ctx, k)
		if err != nil {
			releaseAll()
			return nil, fmt.Errorf("obtain lock %s: %w", k, err)
		}
		held = append(held, release)
	}
	return releaseAll, nil
}

func LedgerDayKey(businessID string, day time.Time) string {
	return "ledger:" + businessID + ":" + day.Format("2006-01-02")
}

func LedgerTransactionKey(businessID, transactionID string) string {
	return "ledger-tx:" + businessID + ":" + transactionID
}

func SettlementKey(businessID, instrumentID string) string {
	return "settlement:" + businessID + ":" + instrumentID
}

func PayrollKey(businessID, payrollID string) string {
	return "payroll:" + businessID + ":" + payrollID
}

func PayrollPeriodKey(businessID, employeeID string, start, end time.Time) string {
	return strings.Join([]string{"payroll-period", businessID, employeeID, start.Format("2006-01-02"), end.Format("2006-01-02")}, ":")
}

func CommissionKey(businessID, commissionID string) string {
	return "commission:" + businessID + ":" + commissionID
}
