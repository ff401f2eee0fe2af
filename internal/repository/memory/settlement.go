package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/settlement"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/shared"
)

type InstrumentRepository struct {
	s *Store
}

func NewInstrumentRepository(s *Store) *InstrumentRepository {
	return &InstrumentRepository{s: s}
}

var _ settlement.InstrumentRepository = (*InstrumentRepository)(nil)

func (r *InstrumentRepository) Create(ctx context.Context, i settlement.Instrument) (settlement.Instrument, error) {
	err := r.s.do(ctx, func(st *state) error {
		k := key(i.BusinessID, i.ID)
		if _, ok := st.instruments[k]; ok {
			return fmt.Errorf("%w: instrument %s", shared.ErrConflict, i.ID)
		}
		i.Version = 1
		st.instruments[k] = cloneInstrument(i)
		return nil
	})
	if err != nil {
		return settlement.Instrument{}, err
	}
	return i, nil
}

func (r *InstrumentRepository) GetByID(ctx context.Context, businessID, id string) (settlement.Instrument, error) {
	var i settlement.Instrument
	err := r.s.do(ctx, func(st *state) error {
		found, ok := st.instruments[key(businessID, id)]
		if !ok {
			return settlement.ErrInstrumentNotFound
		}
		i = cloneInstrument(found)
		return nil
	})
	return i, err
}

func (r *InstrumentRepository) GetForUpdate(ctx context.Context, businessID, id string) (settlement.Instrument, error) {
	return r.GetByID(ctx, businessID, id)
}

func (r *InstrumentRepository) Update(ctx context.Context, i settlement.Instrument) (settlement.Instrument, error) {
	err := r.s.do(ctx, func(st *state) error {
		k := key(i.BusinessID, i.ID)
		current, ok := st.instruments[k]
		if !ok {
			return settlement.ErrInstrumentNotFound
		}
		if current.Version != i.Version {
			return fmt.Errorf("%w: instrument %s", shared.ErrConcurrentModification, i.ID)
		}
		i.Version++
		st.instruments[k] = cloneInstrument(i)
		return nil
	})
	if err != nil {
		return settlement.Instrument{}, err
	}
	return i, nil
}

func (r *InstrumentRepository) List(ctx context.Context, businessID string, filter settlement.InstrumentFilter) ([]settlement.Instrument, error) {
	out, err := r.collect(ctx, func(i settlement.Instrument) bool {
		if i.BusinessID != businessID {
			return false
		}
		if filter.Kind != nil && i.Kind != *filter.Kind {
			return false
		}
		if filter.Status != nil && i.Status != *filter.Status {
			return false
		}
		if filter.EmployeeID != nil && (i.EmployeeID == nil || *i.EmployeeID != *filter.EmployeeID) {
			return false
		}
		return true
	})
	// Newest first, like the list endpoints.
	sort.Slice(out, func(a, b int) bool {
		return out[a].CreatedAt.After(out[b].CreatedAt)
	})
	return out, err
}

func (r *InstrumentRepository) ListOutstandingAdvances(ctx context.Context, businessID, employeeID string) ([]settlement.Instrument, error) {
	out, err := r.collect(ctx, func(i settlement.Instrument) bool {
		return i.BusinessID == businessID &&
			i.Kind == settlement.KindAdvance &&
			i.Status == settlement.StatusPaid &&
			i.RemainingBalance.IsPositive() &&
			i.EmployeeID != nil && *i.EmployeeID == employeeID
	})
	sort.Slice(out, func(a, b int) bool {
		pa, pb := out[a].PaidAt, out[b].PaidAt
		if pa != nil && pb != nil && !pa.Equal(*pb) {
			return pa.Before(*pb)
		}
		return out[a].CreatedAt.Before(out[b].CreatedAt)
	})
	return out, err
}

func (r *InstrumentRepository) collect(ctx context.Context, match func(settlement.Instrument) bool) ([]settlement.Instrument, error) {
	var out []settlement.Instrument
	err := r.s.do(ctx, func(st *state) error {
		for _, i := range st.instruments {
			if match(i) {
				out = append(out, cloneInstrument(i))
			}
		}
		return nil
	})
	return out, err
}

// CommissionLedger keeps commissions and the deductions posted against them.
type CommissionLedger struct {
	s *Store
}

func NewCommissionLedger(s *Store) *CommissionLedger {
	return &CommissionLedger{s: s}
}

var _ settlement.CommissionLedger = (*CommissionLedger)(nil)

func (l *CommissionLedger) GetForUpdate(ctx context.Context, businessID, commissionID string) (settlement.Commission, error) {
	var c settlement.Commission
	err := l.s.do(ctx, func(st *state) error {
		found, ok := st.commissions[key(businessID, commissionID)]
		if !ok {
			return settlement.ErrCommissionNotFound
		}
		c = found
		return nil
	})
	return c, err
}

func (l *CommissionLedger) PostDeduction(ctx context.Context, businessID, commissionID string, d settlement.Deduction) error {
	return l.s.do(ctx, func(st *state) error {
		k := key(businessID, commissionID)
		c, ok := st.commissions[k]
		if !ok {
			return settlement.ErrCommissionNotFound
		}
		if d.Amount.GreaterThan(c.Available()) {
			return fmt.Errorf("%w: requested %s, available %s", settlement.ErrCommissionExhausted,
				d.Amount.StringFixed(2), c.Available().StringFixed(2))
		}
		c.Deducted = c.Deducted.Add(d.Amount)
		st.commissions[k] = c
		return nil
	})
}
