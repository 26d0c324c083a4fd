package cheques

import (
	"context"
	"sort"
	"time"

	"github.com/landbook/landbook/internal/shared"
	"github.com/landbook/landbook/internal/stats"
)

type memoryChequeRepo struct {
	cheques map[int64]Cheque
	deleted map[int64]bool
	nextID  int64
}

func newMemoryChequeRepo() *memoryChequeRepo {
	return &memoryChequeRepo{cheques: map[int64]Cheque{}, deleted: map[int64]bool{}, nextID: 1}
}

func (r *memoryChequeRepo) Insert(ctx context.Context, c Cheque) (int64, error) {
	for id, existing := range r.cheques {
		if !r.deleted[id] && existing.BankName == c.BankName && existing.ChequeNumber == c.ChequeNumber {
			return 0, shared.ErrDuplicateEntry
		}
	}
	c.ID = r.nextID
	r.nextID++
	r.cheques[c.ID] = c
	return c.ID, nil
}

func (r *memoryChequeRepo) live(id int64, from Status) (Cheque, bool) {
	c, ok := r.cheques[id]
	return c, ok && !r.deleted[id] && c.Status == from
}

func (r *memoryChequeRepo) Update(ctx context.Context, c Cheque, from Status) error {
	current, ok := r.live(c.ID, from)
	if !ok {
		return shared.ErrStaleState
	}
	c.CreatedBy = current.CreatedBy
	r.cheques[c.ID] = c
	return nil
}

func (r *memoryChequeRepo) SoftDelete(ctx context.Context, id int64, from Status) error {
	if _, ok := r.live(id, from); !ok {
		return shared.ErrStaleState
	}
	r.deleted[id] = true
	return nil
}

func (r *memoryChequeRepo) Settle(ctx context.Context, s Settlement) error {
	c, ok := r.live(s.ID, s.From)
	if !ok {
		return shared.ErrStaleState
	}
	actor, date := s.ActorID, s.Date
	c.Status = s.To
	switch s.To {
	case StatusCleared:
		c.ClearedBy, c.ClearedDate = &actor, &date
	case StatusBounced:
		c.BouncedBy, c.BouncedDate, c.BounceReason = &actor, &date, s.Reason
	case StatusCancelled:
		c.CancelledBy, c.CancelledDate, c.CancelReason = &actor, &date, s.Reason
	}
	r.cheques[s.ID] = c
	return nil
}

func (r *memoryChequeRepo) Sweep(ctx context.Context, today time.Time) (SweepResult, error) {
	var res SweepResult
	for id, c := range r.cheques {
		if r.deleted[id] {
			continue
		}
		switch {
		case (c.Status == StatusPending || c.Status == StatusDueToday) && c.DueDate.Before(today):
			c.Status = StatusOverdue
			res.Overdue++
		case c.Status == StatusPending && c.DueDate.Equal(today):
			c.Status = StatusDueToday
			res.DueToday++
		default:
			continue
		}
		r.cheques[id] = c
	}
	return res, nil
}

func (r *memoryChequeRepo) Get(ctx context.Context, id int64) (Cheque, error) {
	c, ok := r.cheques[id]
	if !ok || r.deleted[id] {
		return Cheque{}, shared.ErrNotFound
	}
	return c, nil
}

func (r *memoryChequeRepo) sorted(keep func(Cheque) bool) []Cheque {
	items := make([]Cheque, 0)
	for id, c := range r.cheques {
		if !r.deleted[id] && keep(c) {
			items = append(items, c)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].DueDate.Equal(items[j].DueDate) {
			return items[i].DueDate.Before(items[j].DueDate)
		}
		return items[i].ID < items[j].ID
	})
	return items
}

func (r *memoryChequeRepo) List(ctx context.Context, filter ListFilter) ([]Cheque, int, error) {
	items := r.sorted(func(c Cheque) bool {
		return filter.Status == "" || c.Status == filter.Status
	})
	return items, len(items), nil
}

func (r *memoryChequeRepo) DueBetween(ctx context.Context, from *time.Time, to time.Time) ([]Cheque, error) {
	return r.sorted(func(c Cheque) bool {
		if c.Status.IsTerminal() || c.DueDate.After(to) {
			return false
		}
		return from == nil || c.DueDate.After(*from)
	}), nil
}

func (r *memoryChequeRepo) StatusBuckets(ctx context.Context) ([]stats.StatusBucket, error) {
	byStatus := map[Status]stats.StatusBucket{}
	for _, c := range r.sorted(func(Cheque) bool { return true }) {
		b := byStatus[c.Status]
		b.Status = string(c.Status)
		b.Count++
		b.Amount = b.Amount.Add(c.Amount)
		byStatus[c.Status] = b
	}
	out := make([]stats.StatusBucket, 0, len(byStatus))
	for _, b := range byStatus {
		out = append(out, b)
	}
	return out, nil
}

// staleChequeRepo serves pinned Get snapshots, standing in for a request
// that read the row before a concurrent transition committed.
type staleChequeRepo struct {
	*memoryChequeRepo
	pinned map[int64]Cheque
}

func (r *staleChequeRepo) Get(ctx context.Context, id int64) (Cheque, error) {
	if c, ok := r.pinned[id]; ok {
		return c, nil
	}
	return r.memoryChequeRepo.Get(ctx, id)
}
