package refunds

import (
	"context"
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/landbook/landbook/internal/cancellations"
	"github.com/landbook/landbook/internal/shared"
	"github.com/landbook/landbook/internal/stats"
)

type memoryRefundRepo struct {
	cancellations map[int64]cancellations.Cancellation
	refunds       map[int64]Refund
	history       map[int64][]shared.ApprovalLog
	nextID        int64
	failInsertAt  int
}

type memoryRefundTx struct {
	repo *memoryRefundRepo
}

func newMemoryRefundRepo() *memoryRefundRepo {
	return &memoryRefundRepo{
		cancellations: make(map[int64]cancellations.Cancellation),
		refunds:       make(map[int64]Refund),
		history:       make(map[int64][]shared.ApprovalLog),
		nextID:        1,
	}
}

func (r *memoryRefundRepo) addCancellation(id int64, status cancellations.Status, amount int64) {
	r.cancellations[id] = cancellations.Cancellation{
		ID:               id,
		SaleID:           id * 10,
		Status:           status,
		RefundableAmount: decimal.NewFromInt(amount),
		IsActive:         true,
	}
}

func (r *memoryRefundRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	refunds := make(map[int64]Refund, len(r.refunds))
	for k, v := range r.refunds {
		refunds[k] = v
	}
	history := make(map[int64][]shared.ApprovalLog, len(r.history))
	for k, v := range r.history {
		history[k] = append([]shared.ApprovalLog(nil), v...)
	}
	if err := fn(ctx, &memoryRefundTx{repo: r}); err != nil {
		r.refunds, r.history = refunds, history
		return err
	}
	return nil
}

func (r *memoryRefundRepo) Get(ctx context.Context, id int64) (Refund, error) {
	rf, ok := r.refunds[id]
	if !ok || !rf.IsActive {
		return Refund{}, shared.ErrNotFound
	}
	return rf, nil
}

func (r *memoryRefundRepo) sorted(keep func(Refund) bool) []Refund {
	items := make([]Refund, 0)
	for _, rf := range r.refunds {
		if rf.IsActive && keep(rf) {
			items = append(items, rf)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

func (r *memoryRefundRepo) List(ctx context.Context, filter ListFilter) ([]Refund, int, error) {
	items := r.sorted(func(rf Refund) bool {
		return (filter.CancellationID == 0 || rf.CancellationID == filter.CancellationID) &&
			(filter.ApprovalStatus == "" || rf.ApprovalStatus == filter.ApprovalStatus) &&
			(filter.PaymentStatus == "" || rf.PaymentStatus == filter.PaymentStatus)
	})
	return items, len(items), nil
}

func (r *memoryRefundRepo) ListByCancellation(ctx context.Context, cancellationID int64) ([]Refund, error) {
	return r.sorted(func(rf Refund) bool { return rf.CancellationID == cancellationID }), nil
}

func (r *memoryRefundRepo) History(ctx context.Context, id int64) ([]shared.ApprovalLog, error) {
	return append([]shared.ApprovalLog{}, r.history[id]...), nil
}

func (r *memoryRefundRepo) StatusBuckets(ctx context.Context) ([]stats.StatusBucket, error) {
	byStatus := map[shared.ApprovalStatus]stats.StatusBucket{}
	for _, rf := range r.refunds {
		b := byStatus[rf.ApprovalStatus]
		b.Status = string(rf.ApprovalStatus)
		b.Count++
		b.Amount = b.Amount.Add(rf.Amount)
		byStatus[rf.ApprovalStatus] = b
	}
	out := make([]stats.StatusBucket, 0, len(byStatus))
	for _, b := range byStatus {
		out = append(out, b)
	}
	return out, nil
}

func (t *memoryRefundTx) LockCancellation(ctx context.Context, id int64) (cancellations.Cancellation, error) {
	c, ok := t.repo.cancellations[id]
	if !ok || !c.IsActive {
		return cancellations.Cancellation{}, shared.ErrNotFound
	}
	return c, nil
}

func (t *memoryRefundTx) CountActive(ctx context.Context, cancellationID int64) (int, error) {
	n := 0
	for _, rf := range t.repo.refunds {
		if rf.CancellationID == cancellationID && rf.IsActive {
			n++
		}
	}
	return n, nil
}

func (t *memoryRefundTx) InsertInstallments(ctx context.Context, refunds []Refund) ([]int64, error) {
	ids := make([]int64, 0, len(refunds))
	for i, rf := range refunds {
		if t.repo.failInsertAt > 0 && i+1 == t.repo.failInsertAt {
			return nil, errors.New("insert failed")
		}
		rf.ID = t.repo.nextID
		t.repo.nextID++
		t.repo.refunds[rf.ID] = rf
		ids = append(ids, rf.ID)
	}
	return ids, nil
}

func (t *memoryRefundTx) TransitionApproval(ctx context.Context, id int64, from, to shared.ApprovalStatus, rejectionReason string) error {
	rf, ok := t.repo.refunds[id]
	if !ok || rf.ApprovalStatus != from {
		return shared.ErrStaleState
	}
	rf.ApprovalStatus = to
	if rejectionReason != "" {
		rf.RejectionReason = rejectionReason
	}
	t.repo.refunds[id] = rf
	return nil
}

func (t *memoryRefundTx) MarkPaid(ctx context.Context, p Payment) error {
	rf, ok := t.repo.refunds[p.ID]
	if !ok || rf.ApprovalStatus != shared.StatusApproved || rf.PaymentStatus != PaymentPending {
		return shared.ErrStaleState
	}
	rf.PaymentStatus = PaymentPaid
	paid := p.PaidDate
	rf.PaidDate = &paid
	rf.PaymentMethod = p.Method
	rf.Instrument = p.Instrument
	if p.Notes != "" {
		rf.Notes = p.Notes
	}
	t.repo.refunds[p.ID] = rf
	return nil
}

func (t *memoryRefundTx) AppendHistory(ctx context.Context, log shared.ApprovalLog) error {
	t.repo.history[log.RefID] = append(t.repo.history[log.RefID], log)
	return nil
}

// staleRefundRepo serves pinned Get snapshots, standing in for a request
// that read the row before a concurrent transition committed.
type staleRefundRepo struct {
	*memoryRefundRepo
	pinned map[int64]Refund
}

func (r *staleRefundRepo) Get(ctx context.Context, id int64) (Refund, error) {
	if rf, ok := r.pinned[id]; ok {
		return rf, nil
	}
	return r.memoryRefundRepo.Get(ctx, id)
}
