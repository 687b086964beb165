package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/stockcount/internal/count"
	"github.com/vbonduro/stockcount/internal/db"
	"github.com/vbonduro/stockcount/internal/domain"
	"github.com/vbonduro/stockcount/internal/packaging"
	"github.com/vbonduro/stockcount/internal/store"
)

var fixedNow = time.Date(2026, 6, 1, 14, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) *CountService {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, d.Close()) })

	svc := NewCountService(store.New(d), slog.Default())
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func seedBatch(t *testing.T, svc *CountService, number, location string, available int, pkg *packaging.Structure) *domain.Batch {
	t.Helper()
	b, err := svc.AddBatch(context.Background(), &domain.Batch{
		BatchNumber:       number,
		ProductName:       "Product " + number,
		Location:          location,
		OriginalQuantity:  available,
		AvailableQuantity: available,
		Packaging:         pkg,
	})
	require.NoError(t, err)
	return b
}

func TestCountServiceCreateSession(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	seedBatch(t, svc, "B-1", "A-01", 10, nil)
	seedBatch(t, svc, "B-2", "A-01", 5, nil)
	seedBatch(t, svc, "B-3", "Z-99", 8, nil)

	view, err := svc.CreateSession(ctx, " A-01 ", "ana")
	require.NoError(t, err)
	assert.Equal(t, "A-01", view.Location)
	assert.Equal(t, domain.SessionActive, view.Status)
	assert.Equal(t, "ana", view.InitiatedBy)
	assert.Regexp(t, `^SC-20260601-[0-9A-F]{8}$`, view.SessionNumber)

	require.Len(t, view.Lines, 2)
	assert.Equal(t, "B-1", view.Lines[0].BatchNumber)
	assert.Equal(t, 10, view.Lines[0].ExpectedQuantity)
	assert.False(t, view.Lines[0].IsLocationMismatch)
	assert.Equal(t, count.Summary{Total: 2, Pending: 2}, view.Summary)
	assert.Equal(t, 0, view.Progress)
}

func TestCountServiceCreateSession_RequiresLocation(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateSession(context.Background(), "  ", "ana")
	assert.ErrorIs(t, err, ErrLocationNeeded)
}

func TestCountServiceCreateSession_EmptyLocation(t *testing.T) {
	svc := newTestService(t)

	view, err := svc.CreateSession(context.Background(), "EMPTY", "ana")
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
	assert.Equal(t, 0, view.Progress)

	view, err = svc.Finalize(context.Background(), view.ID, "ana")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionFinalized, view.Status)
}

func TestCountServiceGetSession_NotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.GetSession(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCountServiceScenario(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	b1 := seedBatch(t, svc, "L1", "A-01", 10, nil)
	seedBatch(t, svc, "L2", "A-01", 5, nil)
	seedBatch(t, svc, "L3", "A-01", 8, nil)

	view, err := svc.CreateSession(ctx, "A-01", "ana")
	require.NoError(t, err)
	l1, l2, l3 := view.Lines[0], view.Lines[1], view.Lines[2]

	view, err = svc.RecordCount(ctx, view.ID, l1.ID, 10, "ana")
	require.NoError(t, err)
	assert.Equal(t, 0, *view.Lines[0].Discrepancy)
	assert.Equal(t, "ana", view.Lines[0].CountedBy)

	view, err = svc.MarkNotFound(ctx, view.ID, l2.ID, true, "ben")
	require.NoError(t, err)
	assert.Equal(t, -5, *view.Lines[1].Discrepancy)
	assert.Equal(t, domain.LineNotFound, view.Lines[1].Status)

	view, err = svc.Skip(ctx, view.ID, l3.ID, "ana")
	require.NoError(t, err)
	assert.Equal(t, domain.LineSkipped, view.Lines[2].Status)
	assert.Equal(t, count.Summary{Total: 3, Counted: 1, NotFound: 1, Skipped: 1}, view.Summary)

	_, err = svc.Finalize(ctx, view.ID, "ana")
	var pending *count.PendingItemsError
	require.ErrorAs(t, err, &pending)
	assert.Equal(t, 1, pending.Pending)

	// Nothing was written by the rejected finalize.
	adjustments, err := svc.ListAdjustments(ctx, view.ID)
	require.NoError(t, err)
	assert.Empty(t, adjustments)

	view, err = svc.RecordCount(ctx, view.ID, l3.ID, 9, "ana")
	require.NoError(t, err)
	assert.Equal(t, 67, view.Progress)

	view, err = svc.Finalize(ctx, view.ID, "ana")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionFinalized, view.Status)
	require.NotNil(t, view.FinalizedAt)

	adjustments, err = svc.ListAdjustments(ctx, view.ID)
	require.NoError(t, err)
	require.Len(t, adjustments, 2)
	assert.Equal(t, -5, adjustments[0].Quantity)
	assert.Equal(t, 1, adjustments[1].Quantity)
	assert.Equal(t, "stock count "+view.SessionNumber, adjustments[0].Reason)

	got, err := svc.LookupBatch(ctx, "L2")
	require.NoError(t, err)
	assert.Equal(t, 0, got.AvailableQuantity)
	got, err = svc.LookupBatch(ctx, "L3")
	require.NoError(t, err)
	assert.Equal(t, 9, got.AvailableQuantity)
	got, err = svc.LookupBatch(ctx, b1.BatchNumber)
	require.NoError(t, err)
	assert.Equal(t, 10, got.AvailableQuantity)

	_, err = svc.RecordCount(ctx, view.ID, l1.ID, 3, "ana")
	assert.ErrorIs(t, err, count.ErrSessionClosed)
}

func TestCountServiceRecordCount_Validation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	seedBatch(t, svc, "B-1", "A-01", 10, nil)
	view, err := svc.CreateSession(ctx, "A-01", "ana")
	require.NoError(t, err)

	_, err = svc.RecordCount(ctx, view.ID, view.Lines[0].ID, -1, "ana")
	assert.ErrorIs(t, err, count.ErrNegativeQuantity)

	_, err = svc.RecordCount(ctx, view.ID, 9999, 1, "ana")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.RecordCount(ctx, 9999, view.Lines[0].ID, 1, "ana")
	assert.ErrorIs(t, err, ErrNotFound)

	after, err := svc.GetSession(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LinePending, after.Lines[0].Status)
}

func TestCountServiceRecordBreakdown(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	pkg, err := packaging.NewStructure("piece", packaging.WithCase("case", 10), packaging.WithBox("box", 4))
	require.NoError(t, err)
	seedBatch(t, svc, "B-1", "A-01", 30, pkg)

	view, err := svc.CreateSession(ctx, "A-01", "ana")
	require.NoError(t, err)

	view, err = svc.RecordBreakdown(ctx, view.ID, view.Lines[0].ID, 2, 1, 3, "ana")
	require.NoError(t, err)
	assert.Equal(t, 27, *view.Lines[0].CountedQuantity)
	assert.Equal(t, -3, *view.Lines[0].Discrepancy)
}

func TestCountServiceRecordBreakdown_OutOfRange(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	pkg, err := packaging.NewStructure("piece", packaging.WithBox("box", 4))
	require.NoError(t, err)
	seedBatch(t, svc, "B-1", "A-01", 30, pkg)

	view, err := svc.CreateSession(ctx, "A-01", "ana")
	require.NoError(t, err)

	_, err = svc.RecordBreakdown(ctx, view.ID, view.Lines[0].ID, 0, 4611686018427387905, 0, "ana")
	assert.ErrorIs(t, err, packaging.ErrCountOutOfRange)
	_, err = svc.RecordBreakdown(ctx, view.ID, view.Lines[0].ID, 0, -1, 0, "ana")
	assert.ErrorIs(t, err, packaging.ErrCountOutOfRange)

	view, err = svc.GetSession(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LinePending, view.Lines[0].Status)
	assert.Nil(t, view.Lines[0].CountedQuantity)
}

func TestCountServiceMarkNotFound_Unconfirmed(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	seedBatch(t, svc, "B-1", "A-01", 10, nil)
	view, err := svc.CreateSession(ctx, "A-01", "ana")
	require.NoError(t, err)

	_, err = svc.MarkNotFound(ctx, view.ID, view.Lines[0].ID, false, "ana")
	assert.ErrorIs(t, err, count.ErrConfirmationRequired)

	after, err := svc.GetSession(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LinePending, after.Lines[0].Status)
}

func TestCountServiceSkip_Twice(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	seedBatch(t, svc, "B-1", "A-01", 10, nil)
	view, err := svc.CreateSession(ctx, "A-01", "ana")
	require.NoError(t, err)

	_, err = svc.Skip(ctx, view.ID, view.Lines[0].ID, "ana")
	require.NoError(t, err)

	_, err = svc.Skip(ctx, view.ID, view.Lines[0].ID, "ana")
	var transErr *count.InvalidTransitionError
	assert.ErrorAs(t, err, &transErr)
}

func TestCountServiceScan(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	seedBatch(t, svc, "B-1", "A-01", 10, nil)
	view, err := svc.CreateSession(ctx, "A-01", "ana")
	require.NoError(t, err)

	res, err := svc.Scan(ctx, view.ID, "B-1")
	require.NoError(t, err)
	assert.Equal(t, count.MatchPending, res.Outcome)
	assert.Equal(t, view.Lines[0].ID, res.Line.ID)

	res, err = svc.Scan(ctx, view.ID, "b-1")
	require.NoError(t, err)
	assert.Equal(t, count.MatchNotFound, res.Outcome)
}

func TestCountServiceAddScannedLine(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	seedBatch(t, svc, "B-1", "A-01", 10, nil)
	seedBatch(t, svc, "B-9", "C-03", 4, nil)
	view, err := svc.CreateSession(ctx, "A-01", "ana")
	require.NoError(t, err)

	view, err = svc.AddScannedLine(ctx, view.ID, "B-9", "ana")
	require.NoError(t, err)
	require.Len(t, view.Lines, 2)
	added := view.Lines[1]
	assert.Equal(t, "B-9", added.BatchNumber)
	assert.Equal(t, 4, added.ExpectedQuantity)
	assert.True(t, added.IsLocationMismatch)
	assert.Equal(t, 1, added.Position)

	_, err = svc.AddScannedLine(ctx, view.ID, "B-9", "ana")
	assert.ErrorIs(t, err, ErrDuplicateLine)

	_, err = svc.AddScannedLine(ctx, view.ID, "NOPE", "ana")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCountServiceCancel(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	seedBatch(t, svc, "B-1", "A-01", 10, nil)
	view, err := svc.CreateSession(ctx, "A-01", "ana")
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, view.ID, "", "ana")
	assert.ErrorIs(t, err, count.ErrReasonRequired)

	view, err = svc.Cancel(ctx, view.ID, "recount next week", "ben")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCancelled, view.Status)
	assert.Equal(t, "ben", view.CancelledBy)
	assert.Equal(t, "recount next week", view.CancelReason)

	_, err = svc.Cancel(ctx, view.ID, "again", "ben")
	assert.ErrorIs(t, err, count.ErrSessionClosed)

	_, err = svc.Finalize(ctx, view.ID, "ben")
	assert.ErrorIs(t, err, count.ErrSessionClosed)

	_, err = svc.Cancel(ctx, 9999, "reason", "ben")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCountServiceListSessions(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.CreateSession(ctx, "A-01", "ana")
	require.NoError(t, err)
	_, err = svc.CreateSession(ctx, "A-02", "ana")
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, first.ID, "duplicate", "ana")
	require.NoError(t, err)

	all, err := svc.ListSessions(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	cancelled, err := svc.ListSessions(ctx, domain.SessionCancelled)
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	assert.Equal(t, first.ID, cancelled[0].ID)
}

func TestCountServiceLookupBatch_NotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.LookupBatch(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCountServiceAddBatch_Validation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	seedBatch(t, svc, "B-1", "A-01", 10, nil)

	_, err := svc.AddBatch(ctx, &domain.Batch{BatchNumber: "B-1", ProductName: "Dup", Location: "A-01"})
	assert.ErrorIs(t, err, ErrDuplicateBatch)

	_, err = svc.AddBatch(ctx, &domain.Batch{BatchNumber: " ", ProductName: "x", Location: "A-01"})
	assert.ErrorIs(t, err, ErrInvalidBatch)

	_, err = svc.AddBatch(ctx, &domain.Batch{BatchNumber: "B-2", ProductName: "x"})
	assert.ErrorIs(t, err, ErrLocationNeeded)

	for _, b := range []*domain.Batch{
		{BatchNumber: "B-3", ProductName: "x", Location: "A-01", OriginalQuantity: -1},
		{BatchNumber: "B-3", ProductName: "x", Location: "A-01", AvailableQuantity: -1},
		{BatchNumber: "B-3", ProductName: "x", Location: "A-01", AllocatedQuantity: -1},
	} {
		_, err = svc.AddBatch(ctx, b)
		assert.ErrorIs(t, err, ErrInvalidBatch)
	}
	_, err = svc.LookupBatch(ctx, "B-3")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCountServiceListAdjustments_UnknownSession(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.ListAdjustments(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}
