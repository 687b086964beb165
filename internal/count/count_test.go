package count

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/stockcount/internal/domain"
)

var now = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newLine(batch string, expected int) *domain.CountLine {
	return &domain.CountLine{BatchNumber: batch, ExpectedQuantity: expected, Status: domain.LinePending}
}

func newSession(lines ...*domain.CountLine) *domain.Session {
	return &domain.Session{Status: domain.SessionActive, Location: "A-01", Lines: lines}
}

func TestRecordCount(t *testing.T) {
	line := newLine("B-1", 10)

	require.NoError(t, RecordCount(line, 7, "ana", now))
	assert.Equal(t, domain.LineCounted, line.Status)
	assert.Equal(t, 7, *line.CountedQuantity)
	assert.Equal(t, -3, *line.Discrepancy)
	assert.Equal(t, "ana", line.CountedBy)
}

func TestRecordCount_ZeroIsFullShortfall(t *testing.T) {
	line := newLine("B-1", 12)

	require.NoError(t, RecordCount(line, 0, "ana", now))
	assert.Equal(t, 0, *line.CountedQuantity)
	assert.Equal(t, -12, *line.Discrepancy)
}

func TestRecordCount_NegativeRejected(t *testing.T) {
	line := newLine("B-1", 12)

	err := RecordCount(line, -1, "ana", now)
	assert.ErrorIs(t, err, ErrNegativeQuantity)
	assert.Equal(t, domain.LinePending, line.Status)
	assert.Nil(t, line.CountedQuantity)
}

func TestRecordCount_RecountLastWriteWins(t *testing.T) {
	line := newLine("B-1", 10)

	require.NoError(t, RecordCount(line, 4, "ana", now))
	require.NoError(t, RecordCount(line, 12, "ben", now.Add(time.Minute)))
	assert.Equal(t, 12, *line.CountedQuantity)
	assert.Equal(t, 2, *line.Discrepancy)
	assert.Equal(t, "ben", line.CountedBy)
}

func TestRecordCount_ClearsNotFound(t *testing.T) {
	line := newLine("B-1", 10)
	require.NoError(t, MarkNotFound(line, true, "ana", now))

	require.NoError(t, RecordCount(line, 10, "ana", now))
	assert.Equal(t, domain.LineCounted, line.Status)
	assert.Equal(t, 0, *line.Discrepancy)
}

func TestSkipThenRecordCount(t *testing.T) {
	line := newLine("B-1", 5)

	require.NoError(t, Skip(line))
	assert.Equal(t, domain.LineSkipped, line.Status)

	require.NoError(t, RecordCount(line, 5, "ana", now))
	assert.Equal(t, domain.LineCounted, line.Status)
}

func TestSkip_OnlyFromPending(t *testing.T) {
	for _, status := range []domain.LineStatus{domain.LineCounted, domain.LineNotFound, domain.LineSkipped} {
		line := newLine("B-1", 5)
		line.Status = status

		err := Skip(line)
		var transErr *InvalidTransitionError
		require.ErrorAs(t, err, &transErr, "status %s", status)
		assert.Equal(t, status, transErr.From)
		assert.Equal(t, status, line.Status)
	}
}

func TestMarkNotFound(t *testing.T) {
	line := newLine("B-1", 5)

	require.NoError(t, MarkNotFound(line, true, "ana", now))
	assert.Equal(t, domain.LineNotFound, line.Status)
	assert.Nil(t, line.CountedQuantity)
	assert.Equal(t, -5, *line.Discrepancy)
}

func TestMarkNotFound_RequiresConfirmation(t *testing.T) {
	line := newLine("B-1", 5)

	err := MarkNotFound(line, false, "ana", now)
	assert.ErrorIs(t, err, ErrConfirmationRequired)
	assert.Equal(t, domain.LinePending, line.Status)
	assert.Nil(t, line.Discrepancy)
}

func TestMarkNotFound_FromSkipped(t *testing.T) {
	line := newLine("B-1", 5)
	require.NoError(t, Skip(line))

	require.NoError(t, MarkNotFound(line, true, "ana", now))
	assert.Equal(t, domain.LineNotFound, line.Status)
}

func TestMarkNotFound_RejectedFromCounted(t *testing.T) {
	line := newLine("B-1", 5)
	require.NoError(t, RecordCount(line, 5, "ana", now))

	var transErr *InvalidTransitionError
	assert.ErrorAs(t, MarkNotFound(line, true, "ana", now), &transErr)
	assert.Equal(t, domain.LineCounted, line.Status)
}

func TestMatch(t *testing.T) {
	lines := []*domain.CountLine{newLine("LOT-0042", 1), newLine("LOT-0043", 1), newLine("LOT-0042", 9)}

	line, ok := Match("LOT-0042", lines)
	require.True(t, ok)
	assert.Same(t, lines[0], line, "first match wins")

	for _, code := range []string{"lot-0042", "LOT-004", "LOT-00421", " LOT-0042", ""} {
		_, ok := Match(code, lines)
		assert.False(t, ok, "code %q", code)
	}
}

func TestScan(t *testing.T) {
	counted := newLine("B-2", 3)
	require.NoError(t, RecordCount(counted, 3, "ana", now))
	lines := []*domain.CountLine{newLine("B-1", 1), counted}

	res := Scan("B-1", lines)
	assert.Equal(t, MatchPending, res.Outcome)
	assert.Same(t, lines[0], res.Line)

	res = Scan("B-2", lines)
	assert.Equal(t, MatchAlreadyResolved, res.Outcome)
	assert.Same(t, counted, res.Line)

	res = Scan("B-9", lines)
	assert.Equal(t, MatchNotFound, res.Outcome)
	assert.Nil(t, res.Line)
	assert.Equal(t, NotFoundGuidance, res.Message)
}

func TestSummarizeAndProgress(t *testing.T) {
	assert.Equal(t, 0, Progress(Summarize(nil)))

	a, b, c := newLine("A", 1), newLine("B", 1), newLine("C", 1)
	require.NoError(t, RecordCount(a, 1, "ana", now))
	require.NoError(t, MarkNotFound(b, true, "ana", now))
	require.NoError(t, Skip(c))
	d := newLine("D", 1)

	sum := Summarize([]*domain.CountLine{a, b, c, d})
	assert.Equal(t, Summary{Total: 4, Counted: 1, Pending: 1, NotFound: 1, Skipped: 1}, sum)
	assert.Equal(t, 2, sum.Unresolved())
	assert.Equal(t, 25, Progress(sum))
}

func TestProgressRounding(t *testing.T) {
	assert.Equal(t, 33, Progress(Summary{Total: 3, Counted: 1}))
	assert.Equal(t, 67, Progress(Summary{Total: 3, Counted: 2}))
	assert.Equal(t, 13, Progress(Summary{Total: 8, Counted: 1}))
	assert.Equal(t, 100, Progress(Summary{Total: 5, Counted: 5}))
}

func TestFinalize_ScenarioSkippedBlocks(t *testing.T) {
	l1, l2, l3 := newLine("L1", 10), newLine("L2", 5), newLine("L3", 8)
	s := newSession(l1, l2, l3)

	require.NoError(t, RecordCount(l1, 10, "ana", now))
	require.NoError(t, MarkNotFound(l2, true, "ana", now))
	require.NoError(t, Skip(l3))

	assert.Equal(t, 0, *l1.Discrepancy)
	assert.Equal(t, -5, *l2.Discrepancy)

	sum := Summarize(s.Lines)
	assert.Equal(t, 1, sum.Counted)
	assert.Equal(t, 1, sum.NotFound)
	assert.Equal(t, 0, sum.Pending)

	err := Finalize(s, now)
	var pending *PendingItemsError
	require.ErrorAs(t, err, &pending)
	assert.Equal(t, 1, pending.Pending)
	assert.Contains(t, err.Error(), "1 item")
	assert.Equal(t, domain.SessionActive, s.Status)

	require.NoError(t, RecordCount(l3, 8, "ana", now))
	require.NoError(t, Finalize(s, now))
	assert.Equal(t, domain.SessionFinalized, s.Status)
	assert.NotNil(t, s.FinalizedAt)
}

func TestFinalize_ReportsExactPendingCount(t *testing.T) {
	s := newSession(newLine("A", 1), newLine("B", 1), newLine("C", 1))

	err := Finalize(s, now)
	var pending *PendingItemsError
	require.ErrorAs(t, err, &pending)
	assert.Equal(t, 3, pending.Pending)
	assert.Equal(t, "cannot finalize: 3 items are still pending", err.Error())
}

func TestFinalize_AllNotFoundSucceeds(t *testing.T) {
	a, b := newLine("A", 4), newLine("B", 2)
	s := newSession(a, b)
	require.NoError(t, MarkNotFound(a, true, "ana", now))
	require.NoError(t, MarkNotFound(b, true, "ana", now))

	require.NoError(t, Finalize(s, now))
	assert.Equal(t, domain.SessionFinalized, s.Status)
	assert.Len(t, Adjustments(s), 2)
}

func TestFinalize_EmptySessionSucceeds(t *testing.T) {
	s := newSession()
	require.NoError(t, Finalize(s, now))
}

func TestFinalize_TerminalSession(t *testing.T) {
	s := newSession()
	s.Status = domain.SessionCancelled
	assert.ErrorIs(t, Finalize(s, now), ErrSessionClosed)
}

func TestCancel(t *testing.T) {
	s := newSession(newLine("A", 1))

	assert.ErrorIs(t, Cancel(s, "   ", "ana", now), ErrReasonRequired)
	assert.Equal(t, domain.SessionActive, s.Status)

	require.NoError(t, Cancel(s, " wrong location ", "ana", now))
	assert.Equal(t, domain.SessionCancelled, s.Status)
	assert.Equal(t, "wrong location", s.CancelReason)
	assert.Equal(t, "ana", s.CancelledBy)

	assert.ErrorIs(t, Cancel(s, "again", "ana", now), ErrSessionClosed)
	assert.ErrorIs(t, CheckActive(s), ErrSessionClosed)
}

func TestAdjustments(t *testing.T) {
	a, b, c := newLine("A", 4), newLine("B", 2), newLine("C", 3)
	require.NoError(t, RecordCount(a, 4, "ana", now))
	require.NoError(t, RecordCount(b, 5, "ana", now))
	require.NoError(t, MarkNotFound(c, true, "ana", now))

	adj := Adjustments(newSession(a, b, c))
	require.Len(t, adj, 2)
	assert.Same(t, b, adj[0])
	assert.Same(t, c, adj[1])
}
