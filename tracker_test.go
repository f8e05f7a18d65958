package lotto

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyStore fails Insert after a number of successful inserts
type flakyStore struct {
	*MemoryStore
	failAfter int
	inserts   int
	failErr   error
}

func (s *flakyStore) Insert(ctx context.Context, record EntryRecord) error {
	if s.inserts >= s.failAfter {
		return s.failErr
	}
	s.inserts++
	return s.MemoryStore.Insert(ctx, record)
}

func (s *flakyStore) Replace(ctx context.Context, record EntryRecord) error {
	if s.failErr != nil && s.failAfter < 0 {
		return s.failErr
	}
	return s.MemoryStore.Replace(ctx, record)
}

func newTestTracker(t *testing.T, store Store, opts ...TrackerOption) *Tracker {
	t.Helper()
	tracker, err := NewTracker(store, fixedValidator(), opts...)
	require.NoError(t, err)
	return tracker
}

func TestTracker_Add(t *testing.T) {
	ctx := context.Background()
	monitor := NewPerformanceMonitor()
	store := NewMemoryStore()
	tracker := newTestTracker(t, store, WithTrackerMonitor(monitor))

	records, err := tracker.Add(ctx, []Candidate{{Text: "6 5 4 3 2 1"}, {Text: ""}, {Text: "40 30 20 10 5 1", Plus: true}})
	require.NoError(t, err)
	require.Len(t, records, 2)

	stored, err := tracker.Records(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	_, err = tracker.Add(ctx, []Candidate{{Text: "1 2 3 4 5 6"}, {Text: "3 3 10 20 30 40"}})
	assert.ErrorIs(t, err, ErrDuplicateNumbers)

	stored, err = tracker.Records(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 2, "rejected batch must not be stored")

	m := monitor.GetMetrics()
	assert.Equal(t, int64(1), m.AcceptedBatches)
	assert.Equal(t, int64(1), m.RejectedBatches)
	assert.Equal(t, int64(2), m.RecordsInserted)
}

func TestTracker_AddRollsBackOnStoreFailure(t *testing.T) {
	ctx := context.Background()
	storeErr := ErrStoreSaveFailure.WithDetails("disk full")
	store := &flakyStore{MemoryStore: NewMemoryStore(), failAfter: 2, failErr: storeErr}
	monitor := NewPerformanceMonitor()
	tracker := newTestTracker(t, store, WithTrackerMonitor(monitor))

	_, err := tracker.Add(ctx, []Candidate{
		{Text: "1 2 3 4 5 6"},
		{Text: "7 8 9 10 11 12"},
		{Text: "13 14 15 16 17 18"},
	})
	assert.ErrorIs(t, err, ErrStoreSaveFailure)

	records, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, int64(1), monitor.GetMetrics().StoreErrors)
}

func TestTracker_Toggle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tracker := newTestTracker(t, store)

	records, err := tracker.Add(ctx, []Candidate{{Text: "1 2 3 4 5 6", Plus: true}})
	require.NoError(t, err)
	id := records[0].ID

	updated, err := tracker.Toggle(ctx, id, 3, VariantPrimary)
	require.NoError(t, err)
	assert.True(t, updated.Checked[3])

	stored, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, updated, stored)

	restored, err := tracker.Toggle(ctx, id, 3, VariantPrimary)
	require.NoError(t, err)
	assert.Equal(t, records[0], restored)

	_, err = tracker.Toggle(ctx, id, 6, VariantPlus)
	assert.ErrorIs(t, err, ErrInvalidIndex)

	_, err = tracker.Toggle(ctx, "missing", 0, VariantPlus)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestTracker_ToggleStoreFailure(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryStore: NewMemoryStore(), failAfter: 10}
	tracker := newTestTracker(t, store)

	records, err := tracker.Add(ctx, []Candidate{{Text: "1 2 3 4 5 6"}})
	require.NoError(t, err)

	store.failAfter = -1
	store.failErr = errors.New("connection reset")
	_, err = tracker.Toggle(ctx, records[0].ID, 0, VariantPrimary)
	assert.Error(t, err)

	stored, err := store.Get(ctx, records[0].ID)
	require.NoError(t, err)
	assert.False(t, stored.Checked[0])
}

func TestTracker_DeleteAndSubscribe(t *testing.T) {
	ctx := context.Background()
	tracker := newTestTracker(t, NewMemoryStore())

	var last []EntryRecord
	cancel := tracker.Subscribe(func(records []EntryRecord) { last = records })
	defer cancel()

	records, err := tracker.Add(ctx, []Candidate{{Text: "1 2 3 4 5 6"}, {Text: "7 8 9 10 11 12"}})
	require.NoError(t, err)
	assert.Len(t, last, 2)

	require.NoError(t, tracker.Delete(ctx, records[0].ID))
	assert.Len(t, last, 1)
	assert.ErrorIs(t, tracker.Delete(ctx, records[0].ID), ErrRecordNotFound)

	require.NoError(t, tracker.DeleteAll(ctx))
	assert.Empty(t, last)
}

func TestTracker_QuickPick(t *testing.T) {
	ctx := context.Background()
	gen := &sequenceGenerator{values: []int{9, 3, 9, 44, 17, 1, 28}}
	tracker := newTestTracker(t, NewMemoryStore(), WithRandomGenerator(gen))

	record, err := tracker.QuickPick(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, [NumbersPerEntry]int{1, 3, 9, 17, 28, 44}, record.Numbers)
	assert.True(t, record.HasPlus)

	stored, err := tracker.Records(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestNewTracker_RequiresStore(t *testing.T) {
	_, err := NewTracker(nil, nil)
	assert.ErrorIs(t, err, ErrInvalidParameters)

	tracker, err := NewTracker(NewMemoryStore(), nil)
	require.NoError(t, err)
	assert.NotNil(t, tracker.validator)
}
