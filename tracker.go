package lotto

import (
	"context"
)

// Tracker is the entry point for the presentation layer: it validates input,
// writes records to the Store and applies checked-state toggles.
type Tracker struct {
	validator *EntryValidator
	store     Store
	random    RandomGenerator
	logger    Logger
	monitor   *PerformanceMonitor
}

// TrackerOption configures a Tracker
type TrackerOption func(*Tracker)

// WithTrackerLogger sets the logger
func WithTrackerLogger(logger Logger) TrackerOption {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithTrackerMonitor sets the performance monitor
func WithTrackerMonitor(monitor *PerformanceMonitor) TrackerOption {
	return func(t *Tracker) { t.monitor = monitor }
}

// WithRandomGenerator sets the generator used by QuickPick
func WithRandomGenerator(gen RandomGenerator) TrackerOption {
	return func(t *Tracker) {
		if gen != nil {
			t.random = gen
		}
	}
}

// NewTracker binds a validator to a store. A nil validator uses NewEntryValidator defaults.
func NewTracker(store Store, validator *EntryValidator, opts ...TrackerOption) (*Tracker, error) {
	if store == nil {
		return nil, ErrInvalidParameters.WithDetails("store is required")
	}
	if validator == nil {
		validator = NewEntryValidator()
	}

	t := &Tracker{
		validator: validator,
		store:     store,
		random:    NewSecureRandomGenerator(),
		logger:    NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Add validates the batch and inserts every resulting record.
//
// Nothing is inserted when validation fails. If the store fails part way,
// records already inserted from this batch are removed again.
func (t *Tracker) Add(ctx context.Context, candidates []Candidate) (_ []EntryRecord, err error) {
	ctx, span := startSpan(ctx, "lotto.Tracker.Add")
	defer func() { endSpan(span, err) }()

	records, err := t.validator.Validate(candidates)
	t.monitor.RecordValidation(err == nil)
	if err != nil {
		return nil, err
	}

	for i, record := range records {
		if err = t.store.Insert(ctx, record); err != nil {
			t.monitor.RecordStoreError()
			t.logger.Error("Inserting record %s failed, rolling back %d records: %v", record.ID, i, err)
			t.rollback(ctx, records[:i])
			return nil, err
		}
	}

	t.monitor.RecordInsert(len(records))
	t.logger.Info("Added %d records", len(records))
	return records, nil
}

func (t *Tracker) rollback(ctx context.Context, inserted []EntryRecord) {
	for _, record := range inserted {
		if err := t.store.Delete(ctx, record.ID); err != nil {
			t.logger.Error("Rollback of record %s failed: %v", record.ID, err)
		}
	}
}

// QuickPick adds one randomly drawn record
func (t *Tracker) QuickPick(ctx context.Context, plus bool) (EntryRecord, error) {
	candidate, err := QuickPick(t.random, plus)
	if err != nil {
		return EntryRecord{}, err
	}

	records, err := t.Add(ctx, []Candidate{candidate})
	if err != nil {
		return EntryRecord{}, err
	}
	return records[0], nil
}

// Toggle flips one checked flag of the record with the given ID and stores the updated copy
func (t *Tracker) Toggle(ctx context.Context, id string, index int, v Variant) (EntryRecord, error) {
	if err := ValidateIndex(index); err != nil {
		return EntryRecord{}, err
	}

	record, err := t.store.Get(ctx, id)
	if err != nil {
		return EntryRecord{}, err
	}

	updated, err := record.Toggle(index, v)
	if err != nil {
		return EntryRecord{}, err
	}

	if err := t.store.Replace(ctx, updated); err != nil {
		t.monitor.RecordStoreError()
		return EntryRecord{}, err
	}

	t.monitor.RecordToggle()
	return updated, nil
}

// Delete removes one record
func (t *Tracker) Delete(ctx context.Context, id string) error {
	if err := t.store.Delete(ctx, id); err != nil {
		t.monitor.RecordStoreError()
		return err
	}
	return nil
}

// DeleteAll removes every record
func (t *Tracker) DeleteAll(ctx context.Context) error {
	if err := t.store.DeleteAll(ctx); err != nil {
		t.monitor.RecordStoreError()
		return err
	}
	t.logger.Info("Deleted all records")
	return nil
}

// Records returns the current ordered collection
func (t *Tracker) Records(ctx context.Context) ([]EntryRecord, error) {
	return t.store.List(ctx)
}

// Subscribe observes the store's collection
func (t *Tracker) Subscribe(fn func([]EntryRecord)) func() {
	return t.store.Subscribe(fn)
}
