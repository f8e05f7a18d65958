package lotto

import (
	"context"
	"sync"
)

// MemoryStore keeps records in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]EntryRecord
	feed    recordFeed
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]EntryRecord)}
}

// Insert adds a new record
func (s *MemoryStore) Insert(_ context.Context, record EntryRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if _, ok := s.records[record.ID]; ok {
		s.mu.Unlock()
		return ErrRecordExists.WithDetails(record.ID)
	}
	s.records[record.ID] = record
	snapshot := s.snapshotLocked()
	s.feed.hold()
	s.mu.Unlock()

	s.feed.release(snapshot)
	return nil
}

// Replace overwrites the record with the same ID
func (s *MemoryStore) Replace(_ context.Context, record EntryRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if _, ok := s.records[record.ID]; !ok {
		s.mu.Unlock()
		return ErrRecordNotFound.WithDetails(record.ID)
	}
	s.records[record.ID] = record
	snapshot := s.snapshotLocked()
	s.feed.hold()
	s.mu.Unlock()

	s.feed.release(snapshot)
	return nil
}

// Delete removes a record by ID
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.records[id]; !ok {
		s.mu.Unlock()
		return ErrRecordNotFound.WithDetails(id)
	}
	delete(s.records, id)
	snapshot := s.snapshotLocked()
	s.feed.hold()
	s.mu.Unlock()

	s.feed.release(snapshot)
	return nil
}

// DeleteAll removes every record
func (s *MemoryStore) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	s.records = make(map[string]EntryRecord)
	s.feed.hold()
	s.mu.Unlock()

	s.feed.release(nil)
	return nil
}

// Get loads a record by ID
func (s *MemoryStore) Get(_ context.Context, id string) (EntryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return EntryRecord{}, ErrRecordNotFound.WithDetails(id)
	}
	return record, nil
}

// List returns all records ordered by creation date
func (s *MemoryStore) List(_ context.Context) ([]EntryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(), nil
}

// Subscribe registers fn for collection changes
func (s *MemoryStore) Subscribe(fn func([]EntryRecord)) func() {
	return s.feed.subscribe(fn)
}

func (s *MemoryStore) snapshotLocked() []EntryRecord {
	out := make([]EntryRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sortRecords(out)
	return out
}
