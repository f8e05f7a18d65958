package lotto

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// encodeRecord serializes a record to JSON bytes
func encodeRecord(record EntryRecord) ([]byte, error) {
	// Validate the record before serialization
	if err := record.Validate(); err != nil {
		return nil, err
	}

	data, err := sonic.Marshal(record)
	if err != nil {
		return nil, ErrSerializationFailed.WithDetails(record.ID).WithCause(err)
	}

	if len(data) > MaxRecordSize {
		return nil, ErrSerializationFailed.WithDetails(
			fmt.Sprintf("record %s encodes to %d bytes, limit is %d", record.ID, len(data), MaxRecordSize))
	}

	return data, nil
}

// decodeRecord deserializes JSON bytes back to a record and re-checks its invariants
func decodeRecord(data []byte) (EntryRecord, error) {
	if len(data) == 0 {
		return EntryRecord{}, ErrDeserializationFailed.WithDetails("empty payload")
	}

	var record EntryRecord
	if err := sonic.Unmarshal(data, &record); err != nil {
		return EntryRecord{}, ErrDeserializationFailed.WithDetails(err.Error()).WithCause(err)
	}

	if err := record.Validate(); err != nil {
		return EntryRecord{}, err
	}

	return record, nil
}
