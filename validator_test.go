package lotto

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedValidator(opts ...ValidatorOption) *EntryValidator {
	created := time.Date(2024, 7, 12, 18, 0, 0, 0, time.UTC)
	seq := 0
	base := []ValidatorOption{
		WithClock(func() time.Time { return created }),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("rec-%d", seq)
		}),
	}
	return NewEntryValidator(append(base, opts...)...)
}

func TestEntryValidator_Validate(t *testing.T) {
	tests := []struct {
		name       string
		candidates []Candidate
		policy     TokenPolicy
		wantErr    *LottoError
		wantNums   [][NumbersPerEntry]int
	}{
		{
			name:       "sorted_on_accept",
			candidates: []Candidate{{Text: "6 5 4 3 2 1"}},
			wantNums:   [][NumbersPerEntry]int{{1, 2, 3, 4, 5, 6}},
		},
		{
			name:       "extra_whitespace",
			candidates: []Candidate{{Text: "  49\t1  17 \n 33 8 21 "}},
			wantNums:   [][NumbersPerEntry]int{{1, 8, 17, 21, 33, 49}},
		},
		{
			name:       "duplicates",
			candidates: []Candidate{{Text: "3 3 10 20 30 40"}},
			wantErr:    ErrDuplicateNumbers,
		},
		{
			name:       "out_of_range_high",
			candidates: []Candidate{{Text: "1 2 3 4 5 50"}},
			wantErr:    ErrOutOfRange,
		},
		{
			name:       "out_of_range_zero",
			candidates: []Candidate{{Text: "0 2 3 4 5 6"}},
			wantErr:    ErrOutOfRange,
		},
		{
			name:       "out_of_range_negative",
			candidates: []Candidate{{Text: "-1 2 3 4 5 6"}},
			wantErr:    ErrOutOfRange,
		},
		{
			name:       "too_few",
			candidates: []Candidate{{Text: "1 2 3 4 5"}},
			wantErr:    ErrWrongCount,
		},
		{
			name:       "too_many",
			candidates: []Candidate{{Text: "1 2 3 4 5 6 7"}},
			wantErr:    ErrWrongCount,
		},
		{
			name:       "count_checked_before_range",
			candidates: []Candidate{{Text: "1 2 99"}},
			wantErr:    ErrWrongCount,
		},
		{
			name:       "permissive_drops_words",
			candidates: []Candidate{{Text: "1 2 3 four 5 6 7"}},
			wantNums:   [][NumbersPerEntry]int{{1, 2, 3, 5, 6, 7}},
		},
		{
			name:       "strict_rejects_words",
			candidates: []Candidate{{Text: "1 2 3 four 5 6 7"}},
			policy:     TokenPolicyStrict,
			wantErr:    ErrInvalidToken,
		},
		{
			name:       "strict_accepts_clean_input",
			candidates: []Candidate{{Text: "7 14 21 28 35 42"}},
			policy:     TokenPolicyStrict,
			wantNums:   [][NumbersPerEntry]int{{7, 14, 21, 28, 35, 42}},
		},
		{
			name:       "blank_lines_skipped",
			candidates: []Candidate{{Text: ""}, {Text: "10 20 30 40 41 42"}, {Text: "   "}},
			wantNums:   [][NumbersPerEntry]int{{10, 20, 30, 40, 41, 42}},
		},
		{
			name:       "only_blank",
			candidates: []Candidate{{Text: ""}, {Text: " \t "}},
			wantErr:    ErrEmptyBatch,
		},
		{
			name:    "nil_batch",
			wantErr: ErrEmptyBatch,
		},
		{
			name: "one_bad_rejects_all",
			candidates: []Candidate{
				{Text: "1 2 3 4 5 6"},
				{Text: "1 2 3 4 5 50"},
				{Text: "7 8 9 10 11 12"},
			},
			wantErr: ErrOutOfRange,
		},
		{
			name: "multi_line_batch",
			candidates: []Candidate{
				{Text: "1 2 3 4 5 6"},
				{Text: "44 43 42 41 40 39", Plus: true},
			},
			wantNums: [][NumbersPerEntry]int{{1, 2, 3, 4, 5, 6}, {39, 40, 41, 42, 43, 44}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := fixedValidator(WithTokenPolicy(tt.policy))

			records, err := v.Validate(tt.candidates)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				assert.Nil(t, records)
				return
			}

			require.NoError(t, err)
			require.Len(t, records, len(tt.wantNums))
			for i, r := range records {
				assert.Equal(t, tt.wantNums[i], r.Numbers)
				assert.NotEmpty(t, r.ID)
				assert.False(t, r.Date.IsZero())
				assert.Equal(t, [NumbersPerEntry]bool{}, r.Checked)
				assert.Equal(t, [NumbersPerEntry]bool{}, r.PlusChecked)
				assert.NoError(t, r.Validate())
			}
		})
	}
}

func TestEntryValidator_RecordFields(t *testing.T) {
	v := fixedValidator()

	records, err := v.Validate([]Candidate{
		{Text: "1 2 3 4 5 6", Plus: true},
		{Text: "7 8 9 10 11 12"},
	})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "rec-1", records[0].ID)
	assert.Equal(t, "rec-2", records[1].ID)
	assert.True(t, records[0].HasPlus)
	assert.False(t, records[1].HasPlus)
	assert.Equal(t, time.Date(2024, 7, 12, 18, 0, 0, 0, time.UTC), records[0].Date)
}

func TestEntryValidator_DefaultIDsAreUnique(t *testing.T) {
	v := NewEntryValidator()

	records, err := v.Validate([]Candidate{{Text: "1 2 3 4 5 6"}, {Text: "1 2 3 4 5 6"}})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.NotEqual(t, records[0].ID, records[1].ID)
}

func TestEntryValidator_ErrorContext(t *testing.T) {
	v := fixedValidator()

	_, err := v.Validate([]Candidate{{Text: "1 2 3 4 5 6"}, {Text: "3 3 10 20 30 40"}})
	require.Error(t, err)

	var lerr *LottoError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, ErrCodeDuplicateNumbers, lerr.Code)
	assert.Equal(t, "Validate", lerr.Operation)
	assert.Equal(t, 1, lerr.Metadata["candidate"])
	assert.Equal(t, "3 3 10 20 30 40", lerr.Metadata["input"])
	assert.Contains(t, lerr.Details, "3")
	assert.True(t, IsValidationError(err))

	// predefined errors stay untouched
	assert.Empty(t, ErrDuplicateNumbers.Operation)
	assert.Nil(t, ErrDuplicateNumbers.Metadata)
}

func TestEntryValidator_Properties(t *testing.T) {
	v := fixedValidator()

	t.Run("wrong_length_never_creates", func(t *testing.T) {
		for n := 0; n <= 12; n++ {
			if n == NumbersPerEntry {
				continue
			}
			text := ""
			for i := 1; i <= n; i++ {
				text += fmt.Sprintf("%d ", i)
			}
			records, err := v.Validate([]Candidate{{Text: text}})
			assert.Nil(t, records)
			if n == 0 {
				assert.ErrorIs(t, err, ErrEmptyBatch)
				continue
			}
			assert.ErrorIs(t, err, ErrWrongCount, "length %d", n)
		}
	})

	t.Run("any_out_of_range_value", func(t *testing.T) {
		for _, bad := range []int{-49, -1, 0, 50, 51, 100, 1000} {
			for pos := 0; pos < NumbersPerEntry; pos++ {
				nums := []int{10, 11, 12, 13, 14, 15}
				nums[pos] = bad
				text := fmt.Sprint(nums[0], " ", nums[1], " ", nums[2], " ", nums[3], " ", nums[4], " ", nums[5])
				_, err := v.Validate([]Candidate{{Text: text}})
				assert.ErrorIs(t, err, ErrOutOfRange, "input %q", text)
			}
		}
	})

	t.Run("any_repeated_value", func(t *testing.T) {
		for i := 0; i < NumbersPerEntry; i++ {
			for j := i + 1; j < NumbersPerEntry; j++ {
				nums := []int{1, 2, 3, 4, 5, 6}
				nums[j] = nums[i]
				text := fmt.Sprint(nums[0], " ", nums[1], " ", nums[2], " ", nums[3], " ", nums[4], " ", nums[5])
				_, err := v.Validate([]Candidate{{Text: text}})
				assert.ErrorIs(t, err, ErrDuplicateNumbers, "input %q", text)
			}
		}
	})

	t.Run("valid_sets_sorted", func(t *testing.T) {
		inputs := []string{"49 1 25 2 48 3", "10 9 8 7 6 5", "1 49 2 48 3 47"}
		for _, in := range inputs {
			records, err := v.Validate([]Candidate{{Text: in}})
			require.NoError(t, err)
			nums := records[0].Numbers
			for i := 1; i < len(nums); i++ {
				assert.Less(t, nums[i-1], nums[i])
			}
		}
	})
}
