package lotto

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// Variant selects which checked-state sequence a toggle applies to
type Variant int

const (
	// VariantPrimary is the main game
	VariantPrimary Variant = iota
	// VariantPlus is the optional "Plus" add-on game
	VariantPlus
)

// String returns the variant name
func (v Variant) String() string {
	switch v {
	case VariantPrimary:
		return "primary"
	case VariantPlus:
		return "plus"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// EntryRecord is one recorded ticket line and its checked state.
//
// Records are immutable snapshots. Toggle returns an updated copy which is
// written back through Store.Replace.
type EntryRecord struct {
	ID          string                `json:"id" validate:"required"`
	Date        time.Time             `json:"date" validate:"required"`
	Numbers     [NumbersPerEntry]int  `json:"numbers" validate:"ascending,dive,min=1,max=49"`
	HasPlus     bool                  `json:"has_plus"`
	Checked     [NumbersPerEntry]bool `json:"checked"`
	PlusChecked [NumbersPerEntry]bool `json:"plus_checked"`
}

// newEntryRecord builds a fresh record with all numbers unchecked
func newEntryRecord(id string, date time.Time, numbers [NumbersPerEntry]int, hasPlus bool) EntryRecord {
	return EntryRecord{
		ID:      id,
		Date:    date,
		Numbers: numbers,
		HasPlus: hasPlus,
	}
}

// Toggle flips the checked flag at index for the given variant and returns the updated copy
func (r EntryRecord) Toggle(index int, v Variant) (EntryRecord, error) {
	if err := ValidateIndex(index); err != nil {
		return r, err
	}

	switch v {
	case VariantPrimary:
		r.Checked[index] = !r.Checked[index]
	case VariantPlus:
		r.PlusChecked[index] = !r.PlusChecked[index]
	default:
		return r, ErrInvalidParameters.WithDetails(fmt.Sprintf("unknown variant %d", int(v)))
	}

	return r, nil
}

// CheckedCount returns how many numbers are marked for the given variant
func (r EntryRecord) CheckedCount(v Variant) int {
	flags := r.Checked
	if v == VariantPlus {
		flags = r.PlusChecked
	}

	count := 0
	for _, f := range flags {
		if f {
			count++
		}
	}
	return count
}

// NumbersString renders the numbers separated by single spaces
func (r EntryRecord) NumbersString() string {
	parts := make([]string, len(r.Numbers))
	for i, n := range r.Numbers {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, " ")
}

// Validate checks the record invariants: an ID, a creation date and six
// strictly ascending numbers within the playable range
func (r EntryRecord) Validate() error {
	if err := recordValidator().Struct(r); err != nil {
		return ErrRecordCorrupted.WithDetails(err.Error()).WithCause(err)
	}
	return nil
}

var recordValidator = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("ascending", validateAscending)
	return v
})

// validateAscending requires a strictly increasing integer sequence
func validateAscending(fl validator.FieldLevel) bool {
	f := fl.Field()
	for i := 1; i < f.Len(); i++ {
		if f.Index(i-1).Int() >= f.Index(i).Int() {
			return false
		}
	}
	return true
}
