package lotto

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// TokenPolicy decides what happens to tokens that are not integers
type TokenPolicy int

const (
	// TokenPolicyPermissive drops non-numeric tokens; the count check still applies
	TokenPolicyPermissive TokenPolicy = iota
	// TokenPolicyStrict rejects the whole candidate on any non-numeric token
	TokenPolicyStrict
)

// Candidate is raw user input for one ticket line
type Candidate struct {
	Text string `json:"text"` // whitespace-separated numbers
	Plus bool   `json:"plus"` // whether the Plus add-on was played
}

// EntryValidator turns raw candidates into persist-ready records
type EntryValidator struct {
	now    func() time.Time
	newID  func() string
	policy TokenPolicy
	logger Logger
}

// ValidatorOption configures an EntryValidator
type ValidatorOption func(*EntryValidator)

// WithClock overrides the creation timestamp source
func WithClock(now func() time.Time) ValidatorOption {
	return func(v *EntryValidator) {
		if now != nil {
			v.now = now
		}
	}
}

// WithIDGenerator overrides the record identifier source
func WithIDGenerator(newID func() string) ValidatorOption {
	return func(v *EntryValidator) {
		if newID != nil {
			v.newID = newID
		}
	}
}

// WithTokenPolicy selects how non-numeric tokens are handled
func WithTokenPolicy(policy TokenPolicy) ValidatorOption {
	return func(v *EntryValidator) { v.policy = policy }
}

// WithValidatorLogger sets the logger
func WithValidatorLogger(logger Logger) ValidatorOption {
	return func(v *EntryValidator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// NewEntryValidator creates a validator using the permissive token policy
func NewEntryValidator(opts ...ValidatorOption) *EntryValidator {
	v := &EntryValidator{
		now:    time.Now,
		newID:  generateRecordID,
		policy: TokenPolicyPermissive,
		logger: NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks every candidate and builds one record per non-blank line.
//
// The batch is all-or-nothing: the first failing candidate aborts validation
// and no records are returned. Blank candidates are skipped; a batch made only
// of blank candidates fails with ErrEmptyBatch.
func (v *EntryValidator) Validate(candidates []Candidate) ([]EntryRecord, error) {
	records := make([]EntryRecord, 0, len(candidates))

	for i, c := range candidates {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}

		numbers, err := v.checkCandidate(c.Text)
		if err != nil {
			err = err.WithOperation("Validate").
				WithMetadata("candidate", i).
				WithMetadata("input", c.Text)
			v.logger.Debug("Rejected candidate %d %q: %v", i, c.Text, err)
			return nil, err
		}

		records = append(records, newEntryRecord(v.newID(), v.now(), numbers, c.Plus))
	}

	if len(records) == 0 {
		return nil, ErrEmptyBatch.WithOperation("Validate")
	}

	v.logger.Debug("Validated %d candidates into %d records", len(candidates), len(records))
	return records, nil
}

// checkCandidate parses and checks a single non-blank line
func (v *EntryValidator) checkCandidate(text string) ([NumbersPerEntry]int, *LottoError) {
	var out [NumbersPerEntry]int

	numbers, rejected := parseNumberTokens(text)
	if len(rejected) > 0 && v.policy == TokenPolicyStrict {
		return out, ErrInvalidToken.WithDetails(fmt.Sprintf("not a number: %q", rejected[0]))
	}

	if len(numbers) != NumbersPerEntry {
		return out, ErrWrongCount.WithDetails(fmt.Sprintf("got %d", len(numbers)))
	}

	for _, n := range numbers {
		if n < MinNumber || n > MaxNumber {
			return out, ErrOutOfRange.WithDetails(fmt.Sprintf("got %d", n))
		}
	}

	if dup, ok := firstDuplicate(numbers); ok {
		return out, ErrDuplicateNumbers.WithDetails(fmt.Sprintf("%d appears more than once", dup))
	}

	slices.Sort(numbers)
	copy(out[:], numbers)
	return out, nil
}
