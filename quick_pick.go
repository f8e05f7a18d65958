package lotto

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"slices"
	"strconv"
	"strings"
)

const maxQuickPickAttempts = 1000

// RandomGenerator produces random integers in an inclusive range
type RandomGenerator interface {
	GenerateInRange(min, max int) (int, error)
}

// SecureRandomGenerator implements secure random number generation using crypto/rand
type SecureRandomGenerator struct{}

// NewSecureRandomGenerator creates a new secure random generator
func NewSecureRandomGenerator() *SecureRandomGenerator {
	return &SecureRandomGenerator{}
}

// GenerateInRange generates a secure random number within the specified range [min, max] (inclusive)
func (g *SecureRandomGenerator) GenerateInRange(min, max int) (int, error) {
	if min > max {
		return 0, ErrInvalidParameters.WithDetails(fmt.Sprintf("min %d is greater than max %d", min, max))
	}
	if min == max {
		return min, nil
	}

	randomBig, err := rand.Int(rand.Reader, big.NewInt(int64(max-min+1)))
	if err != nil {
		return 0, err
	}
	return int(randomBig.Int64()) + min, nil
}

// QuickPick draws six distinct playable numbers and returns them as a
// candidate, so they go through the same validation as typed input
func QuickPick(gen RandomGenerator, plus bool) (Candidate, error) {
	if gen == nil {
		gen = NewSecureRandomGenerator()
	}

	picked := make([]int, 0, NumbersPerEntry)
	for attempt := 0; len(picked) < NumbersPerEntry; attempt++ {
		if attempt >= maxQuickPickAttempts {
			return Candidate{}, fmt.Errorf("quick pick: no %d distinct numbers after %d draws", NumbersPerEntry, attempt)
		}
		n, err := gen.GenerateInRange(MinNumber, MaxNumber)
		if err != nil {
			return Candidate{}, fmt.Errorf("quick pick: %w", err)
		}
		if !slices.Contains(picked, n) {
			picked = append(picked, n)
		}
	}
	slices.Sort(picked)

	parts := make([]string, len(picked))
	for i, n := range picked {
		parts[i] = strconv.Itoa(n)
	}
	return Candidate{Text: strings.Join(parts, " "), Plus: plus}, nil
}
