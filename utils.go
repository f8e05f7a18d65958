package lotto

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ValidateIndex validates a number position within a record
func ValidateIndex(index int) error {
	if index < 0 || index >= NumbersPerEntry {
		return ErrInvalidIndex.WithDetails(fmt.Sprintf("got %d", index))
	}
	return nil
}

// generateRecordID generates a random record identifier
func generateRecordID() string {
	return uuid.NewString()
}

// parseNumberTokens splits text on whitespace and converts every token to an
// integer. Tokens that are not integers are returned separately so the caller
// can decide whether to drop or reject them.
func parseNumberTokens(text string) (numbers []int, rejected []string) {
	fields := strings.Fields(text)
	numbers = make([]int, 0, len(fields))
	for _, field := range fields {
		n, err := strconv.Atoi(field)
		if err != nil {
			rejected = append(rejected, field)
			continue
		}
		numbers = append(numbers, n)
	}
	return numbers, rejected
}

// firstDuplicate returns the first value that appears more than once
func firstDuplicate(numbers []int) (int, bool) {
	seen := make(map[int]struct{}, len(numbers))
	for _, n := range numbers {
		if _, ok := seen[n]; ok {
			return n, true
		}
		seen[n] = struct{}{}
	}
	return 0, false
}
