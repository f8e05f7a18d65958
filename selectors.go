package lotto

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
)

// SelectorSet is the versioned page-structure contract the parser relies on.
// Date and Number are evaluated inside Container.
type SelectorSet struct {
	Version   string `mapstructure:"version" json:"version"`
	Container string `mapstructure:"container" json:"container"`
	Date      string `mapstructure:"date" json:"date"`
	Number    string `mapstructure:"number" json:"number"`
}

// DefaultSelectors returns the selector set matching the current results page
func DefaultSelectors() *SelectorSet {
	return &SelectorSet{
		Version:   DefaultSelectorVersion,
		Container: DefaultContainerSelector,
		Date:      DefaultDateSelector,
		Number:    DefaultNumberSelector,
	}
}

// Validate checks every selector compiles
func (s *SelectorSet) Validate() error {
	if s == nil {
		return ErrInvalidSelectors.WithDetails("selector set is nil")
	}
	if strings.TrimSpace(s.Version) == "" {
		return ErrInvalidSelectors.WithDetails("version is required")
	}

	for name, sel := range map[string]string{
		"container": s.Container,
		"date":      s.Date,
		"number":    s.Number,
	} {
		if strings.TrimSpace(sel) == "" {
			return ErrInvalidSelectors.WithDetails(name + " selector is required")
		}
		if _, err := cascadia.Compile(sel); err != nil {
			return ErrInvalidSelectors.WithDetails(fmt.Sprintf("%s selector %q: %v", name, sel, err)).WithCause(err)
		}
	}

	return nil
}
