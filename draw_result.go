package lotto

import "time"

// SentinelNumbers is published in place of the winning numbers when they cannot be extracted
var SentinelNumbers = [NumbersPerEntry]string{
	SentinelToken, SentinelToken, SentinelToken,
	SentinelToken, SentinelToken, SentinelToken,
}

// DrawResult is the latest official draw as scraped from the results page.
// It is transient and replaced on every fetch.
type DrawResult struct {
	DrawDate        string                  `json:"draw_date"`                  // Free-text draw date, empty if unavailable
	WinningNumbers  [NumbersPerEntry]string `json:"winning_numbers"`            // Winning numbers in page order, or the sentinel
	ErrorMessage    string                  `json:"error_message,omitempty"`    // Human readable failure, set whenever the sentinel is used
	SelectorVersion string                  `json:"selector_version,omitempty"` // Selector set the page was parsed with
	FetchedAt       time.Time               `json:"fetched_at"`                 // When the result was produced
}

// NewSentinelResult returns a placeholder result carrying message
func NewSentinelResult(message string) DrawResult {
	if message == "" {
		message = "draw result unavailable"
	}
	return DrawResult{
		WinningNumbers: SentinelNumbers,
		ErrorMessage:   message,
		FetchedAt:      time.Now(),
	}
}

// IsSentinel reports whether the winning numbers are the placeholder
func (dr DrawResult) IsSentinel() bool {
	return dr.WinningNumbers == SentinelNumbers
}

// OK reports whether the result carries real winning numbers and no error
func (dr DrawResult) OK() bool {
	return dr.ErrorMessage == "" && !dr.IsSentinel()
}

// Numbers returns the winning numbers as a slice
func (dr DrawResult) Numbers() []string {
	out := make([]string, len(dr.WinningNumbers))
	copy(out, dr.WinningNumbers[:])
	return out
}
