package lotto

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ResultParser extracts a DrawResult from results page markup.
//
// Parse never fails: any structural mismatch degrades to the sentinel result
// with an error message, since the page is outside our control.
type ResultParser struct {
	selectors atomic.Pointer[SelectorSet]
	logger    Logger
	now       func() time.Time
}

// NewResultParser creates a parser using selectors, or DefaultSelectors when nil
func NewResultParser(selectors *SelectorSet, logger Logger) (*ResultParser, error) {
	if selectors == nil {
		selectors = DefaultSelectors()
	}
	if logger == nil {
		logger = NewSilentLogger()
	}

	p := &ResultParser{logger: logger, now: time.Now}
	if err := p.SetSelectors(selectors); err != nil {
		return nil, err
	}
	return p, nil
}

// SetSelectors swaps the selector set used by subsequent Parse calls
func (p *ResultParser) SetSelectors(selectors *SelectorSet) error {
	if err := selectors.Validate(); err != nil {
		return err
	}

	cp := *selectors
	if old := p.selectors.Swap(&cp); old != nil && old.Version != cp.Version {
		p.logger.Info("Result selectors changed from %s to %s", old.Version, cp.Version)
	}
	return nil
}

// Selectors returns a copy of the active selector set
func (p *ResultParser) Selectors() SelectorSet {
	return *p.selectors.Load()
}

// Parse extracts the draw date and winning numbers from raw markup
func (p *ResultParser) Parse(raw string) DrawResult {
	sel := p.selectors.Load()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return p.sentinel(sel, "", ErrParseMarkup.WithDetails(err.Error()).WithCause(err))
	}

	container := doc.Find(sel.Container).First()
	if container.Length() == 0 {
		return p.sentinel(sel, "", ErrContainerNotFound.WithDetails(sel.Container))
	}

	var drawDate string
	if date := container.Find(sel.Date).First(); date.Length() > 0 {
		drawDate = strings.TrimSpace(date.Text())
	}

	numbers := make([]string, 0, NumbersPerEntry)
	container.Find(sel.Number).Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			numbers = append(numbers, text)
		}
	})

	if len(numbers) != NumbersPerEntry {
		return p.sentinel(sel, drawDate, ErrNumberCount.WithDetails(
			fmt.Sprintf("expected %d winning numbers, found %d", NumbersPerEntry, len(numbers))))
	}

	result := DrawResult{
		DrawDate:        drawDate,
		SelectorVersion: sel.Version,
		FetchedAt:       p.now(),
	}
	copy(result.WinningNumbers[:], numbers)
	return result
}

func (p *ResultParser) sentinel(sel *SelectorSet, drawDate string, err *LottoError) DrawResult {
	p.logger.Warn("Results page did not match selectors %s: %v", sel.Version, err)

	result := NewSentinelResult(err.UserMessage())
	result.DrawDate = drawDate
	result.SelectorVersion = sel.Version
	result.FetchedAt = p.now()
	return result
}
