package extraction

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	moneyRe   = regexp.MustCompile(`^[^\d\-]*(-?)([\d,]+)(?:\.(\d{1,2}))?$`)
	percentRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*%?$`)
)

// dateLayouts are tried in order when parsing extracted dates.
var dateLayouts = []string{
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"01/02/2006",
	"2 January 2006",
}

// parseCents parses a monetary string like "$12,000.00" into cents.
func parseCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "waived") {
		return 0, nil
	}
	groups := moneyRe.FindStringSubmatch(s)
	if groups == nil {
		return 0, fmt.Errorf("unparseable amount %q", s)
	}
	whole, err := strconv.ParseInt(strings.ReplaceAll(groups[2], ",", ""), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable amount %q: %w", s, err)
	}
	cents := whole * 100
	if groups[3] != "" {
		frac := groups[3]
		if len(frac) == 1 {
			frac += "0"
		}
		f, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("unparseable amount %q: %w", s, err)
		}
		cents += f
	}
	if groups[1] == "-" {
		cents = -cents
	}
	return cents, nil
}

// parsePercent parses "10", "10%", or "12.5%" into a float.
func parsePercent(s string) (float64, error) {
	groups := percentRe.FindStringSubmatch(strings.TrimSpace(s))
	if groups == nil {
		return 0, fmt.Errorf("unparseable percent %q", s)
	}
	return strconv.ParseFloat(groups[1], 64)
}

// parseDate tries the known contract date layouts in order.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// splitTableRow splits a markdown table row into trimmed cells.
// Returns nil for separator rows like "|---|---|".
func splitTableRow(text string) []string {
	trimmed := strings.Trim(strings.TrimSpace(text), "|")
	parts := strings.Split(trimmed, "|")
	cells := make([]string, 0, len(parts))
	sep := true
	for _, p := range parts {
		cell := strings.Join(strings.Fields(p), " ")
		if strings.Trim(cell, "-: ") != "" {
			sep = false
		}
		cells = append(cells, cell)
	}
	if sep {
		return nil
	}
	return cells
}

// monthsBetween returns the number of whole months from start to end,
// rounding partial months up so short final periods still bill.
func monthsBetween(start, end time.Time) int {
	if !end.After(start) {
		return 0
	}
	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	if end.Day() > start.Day() {
		months++
	}
	if months <= 0 {
		months = 1
	}
	return months
}
