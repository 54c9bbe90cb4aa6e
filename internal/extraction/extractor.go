package extraction

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mateo/contract-intake/internal/types"
)

// DefaultConfidenceThreshold marks fields below it low-confidence.
const DefaultConfidenceThreshold = 0.6

// standardHeadings are the section headers a supported contract layout
// carries. A document with none of them is rejected as UnsupportedLayout.
var standardHeadings = []string{
	"customer information",
	"general service fees",
	"fees and payment terms",
	"selected services and pricing",
	"selected services & pricing",
}

// requiredFields must resolve to a single value or extraction fails.
var requiredFields = []string{
	types.FieldAccountName,
	types.FieldContractRef,
	types.FieldSignatoryName,
	types.FieldStartDate,
	types.FieldCurrency,
	types.FieldTotalAmount,
}

// Extractor converts structured text into a ContractRecord using one matcher
// per field. It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	threshold float64
	matchers  map[string]*labelMatcher
}

// NewExtractor returns an extractor with the given confidence threshold;
// a non-positive threshold uses the default.
func NewExtractor(threshold float64) *Extractor {
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	cell := `[:|]\s*([^|]+?)\s*\|?\s*$`
	return &Extractor{
		threshold: threshold,
		matchers: map[string]*labelMatcher{
			types.FieldAccountName:   newLabelMatcher(types.FieldAccountName, 0.95, `(?i)^\|?\s*Account Name\s*`+cell),
			types.FieldContractRef:   newLabelMatcher(types.FieldContractRef, 0.95, `(?i)^\|?\s*Contract (?:ID|Reference|External ID)\s*`+cell),
			types.FieldCustomerName:  newLabelMatcher(types.FieldCustomerName, 0.9, `(?i)^\|?\s*Customer Legal Name\s*`+cell),
			types.FieldSignatoryName: newLabelMatcher(types.FieldSignatoryName, 0.9, `(?i)^\|?\s*Signatory(?: Name)?\s*`+cell),
			types.FieldSignatoryDOB:  newLabelMatcher(types.FieldSignatoryDOB, 0.85, `(?i)^\|?\s*Signatory Date of Birth\s*`+cell, `(?i)^\|?\s*Date of Birth\s*`+cell),
			types.FieldSignatoryID:   newLabelMatcher(types.FieldSignatoryID, 0.85, `(?i)^\|?\s*Signatory ID\s*`+cell, `(?i)^\|?\s*National ID\s*`+cell),
			types.FieldStartDate:     newLabelMatcher(types.FieldStartDate, 0.95, `(?i)^\|?\s*(?:Contract )?Start Date\s*`+cell, `(?i)^\|?\s*Effective Date\s*`+cell),
			types.FieldEndDate:       newLabelMatcher(types.FieldEndDate, 0.9, `(?i)^\|?\s*(?:Contract )?End Date\s*`+cell, `(?i)^\|?\s*Expiration Date\s*`+cell),
			types.FieldTermMonths:    newLabelMatcher(types.FieldTermMonths, 0.9, `(?i)^\|?\s*Term \(?Months\)?\s*`+cell, `(?i)^\|?\s*Contract Term\s*`+cell),
			types.FieldCurrency:      newLabelMatcher(types.FieldCurrency, 0.9, `(?i)^\|?\s*Currency\s*`+cell),
			types.FieldTotalAmount:   newLabelMatcher(types.FieldTotalAmount, 0.9, `(?i)^\|?\s*Total Contract (?:Value|Amount)\s*`+cell, `(?i)^\|?\s*Total Fees\s*`+cell),
		},
	}
}

// Extract produces a ContractRecord from structured text or fails with an
// *Error. Pure transformation: no network, no side effects, safe to retry.
func (e *Extractor) Extract(documentID string, st *types.StructuredText) (*types.ContractRecord, error) {
	if !hasStandardLayout(st) {
		return nil, &Error{Kind: KindUnsupportedLayout, Message: "no recognized section headers found"}
	}

	matches := make(map[string]Match, len(e.matchers))
	for field, m := range e.matchers {
		matches[field] = m.match(st)
	}

	for _, field := range requiredFields {
		switch matches[field].State {
		case MatchNotFound:
			return nil, &Error{Kind: KindMissingRequiredField, Field: field, Message: "no value found"}
		case MatchAmbiguous:
			return nil, &Error{Kind: KindAmbiguousMatch, Field: field, Message: "conflicting values with equal confidence"}
		}
	}

	rec := &types.ContractRecord{
		DocumentID: documentID,
		Fields:     make(map[string]types.FieldMeta, len(matches)),
	}
	for field, m := range matches {
		rec.Fields[field] = types.FieldMeta{
			Present:       m.State == MatchFound,
			Confidence:    m.Confidence,
			Page:          m.Page,
			LowConfidence: m.State == MatchFound && m.Confidence < e.threshold,
		}
	}

	rec.AccountName = matches[types.FieldAccountName].Value
	rec.ContractRef = matches[types.FieldContractRef].Value
	rec.CustomerName = matches[types.FieldCustomerName].Value
	rec.Signatory = types.Signatory{
		Name:        matches[types.FieldSignatoryName].Value,
		DateOfBirth: matches[types.FieldSignatoryDOB].Value,
		NationalID:  matches[types.FieldSignatoryID].Value,
	}

	start, err := parseDate(matches[types.FieldStartDate].Value)
	if err != nil {
		return nil, &Error{Kind: KindMissingRequiredField, Field: types.FieldStartDate, Message: err.Error()}
	}
	rec.StartDate = start

	if m := matches[types.FieldEndDate]; m.State == MatchFound {
		end, err := parseDate(m.Value)
		if err == nil {
			rec.EndDate = end
		} else {
			markAbsent(rec, types.FieldEndDate)
		}
	}

	if m := matches[types.FieldTermMonths]; m.State == MatchFound {
		if n, err := strconv.Atoi(strings.Fields(m.Value)[0]); err == nil {
			rec.TermMonths = n
		}
	}
	// Derive whichever of term/end date is missing from the other.
	if rec.TermMonths == 0 && !rec.EndDate.IsZero() {
		rec.TermMonths = monthsBetween(rec.StartDate, rec.EndDate)
	}
	if rec.EndDate.IsZero() && rec.TermMonths > 0 {
		rec.EndDate = rec.StartDate.AddDate(0, rec.TermMonths, 0)
	}

	rec.Currency = strings.ToUpper(normalizeCurrency(matches[types.FieldCurrency].Value))

	total, err := parseCents(matches[types.FieldTotalAmount].Value)
	if err != nil {
		return nil, &Error{Kind: KindMissingRequiredField, Field: types.FieldTotalAmount, Message: err.Error()}
	}
	rec.TotalCents = total

	rec.LineItems = extractLineItems(st)
	rec.DiscountTiers = extractDiscountTiers(st)
	rec.Clauses = extractClauses(st)

	return rec, nil
}

// markAbsent clears the presence flag for a field whose raw value could not
// be parsed into its typed form.
func markAbsent(rec *types.ContractRecord, field string) {
	meta := rec.Fields[field]
	meta.Present = false
	rec.Fields[field] = meta
}

func hasStandardLayout(st *types.StructuredText) bool {
	for _, h := range st.Headings() {
		lowered := strings.ToLower(strings.TrimLeft(h, "# "))
		for _, want := range standardHeadings {
			if strings.HasPrefix(lowered, want) {
				return true
			}
		}
	}
	return false
}

// normalizeCurrency maps currency symbols to ISO codes; "$" is USD in the
// source contracts.
func normalizeCurrency(s string) string {
	switch strings.TrimSpace(s) {
	case "$":
		return "USD"
	case "€":
		return "EUR"
	case "£":
		return "GBP"
	default:
		return s
	}
}

// extractLineItems walks the "Selected Services" pricing sections and parses
// rows of (item name, quantity, fee).
func extractLineItems(st *types.StructuredText) []types.LineItem {
	var items []types.LineItem
	inPricing := false
	for _, b := range st.AllBlocks() {
		if b.Kind == types.BlockHeading {
			lowered := strings.ToLower(b.Text)
			inPricing = strings.Contains(lowered, "selected services") &&
				!strings.Contains(lowered, "tier pricing")
			continue
		}
		if !inPricing || b.Kind != types.BlockTableRow {
			continue
		}
		cells := splitTableRow(b.Text)
		if len(cells) < 3 || isHeaderRow(cells) {
			continue
		}
		qty, err := strconv.ParseInt(strings.ReplaceAll(cells[1], ",", ""), 10, 64)
		if err != nil {
			continue
		}
		fee, err := parseCents(cells[2])
		if err != nil {
			continue
		}
		items = append(items, types.LineItem{Product: cells[0], Quantity: qty, UnitFeeCents: fee})
	}
	return items
}

// extractDiscountTiers walks tier pricing / discount sections and parses rows
// of (tier name, lower bound, upper bound, percent). An upper bound of
// "Unlimited" or "NA" leaves the tier unbounded above.
func extractDiscountTiers(st *types.StructuredText) []types.DiscountTier {
	var tiers []types.DiscountTier
	inTiers := false
	for _, b := range st.AllBlocks() {
		if b.Kind == types.BlockHeading {
			lowered := strings.ToLower(b.Text)
			inTiers = strings.Contains(lowered, "tier pricing") || strings.Contains(lowered, "discount")
			continue
		}
		if !inTiers || b.Kind != types.BlockTableRow {
			continue
		}
		cells := splitTableRow(b.Text)
		if len(cells) < 4 || isHeaderRow(cells) {
			continue
		}
		lower, err := parseCents(cells[1])
		if err != nil {
			continue
		}
		upper := int64(-1)
		if !strings.EqualFold(cells[2], "unlimited") && !strings.EqualFold(cells[2], "na") {
			upper, err = parseCents(cells[2])
			if err != nil {
				continue
			}
		}
		pct, err := parsePercent(cells[3])
		if err != nil {
			continue
		}
		tiers = append(tiers, types.DiscountTier{Name: cells[0], LowerCents: lower, UpperCents: upper, Percent: pct})
	}
	return tiers
}

func extractClauses(st *types.StructuredText) types.ClauseFlags {
	var flags types.ClauseFlags
	for _, b := range st.AllBlocks() {
		lowered := strings.ToLower(b.Text)
		if strings.Contains(lowered, "automatically renew") || strings.Contains(lowered, "auto-renew") {
			flags.AutoRenew = true
		}
		if strings.Contains(lowered, "early termination") {
			flags.EarlyTermination = true
		}
	}
	return flags
}

// isHeaderRow detects column header rows so they are not parsed as data.
func isHeaderRow(cells []string) bool {
	joined := strings.ToLower(strings.Join(cells, " "))
	for _, marker := range []string{"item name", "quantity", "fee per", "tier name", "lower", "upper", "discount (%)"} {
		if strings.Contains(joined, marker) {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer for debugging matcher output.
func (m Match) String() string {
	switch m.State {
	case MatchFound:
		return fmt.Sprintf("Found(%q, %.2f, p%d)", m.Value, m.Confidence, m.Page)
	case MatchAmbiguous:
		return "Ambiguous"
	default:
		return "NotFound"
	}
}
