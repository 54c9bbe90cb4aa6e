package convert

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mateo/contract-intake/internal/types"
)

// DefaultPageLimit bounds the number of pages a single document may contain.
const DefaultPageLimit = 200

// pageBreak separates pages in upstream parser output.
const pageBreak = "\f"

// MarkdownConverter converts the markdown/plain-text output of the upstream
// OCR parser into structured text. Pages are split on form feeds; headings
// and table rows are classified by their markdown syntax.
type MarkdownConverter struct {
	PageLimit int
}

// NewMarkdownConverter returns a converter with the default page limit.
func NewMarkdownConverter() *MarkdownConverter {
	return &MarkdownConverter{PageLimit: DefaultPageLimit}
}

// Convert implements Converter.
func (c *MarkdownConverter) Convert(_ context.Context, doc types.RawDocument) (*types.StructuredText, error) {
	if len(doc.Bytes) == 0 {
		return nil, &Error{Kind: KindCorruptFile, Message: "document is empty"}
	}
	if !utf8.Valid(doc.Bytes) {
		return nil, &Error{Kind: KindCorruptFile, Message: "document is not valid UTF-8 text"}
	}
	if bytes.HasPrefix(doc.Bytes, []byte("%PDF")) {
		return nil, &Error{Kind: KindUnsupportedFormat, Message: "raw PDF bytes received; expected parsed text output"}
	}

	limit := c.PageLimit
	if limit <= 0 {
		limit = DefaultPageLimit
	}

	rawPages := strings.Split(string(doc.Bytes), pageBreak)
	if len(rawPages) > limit {
		return nil, &Error{
			Kind:    KindPageLimitExceeded,
			Message: fmt.Sprintf("document has %d pages, limit is %d", len(rawPages), limit),
		}
	}

	st := &types.StructuredText{}
	for i, raw := range rawPages {
		page := types.Page{Number: i + 1}
		for _, line := range strings.Split(raw, "\n") {
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			block := types.Block{
				Page:  page.Number,
				Index: len(page.Blocks),
				Kind:  classify(text),
				Text:  text,
			}
			page.Blocks = append(page.Blocks, block)
		}
		if len(page.Blocks) > 0 {
			st.Pages = append(st.Pages, page)
		}
	}

	if len(st.Pages) == 0 {
		return nil, &Error{Kind: KindCorruptFile, Message: "document contains no readable text"}
	}
	return st, nil
}

// classify maps a markdown line to a block kind.
func classify(text string) types.BlockKind {
	switch {
	case strings.HasPrefix(text, "#"):
		return types.BlockHeading
	case strings.HasPrefix(text, "|"):
		return types.BlockTableRow
	default:
		return types.BlockParagraph
	}
}
