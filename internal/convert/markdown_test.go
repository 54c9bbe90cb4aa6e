package convert

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mateo/contract-intake/internal/types"
)

func TestConvert_ClassifiesBlocks(t *testing.T) {
	doc := types.RawDocument{
		ID: "doc-1",
		Bytes: []byte("# Customer Information\n| Account Name | Acme |\nPlain paragraph text.\n"),
	}

	st, err := NewMarkdownConverter().Convert(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, st.Pages, 1)
	require.Len(t, st.Pages[0].Blocks, 3)

	assert.Equal(t, types.BlockHeading, st.Pages[0].Blocks[0].Kind)
	assert.Equal(t, types.BlockTableRow, st.Pages[0].Blocks[1].Kind)
	assert.Equal(t, types.BlockParagraph, st.Pages[0].Blocks[2].Kind)
	assert.Equal(t, 0, st.Pages[0].Blocks[0].Index)
	assert.Equal(t, 1, st.Pages[0].Blocks[1].Index)
}

func TestConvert_SplitsPagesOnFormFeed(t *testing.T) {
	doc := types.RawDocument{
		ID:    "doc-2",
		Bytes: []byte("# Page One\f# Page Two\f# Page Three"),
	}

	st, err := NewMarkdownConverter().Convert(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, st.Pages, 3)
	assert.Equal(t, 1, st.Pages[0].Number)
	assert.Equal(t, 3, st.Pages[2].Number)
	assert.Equal(t, []string{"# Page One", "# Page Two", "# Page Three"}, st.Headings())
}

func TestConvert_EmptyDocument(t *testing.T) {
	_, err := NewMarkdownConverter().Convert(context.Background(), types.RawDocument{ID: "doc-3"})
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, KindCorruptFile, cerr.Kind)
}

func TestConvert_InvalidUTF8(t *testing.T) {
	doc := types.RawDocument{ID: "doc-4", Bytes: []byte{0xff, 0xfe, 0x00}}
	_, err := NewMarkdownConverter().Convert(context.Background(), doc)
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, KindCorruptFile, cerr.Kind)
}

func TestConvert_WhitespaceOnly(t *testing.T) {
	doc := types.RawDocument{ID: "doc-5", Bytes: []byte("   \n\n  \t\n")}
	_, err := NewMarkdownConverter().Convert(context.Background(), doc)
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, KindCorruptFile, cerr.Kind)
}

func TestConvert_RawPDFRejected(t *testing.T) {
	doc := types.RawDocument{ID: "doc-6", Bytes: []byte("%PDF-1.7 binary content")}
	_, err := NewMarkdownConverter().Convert(context.Background(), doc)
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, KindUnsupportedFormat, cerr.Kind)
}

func TestConvert_PageLimit(t *testing.T) {
	c := &MarkdownConverter{PageLimit: 3}
	doc := types.RawDocument{
		ID:    "doc-7",
		Bytes: []byte(strings.Repeat("page\f", 4) + "page"),
	}

	_, err := c.Convert(context.Background(), doc)
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, KindPageLimitExceeded, cerr.Kind)
	assert.Contains(t, cerr.Error(), "limit is 3")
}
