// Package types provides type definitions for structured data used throughout the contract-intake system.
package types

import "time"

// RawDocument is an incoming contract document as received at the intake boundary.
// The ID doubles as the idempotency key for the whole pipeline; the struct is never
// mutated after intake.
type RawDocument struct {
	ID         string    `json:"id"`
	Source     string    `json:"source,omitempty"`
	Location   string    `json:"location,omitempty"` // object-store or filesystem reference
	FileName   string    `json:"file_name,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
	Bytes      []byte    `json:"-"`
}

// BlockKind classifies a text block within a converted page.
type BlockKind string

const (
	BlockHeading   BlockKind = "heading"
	BlockTableRow  BlockKind = "table_row"
	BlockParagraph BlockKind = "paragraph"
)

// Block is a positioned run of text produced by the document converter.
type Block struct {
	Page  int       `json:"page"`  // 1-based page number
	Index int       `json:"index"` // 0-based position within the page
	Kind  BlockKind `json:"kind"`
	Text  string    `json:"text"`
}

// Page holds the blocks of a single document page in reading order.
type Page struct {
	Number int     `json:"number"`
	Blocks []Block `json:"blocks"`
}

// StructuredText is the page-ordered output of the document converter.
// It is immutable once produced; extraction only reads it.
type StructuredText struct {
	Pages []Page `json:"pages"`
}

// AllBlocks returns every block across all pages in document order.
func (s *StructuredText) AllBlocks() []Block {
	var blocks []Block
	for _, page := range s.Pages {
		blocks = append(blocks, page.Blocks...)
	}
	return blocks
}

// Headings returns the text of all heading blocks in document order.
func (s *StructuredText) Headings() []string {
	var headings []string
	for _, b := range s.AllBlocks() {
		if b.Kind == BlockHeading {
			headings = append(headings, b.Text)
		}
	}
	return headings
}
