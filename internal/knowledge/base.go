package knowledge

import (
	"strings"
	"sync"
	"unicode/utf8"
)

// DefaultContextBudget is the default number of characters rendered by Context.
const DefaultContextBudget = 12000

// Base holds the documents the assistant answers from: static files loaded
// at startup plus a price document that is replaced on every refresh.
type Base struct {
	mu     sync.RWMutex
	docs   []Document
	price  *Document
	budget int
}

// NewBase creates an empty knowledge base
func NewBase(budget int) *Base {
	if budget <= 0 {
		budget = DefaultContextBudget
	}
	return &Base{budget: budget}
}

// SetDocuments replaces the static documents
func (b *Base) SetDocuments(docs []Document) {
	cp := make([]Document, len(docs))
	copy(cp, docs)

	b.mu.Lock()
	b.docs = cp
	b.mu.Unlock()
}

// SetPriceDocument replaces the price document
func (b *Base) SetPriceDocument(doc Document) {
	b.mu.Lock()
	b.price = &doc
	b.mu.Unlock()
}

// PriceDocument returns the current price document, if any
func (b *Base) PriceDocument() (Document, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.price == nil {
		return Document{}, false
	}
	return *b.price, true
}

// Documents returns all documents, price document first
func (b *Base) Documents() []Document {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Document, 0, len(b.docs)+1)
	if b.price != nil {
		out = append(out, *b.price)
	}
	return append(out, b.docs...)
}

// Len returns the number of documents
func (b *Base) Len() int {
	return len(b.Documents())
}

// Context renders the documents as a prompt block of at most budget characters.
// The first document that does not fit whole is cut at a sentence boundary
// and nothing after it is rendered.
func (b *Base) Context() string {
	var (
		sb        strings.Builder
		remaining = b.budget
	)

	for _, doc := range b.Documents() {
		header := "### " + doc.ID + "\n"
		room := remaining - utf8.RuneCountInString(header) - 2
		if room <= 0 {
			break
		}

		text := doc.Text
		truncated := false
		if utf8.RuneCountInString(text) > room {
			text = fitSentences(text, room)
			if text == "" {
				break
			}
			truncated = true
		}

		sb.WriteString(header)
		sb.WriteString(text)
		sb.WriteString("\n\n")
		remaining -= utf8.RuneCountInString(header) + utf8.RuneCountInString(text) + 2

		if truncated {
			break
		}
	}

	return strings.TrimSpace(sb.String())
}

// fitSentences returns the longest run of leading sentences within limit runes.
func fitSentences(text string, limit int) string {
	var (
		sb strings.Builder
		n  int
	)
	for _, s := range Sentences(text) {
		l := utf8.RuneCountInString(s)
		if n > 0 {
			l++
		}
		if n+l > limit {
			break
		}
		if n > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(s)
		n += l
	}
	return sb.String()
}
