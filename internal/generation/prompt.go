package generation

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
	"unicode/utf8"

	"github.com/phrazzld/studytools/internal/domain"
)

// DefaultMaxContentRunes bounds the document text embedded in a prompt.
const DefaultMaxContentRunes = 30000

//go:embed prompts/*.tmpl
var promptFS embed.FS

type promptData struct {
	Title     string
	Content   string
	Truncated bool
}

// PromptBuilder renders the tool-specific prompt for a document. Output is
// a pure function of the tool type and document.
type PromptBuilder struct {
	templates       map[domain.ToolType]*template.Template
	maxContentRunes int
}

// NewPromptBuilder parses the embedded templates. maxContentRunes <= 0 uses
// DefaultMaxContentRunes.
func NewPromptBuilder(maxContentRunes int) (*PromptBuilder, error) {
	if maxContentRunes <= 0 {
		maxContentRunes = DefaultMaxContentRunes
	}
	b := &PromptBuilder{
		templates:       make(map[domain.ToolType]*template.Template, len(domain.ToolTypes())),
		maxContentRunes: maxContentRunes,
	}
	for _, tool := range domain.ToolTypes() {
		tmpl, err := template.ParseFS(promptFS, "prompts/header.tmpl", "prompts/"+string(tool)+".tmpl")
		if err != nil {
			return nil, fmt.Errorf("%w: parse %s prompt: %v", ErrInvalidConfig, tool, err)
		}
		b.templates[tool] = tmpl.Lookup(string(tool) + ".tmpl")
	}
	return b, nil
}

// Build renders the request for tool over doc.
func (b *PromptBuilder) Build(tool domain.ToolType, doc *domain.Document) (Request, error) {
	tmpl, ok := b.templates[tool]
	if !ok {
		return Request{}, fmt.Errorf("%w: unrecognized tool type %q", domain.ErrValidation, tool)
	}
	if doc == nil {
		return Request{}, fmt.Errorf("%w: document is required", domain.ErrValidation)
	}

	data := promptData{Title: doc.Title, Content: doc.Content}
	if utf8.RuneCountInString(data.Content) > b.maxContentRunes {
		data.Content = string([]rune(data.Content)[:b.maxContentRunes])
		data.Truncated = true
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return Request{}, fmt.Errorf("render %s prompt: %w", tool, err)
	}
	return Request{ToolType: tool, DocumentTitle: doc.Title, Prompt: buf.String()}, nil
}
