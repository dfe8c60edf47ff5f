package generation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/phrazzld/studytools/internal/domain"
)

// SampleGenerator returns fixed, schema-valid artifacts titled after the
// document. It needs no credentials and backs the "sample" LLM provider.
type SampleGenerator struct{}

var _ Generator = SampleGenerator{}

// Generate implements Generator.
func (SampleGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	title := req.DocumentTitle
	if title == "" {
		title = "Document"
	}

	var v any
	switch req.ToolType {
	case domain.ToolMindMap:
		v = map[string]any{
			"nodes": []map[string]string{
				{"id": "1", "label": title, "type": "root"},
				{"id": "2", "label": "Key Concept 1", "type": "concept"},
				{"id": "3", "label": "Key Concept 2", "type": "concept"},
				{"id": "4", "label": "Sub-concept A", "type": "subconcept"},
				{"id": "5", "label": "Sub-concept B", "type": "subconcept"},
			},
			"edges": []map[string]string{
				{"from": "1", "to": "2"},
				{"from": "1", "to": "3"},
				{"from": "2", "to": "4"},
				{"from": "3", "to": "5"},
			},
		}
	case domain.ToolFlashcards:
		v = map[string]any{
			"cards": []map[string]string{
				{"id": "1", "question": "What is the main topic of " + title + "?", "answer": "The main topic covers key concepts from the document."},
				{"id": "2", "question": "What are the key takeaways?", "answer": "Understanding the core principles and their applications."},
				{"id": "3", "question": "How can this knowledge be applied?", "answer": "Through practical exercises and real-world scenarios."},
			},
		}
	case domain.ToolPresentation:
		v = map[string]any{
			"title": title,
			"slides": []map[string]any{
				{"title": "Introduction", "bullets": []string{"What " + title + " covers", "Why it matters"}},
				{"title": "Key Concepts", "bullets": []string{"Concept 1", "Concept 2"}},
				{"title": "Summary", "bullets": []string{"Main takeaways"}},
			},
		}
	case domain.ToolELI5:
		v = map[string]any{
			"title":       title + ", simply explained",
			"explanation": "Imagine you have a big box of ideas. This document picks the most important ones and shows how they fit together.",
			"analogies":   []string{"It is like sorting toys into labelled boxes."},
		}
	case domain.ToolQA:
		v = map[string]any{
			"items": []map[string]string{
				{"question": "What is " + title + " about?", "answer": "It introduces the document's key concepts.", "source": "Introduction"},
				{"question": "Why is it important?", "answer": "The ideas apply to practical problems.", "source": "Summary"},
			},
		}
	case domain.ToolVideo:
		v = map[string]any{
			"title":   title + " in three minutes",
			"summary": "A short walkthrough of the main ideas.",
			"scenes": []map[string]any{
				{"heading": "Hook", "narration": "Have you ever wondered how this works?", "duration_seconds": 15},
				{"heading": "Core ideas", "narration": "Let's walk through the key concepts.", "duration_seconds": 90},
				{"heading": "Wrap up", "narration": "Here is what to remember.", "duration_seconds": 30},
			},
		}
	default:
		return "", fmt.Errorf("%w: no sample for tool type %q", ErrGenerationFailed, req.ToolType)
	}

	out, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	return string(out), nil
}
