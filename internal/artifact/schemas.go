package artifact

import "github.com/phrazzld/studytools/internal/domain"

// MindMap is a concept graph. Every edge endpoint references a node id.
type MindMap struct {
	Nodes []MindMapNode `json:"nodes" validate:"required,min=1,dive"`
	Edges []MindMapEdge `json:"edges" validate:"required,dive"`
}

// MindMapNode is one concept. Type is free-form (root, concept, subconcept).
type MindMapNode struct {
	ID    string `json:"id" validate:"required"`
	Label string `json:"label" validate:"required"`
	Type  string `json:"type,omitempty"`
}

// MindMapEdge connects two nodes by id.
type MindMapEdge struct {
	From  string `json:"from" validate:"required"`
	To    string `json:"to" validate:"required"`
	Label string `json:"label,omitempty"`
}

func (MindMap) Tool() domain.ToolType { return domain.ToolMindMap }

// Flashcards is a deck of question/answer cards.
type Flashcards struct {
	Cards []Flashcard `json:"cards" validate:"required,min=1,dive"`
}

type Flashcard struct {
	ID       string `json:"id"`
	Question string `json:"question" validate:"required"`
	Answer   string `json:"answer" validate:"required"`
}

func (Flashcards) Tool() domain.ToolType { return domain.ToolFlashcards }

// Presentation is a slide outline.
type Presentation struct {
	Title  string  `json:"title" validate:"required"`
	Slides []Slide `json:"slides" validate:"required,min=1,dive"`
}

type Slide struct {
	Title   string   `json:"title" validate:"required"`
	Bullets []string `json:"bullets" validate:"required,min=1,dive,required"`
	Notes   string   `json:"notes,omitempty"`
}

func (Presentation) Tool() domain.ToolType { return domain.ToolPresentation }

// ELI5 is a simplified explanation of the document.
type ELI5 struct {
	Title       string   `json:"title" validate:"required"`
	Explanation string   `json:"explanation" validate:"required"`
	Analogies   []string `json:"analogies,omitempty" validate:"omitempty,dive,required"`
}

func (ELI5) Tool() domain.ToolType { return domain.ToolELI5 }

// QA is a set of question/answer pairs grounded in the document.
type QA struct {
	Items []QAItem `json:"items" validate:"required,min=1,dive"`
}

type QAItem struct {
	Question string `json:"question" validate:"required"`
	Answer   string `json:"answer" validate:"required"`
	Source   string `json:"source,omitempty"`
}

func (QA) Tool() domain.ToolType { return domain.ToolQA }

// Video is a narrated video script.
type Video struct {
	Title   string  `json:"title" validate:"required"`
	Summary string  `json:"summary" validate:"required"`
	Scenes  []Scene `json:"scenes" validate:"required,min=1,dive"`
}

type Scene struct {
	Heading         string   `json:"heading" validate:"required"`
	Narration       string   `json:"narration" validate:"required"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty" validate:"omitempty,gte=0"`
}

func (Video) Tool() domain.ToolType { return domain.ToolVideo }

// newArtifact returns a pointer to the zero schema value for tool.
func newArtifact(tool domain.ToolType) (any, bool) {
	switch tool {
	case domain.ToolMindMap:
		return &MindMap{}, true
	case domain.ToolFlashcards:
		return &Flashcards{}, true
	case domain.ToolPresentation:
		return &Presentation{}, true
	case domain.ToolELI5:
		return &ELI5{}, true
	case domain.ToolQA:
		return &QA{}, true
	case domain.ToolVideo:
		return &Video{}, true
	default:
		return nil, false
	}
}

// deref converts the decoded pointer into its value form so that artifacts
// compare and marshal consistently.
func deref(v any) domain.Artifact {
	switch a := v.(type) {
	case *MindMap:
		return *a
	case *Flashcards:
		return *a
	case *Presentation:
		return *a
	case *ELI5:
		return *a
	case *QA:
		return *a
	case *Video:
		return *a
	default:
		return nil
	}
}
