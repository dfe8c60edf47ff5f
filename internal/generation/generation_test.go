package generation_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/studytools/internal/artifact"
	"github.com/phrazzld/studytools/internal/domain"
	"github.com/phrazzld/studytools/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptBuilderIsDeterministicPerTool(t *testing.T) {
	t.Parallel()

	b, err := generation.NewPromptBuilder(0)
	require.NoError(t, err)
	doc := &domain.Document{ID: uuid.New(), Title: "Photosynthesis", Content: "Plants convert light into chemical energy."}

	seen := map[string]domain.ToolType{}
	for _, tool := range domain.ToolTypes() {
		first, err := b.Build(tool, doc)
		require.NoError(t, err, tool)
		second, err := b.Build(tool, doc)
		require.NoError(t, err)

		assert.Equal(t, first, second, "same inputs give the same prompt")
		assert.Equal(t, tool, first.ToolType)
		assert.Contains(t, first.Prompt, "Photosynthesis")
		assert.Contains(t, first.Prompt, "Plants convert light")
		assert.Contains(t, first.Prompt, "single JSON object")

		prev, dup := seen[first.Prompt]
		assert.False(t, dup, "%s prompt duplicates %s", tool, prev)
		seen[first.Prompt] = tool
	}
}

func TestPromptBuilderTruncatesLongDocuments(t *testing.T) {
	t.Parallel()

	b, err := generation.NewPromptBuilder(10)
	require.NoError(t, err)
	doc := &domain.Document{Title: "Long", Content: strings.Repeat("é", 50)}

	req, err := b.Build(domain.ToolQA, doc)
	require.NoError(t, err)
	assert.Contains(t, req.Prompt, strings.Repeat("é", 10)+"\n")
	assert.NotContains(t, req.Prompt, strings.Repeat("é", 11))
	assert.Contains(t, req.Prompt, "truncated")
}

func TestPromptBuilderRejectsUnknownTool(t *testing.T) {
	t.Parallel()

	b, err := generation.NewPromptBuilder(0)
	require.NoError(t, err)
	_, err = b.Build(domain.ToolType("podcast"), &domain.Document{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSampleGeneratorOutputValidates(t *testing.T) {
	t.Parallel()

	for _, tool := range domain.ToolTypes() {
		out, err := generation.SampleGenerator{}.Generate(context.Background(),
			generation.Request{ToolType: tool, DocumentTitle: "Biology 101"})
		require.NoError(t, err, tool)

		a, err := artifact.Validate(tool, out)
		require.NoError(t, err, tool)
		assert.Equal(t, tool, a.Tool())
	}

	deck, err := generation.SampleGenerator{}.Generate(context.Background(),
		generation.Request{ToolType: domain.ToolFlashcards, DocumentTitle: "Biology 101"})
	require.NoError(t, err)
	a, err := artifact.Validate(domain.ToolFlashcards, deck)
	require.NoError(t, err)
	assert.Len(t, a.(artifact.Flashcards).Cards, 3)
}

func TestGenerationErrorsAreUpstream(t *testing.T) {
	t.Parallel()

	for _, err := range []error{
		generation.ErrGenerationFailed,
		generation.ErrEmptyResponse,
		generation.ErrContentBlocked,
		generation.ErrTransientFailure,
		generation.ErrTimeout,
	} {
		assert.Equal(t, domain.KindUpstream, domain.KindOf(err), err.Error())
	}
}
