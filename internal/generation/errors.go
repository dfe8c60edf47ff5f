package generation

import (
	"fmt"

	"github.com/phrazzld/studytools/internal/domain"
)

// Common errors returned by the generation package. All of them classify as
// domain.ErrUpstream.
var (
	// ErrGenerationFailed is returned when generation fails for any general reason
	ErrGenerationFailed = fmt.Errorf("%w: generation failed", domain.ErrUpstream)

	// ErrEmptyResponse is returned when the backend answers without any text
	ErrEmptyResponse = fmt.Errorf("%w: empty response from language model", domain.ErrUpstream)

	// ErrContentBlocked is returned when the backend blocks the content due to safety filters
	ErrContentBlocked = fmt.Errorf("%w: content blocked by language model safety filters", domain.ErrUpstream)

	// ErrTransientFailure is returned for temporary errors that might resolve on retry
	ErrTransientFailure = fmt.Errorf("%w: transient error during generation", domain.ErrUpstream)

	// ErrTimeout is returned when the backend does not answer within the allotted time
	ErrTimeout = fmt.Errorf("%w: generation timed out", domain.ErrUpstream)

	// ErrInvalidConfig is returned when the generator configuration is invalid
	ErrInvalidConfig = fmt.Errorf("%w: invalid generator configuration", domain.ErrUpstream)
)
