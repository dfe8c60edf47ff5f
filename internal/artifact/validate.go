package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/studytools/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// normalizer is implemented by schemas that clean up decoded values before
// validation (trimming whitespace, assigning defaults).
type normalizer interface {
	normalize()
}

// checker is implemented by schemas with rules that span fields.
type checker interface {
	check() error
}

// Validate turns raw generated output into the typed artifact for tool, or
// returns an error wrapping domain.ErrParse. Surrounding prose and Markdown
// code fences are tolerated; the payload itself must be a single JSON object.
// Validate performs no I/O.
func Validate(tool domain.ToolType, raw string) (domain.Artifact, error) {
	target, ok := newArtifact(tool)
	if !ok {
		return nil, fmt.Errorf("%w: unrecognized tool type %q", domain.ErrValidation, tool)
	}

	obj, err := extractObject(raw)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(obj, target); err != nil {
		return nil, fmt.Errorf("%w: %s: %s", domain.ErrParse, tool, describeJSONError(err))
	}

	if n, ok := target.(normalizer); ok {
		n.normalize()
	}
	if err := validate.Struct(target); err != nil {
		return nil, fmt.Errorf("%w: %s: %s", domain.ErrParse, tool, describeValidationError(err))
	}
	if c, ok := target.(checker); ok {
		if err := c.check(); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrParse, tool, err)
		}
	}

	return deref(target), nil
}

// Decode re-hydrates an artifact previously produced by Validate and
// persisted as JSON. It does not re-run schema validation.
func Decode(tool domain.ToolType, data []byte) (domain.Artifact, error) {
	target, ok := newArtifact(tool)
	if !ok {
		return nil, fmt.Errorf("%w: unrecognized tool type %q", domain.ErrValidation, tool)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return nil, fmt.Errorf("decode %s artifact: %w", tool, err)
	}
	return deref(target), nil
}

// DecodeResult rebuilds a task result from its stored JSON form. Non-terminal
// statuses and empty payloads yield a nil result.
func DecodeResult(tool domain.ToolType, status domain.TaskStatus, data []byte) (*domain.Result, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	switch status {
	case domain.TaskStatusCompleted:
		a, err := Decode(tool, data)
		if err != nil {
			return nil, err
		}
		return domain.CompletedResult(a), nil
	case domain.TaskStatusFailed:
		var f domain.Failure
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("decode failure result: %w", err)
		}
		return domain.FailedResult(&f), nil
	default:
		return nil, nil
	}
}

func extractObject(raw string) ([]byte, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, fmt.Errorf("%w: empty output", domain.ErrParse)
	}

	obj := strings.IndexByte(s, '{')
	arr := strings.IndexByte(s, '[')
	if obj < 0 {
		return nil, fmt.Errorf("%w: no JSON object in output", domain.ErrParse)
	}
	if arr >= 0 && arr < obj {
		return nil, fmt.Errorf("%w: expected a JSON object, got an array", domain.ErrParse)
	}

	end := strings.LastIndexByte(s, '}')
	if end < obj {
		return nil, fmt.Errorf("%w: unterminated JSON object", domain.ErrParse)
	}
	return []byte(s[obj : end+1]), nil
}

func describeJSONError(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		if typeErr.Field != "" {
			return fmt.Sprintf("field %s must be %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value)
		}
		return fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value)
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset)
	}
	return err.Error()
}

func describeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s needs at least %s entries", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s %s", field, fe.Tag(), fe.Param()))
		}
	}
	return strings.Join(msgs, "; ")
}
