// Package card defines the card definitions a memory game is dealt from and
// loads them from JSON or TOML sources.
package card

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Definition is one unique card face. Name is the matching key; Image is an
// asset reference (path or URI) used by renderers that can show pictures.
type Definition struct {
	Name  string `json:"name" toml:"name" validate:"required"`
	Image string `json:"image" toml:"image" validate:"required"`
}

// String returns the card name
func (d Definition) String() string {
	return d.Name
}

// ValidationError lists every problem found in a set of definitions
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid card definitions: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid card definitions: %d problems: %s",
		len(e.Problems), strings.Join(e.Problems, "; "))
}

var validate = validator.New()

// Validate checks that every definition has a name and an image and that no
// two definitions share a name. It reports all problems at once.
func Validate(defs []Definition) error {
	var problems []string
	seen := make(map[string]int, len(defs))

	for i, def := range defs {
		if err := validate.Struct(def); err != nil {
			var fieldErrs validator.ValidationErrors
			if errors.As(err, &fieldErrs) {
				for _, fe := range fieldErrs {
					problems = append(problems, fmt.Sprintf("card %d: %s is %s", i, strings.ToLower(fe.Field()), fe.Tag()))
				}
			} else {
				problems = append(problems, fmt.Sprintf("card %d: %v", i, err))
			}
		}

		if def.Name == "" {
			continue
		}
		if first, ok := seen[def.Name]; ok {
			problems = append(problems, fmt.Sprintf("card %d: duplicate name %q (first seen at card %d)", i, def.Name, first))
			continue
		}
		seen[def.Name] = i
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
