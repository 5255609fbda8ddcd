// Package validation runs explicit field validators and collects every
// failure before reporting, followed by a cross-field stage.
package validation

import (
	"errors"
	"strings"

	"github.com/example/couture/internal/apperr"
)

// Rule checks one aspect of a field. A nil return means the rule passed.
type Rule func() error

// Messages is an error carrying several messages for the same field.
type Messages []string

func (m Messages) Error() string {
	return strings.Join(m, "; ")
}

type fieldStep struct {
	name  string
	rules []Rule
}

// Pipeline holds ordered field rules and cross-field rules.
//
// Every field is validated even when an earlier field failed. Within a field
// the rules run in order and stop at the first failure. Cross-field rules run
// only once all fields are valid.
type Pipeline struct {
	fields []fieldStep
	cross  []fieldStep
}

// New returns an empty pipeline.
func New() *Pipeline {
	return &Pipeline{}
}

// Field appends rules for a named field.
func (p *Pipeline) Field(name string, rules ...Rule) *Pipeline {
	p.fields = append(p.fields, fieldStep{name: name, rules: rules})
	return p
}

// Cross appends a cross-field rule reported under name.
func (p *Pipeline) Cross(name string, rule Rule) *Pipeline {
	p.cross = append(p.cross, fieldStep{name: name, rules: []Rule{rule}})
	return p
}

// Run executes the pipeline and returns the collected errors.
func (p *Pipeline) Run() apperr.FieldErrors {
	errs := apperr.FieldErrors{}
	runSteps(p.fields, errs)
	if errs.Empty() {
		runSteps(p.cross, errs)
	}
	return errs
}

// Validate runs the pipeline and wraps failures in a validation error.
func (p *Pipeline) Validate() error {
	if errs := p.Run(); !errs.Empty() {
		return apperr.Validation(errs)
	}
	return nil
}

func runSteps(steps []fieldStep, errs apperr.FieldErrors) {
	for _, step := range steps {
		for _, rule := range step.rules {
			err := rule()
			if err == nil {
				continue
			}
			var msgs Messages
			if errors.As(err, &msgs) {
				for _, m := range msgs {
					errs.Add(step.name, m)
				}
			} else {
				errs.Add(step.name, err.Error())
			}
			break
		}
	}
}
