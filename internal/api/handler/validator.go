package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/ibtissamelhani/induspress/internal/core/workflow"
)

// echoValidator lets handlers call c.Validate(req) with the same rules and
// messages the workflow applies to drafts.
type echoValidator struct {
	v *validator.Validate
}

func NewValidator() *echoValidator {
	return &echoValidator{v: workflow.NewValidator()}
}

func (ev *echoValidator) Validate(i any) error {
	err := ev.v.Struct(i)
	if err == nil {
		return nil
	}
	if msg, ok := workflow.Describe(err); ok {
		return errors.New(msg)
	}
	return err
}
