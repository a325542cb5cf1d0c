package registry

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// taskNamePattern mirrors package token's TaskName lexer rule: a
// registered name must be a string the parser could actually produce as
// a TASKNAME token, or it can never be reached from a workflow source.
var taskNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var registryValidator = newRegistryValidator()

func newRegistryValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("taskname", func(fl validator.FieldLevel) bool {
		return taskNamePattern.MatchString(fl.Field().String())
	})
	return v
}

// registeredTask is the struct-tag validation target for Register,
// matching the handler-layer validator.Validate idiom used elsewhere in
// this module (see internal/scheduler/options.go).
type registeredTask struct {
	Name string `validate:"required,max=128,taskname"`
}

// InvalidTaskNameError reports a task name that fails registry shape
// validation in Register.
type InvalidTaskNameError struct {
	Name string
	Err  error
}

func (e *InvalidTaskNameError) Error() string {
	return fmt.Sprintf("registry: invalid task name %q: %v", e.Name, e.Err)
}

func (e *InvalidTaskNameError) Unwrap() error { return e.Err }
