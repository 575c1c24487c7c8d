package schema

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// checkEnv is the environment attribute check expressions are evaluated in.
type checkEnv struct {
	Tag   string `expr:"tag"`
	Attr  string `expr:"attr"`
	Value string `expr:"value"`
}

// Attr is a declared attribute. An attribute may carry a check expression
// that its value has to satisfy, e.g. `value matches "^[0-9]+%?$"`.
type Attr struct {
	Name  string
	Check string

	program *vm.Program
}

func (a *Attr) compile(tag, src string) error {
	program, err := expr.Compile(src, expr.Env(checkEnv{}), expr.AsBool())
	if err != nil {
		return fmt.Errorf("compile check for %s/%s: %w", tag, a.Name, err)
	}
	a.Check = src
	a.program = program
	return nil
}

// Allows reports whether val is an acceptable value of the attribute on tag.
// A check that fails to evaluate rejects the value.
func (a *Attr) Allows(tag, val string) bool {
	if a.program == nil {
		return true
	}
	out, err := expr.Run(a.program, checkEnv{Tag: tag, Attr: a.Name, Value: val})
	if err != nil {
		return false
	}
	ok, _ := out.(bool)
	return ok
}
