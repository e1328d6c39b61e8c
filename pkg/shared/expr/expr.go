/*
Copyright 2022 The Numaproj Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package expr evaluates user supplied expressions against the fields of a tuple. Dotted field
// names are expanded into nested maps, so {"reading.value": 3} is addressed as reading.value.
package expr

import (
	"fmt"

	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"
	lru "github.com/hashicorp/golang-lru/v2"
)

// programCacheSize bounds the programs kept by EvalBool.
const programCacheSize = 256

var programs, _ = lru.New[string, *Program](programCacheSize)

// Program is a compiled expression, safe for concurrent use.
type Program struct {
	expression string
	program    *vm.Program
}

// Compile compiles expression. Fields are resolved at run time.
func Compile(expression string) (*Program, error) {
	program, err := expr.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("unable to compile expression '%s': %w", expression, err)
	}
	return &Program{expression: expression, program: program}, nil
}

// CompileBool compiles an expression that must evaluate to a bool.
func CompileBool(expression string) (*Program, error) {
	program, err := expr.Compile(expression, expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("unable to compile expression '%s': %w", expression, err)
	}
	return &Program{expression: expression, program: program}, nil
}

func (p *Program) String() string {
	return p.expression
}

func (p *Program) run(fields map[string]interface{}) (interface{}, error) {
	out, err := expr.Run(p.program, getFuncMap(fields))
	if err != nil {
		return nil, fmt.Errorf("unable to evaluate expression '%s': %w", p.expression, err)
	}
	return out, nil
}

// EvalBool runs the program and casts the result to a bool.
func (p *Program) EvalBool(fields map[string]interface{}) (bool, error) {
	out, err := p.run(fields)
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("unable to cast expression result '%v' to bool", out)
	}
	return b, nil
}

// Render runs the program and formats the result as a string.
func (p *Program) Render(fields map[string]interface{}) (string, error) {
	out, err := p.run(fields)
	if err != nil {
		return "", err
	}
	return _string(out), nil
}

// EvalBool evaluates expression, reusing the compiled program of recently seen expressions.
func EvalBool(expression string, fields map[string]interface{}) (bool, error) {
	p, ok := programs.Get(expression)
	if !ok {
		var err error
		if p, err = CompileBool(expression); err != nil {
			return false, err
		}
		programs.Add(expression, p)
	}
	return p.EvalBool(fields)
}
