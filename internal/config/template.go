// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

var (
	// ErrRender is returned when a template cannot be evaluated.
	ErrRender = errors.New("failed to render template")
	// ErrNotAString is returned when a template evaluates to a value that cannot be used as a string.
	ErrNotAString = errors.New("template value is not a string")
)

// Template is a string-valued HCL expression evaluated late, once the variables are known.
type Template struct {
	expr hcl.Expression
	src  string
}

// Functions returns the functions available to templates.
func Functions() map[string]function.Function {
	return map[string]function.Function{
		"format": stdlib.FormatFunc,
		"upper":  stdlib.UpperFunc,
		"lower":  stdlib.LowerFunc,
		"join":   stdlib.JoinFunc,
	}
}

// ParseTemplate parses s in the HCL template language, so "${radius}" interpolates.
func ParseTemplate(s, filename string) (*Template, error) {
	expr, diags := hclsyntax.ParseTemplate([]byte(s), filename, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, diags
	}

	return &Template{expr: expr, src: s}, nil
}

// MustParseTemplate is ParseTemplate for sources known to be valid.
func MustParseTemplate(s string) *Template {
	t, err := ParseTemplate(s, "<inline>")
	if err != nil {
		panic(err)
	}

	return t
}

// templateFromExpr wraps an already parsed attribute. It returns nil for a missing optional attribute.
func templateFromExpr(expr hcl.Expression, file []byte) *Template {
	if expr == nil || isNullExpr(expr) {
		return nil
	}

	return &Template{
		expr: expr,
		src:  strings.TrimSpace(string(expr.Range().SliceBytes(file))),
	}
}

// isNullExpr reports whether expr is the null placeholder gohcl uses for absent optional attributes.
func isNullExpr(expr hcl.Expression) bool {
	if len(expr.Variables()) > 0 {
		return false
	}

	v, diags := expr.Value(nil)

	return !diags.HasErrors() && v.IsNull()
}

// String returns the template source.
func (t *Template) String() string {
	if t == nil {
		return ""
	}

	return t.src
}

// Render evaluates the template. A nil template renders as the empty string.
func (t *Template) Render(vars map[string]cty.Value) (string, error) {
	if t == nil {
		return "", nil
	}

	v, diags := t.expr.Value(evalContext(vars))
	if diags.HasErrors() {
		return "", errors.Join(ErrRender, diags)
	}

	if v.IsNull() {
		return "", nil
	}

	v, err := convert.Convert(v, cty.String)
	if err != nil || !v.IsWhollyKnown() {
		return "", fmt.Errorf("%w: %s: %q", ErrNotAString, t.expr.Range(), t.src)
	}

	return v.AsString(), nil
}

func evalContext(vars map[string]cty.Value) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: vars,
		Functions: Functions(),
	}
}
