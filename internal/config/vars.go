// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"maps"

	"github.com/matt-FFFFFF/sysbatch/internal/testcase"
	"github.com/zclconf/go-cty/cty"
)

// Template variable names.
const (
	VarDataRepo          = "datarepo"
	VarCodeRepo          = "coderepo"
	VarOutputBase        = "outputbase"
	VarName              = "name"
	VarExecutable        = "executable"
	VarOption            = "option"
	VarWorkDir           = "workdir"
	VarRadius            = "radius"
	VarRadiusFraction    = "radius_fraction"
	VarTrigger           = "trigger"
	VarMCResponseTrigger = "mc_response_trigger"
	VarFlags             = "flags"
	VarInputs            = "inputs"
	VarLogFile           = "logfile"
)

// Vars are the load-time template variables.
type Vars struct {
	DataRepo   string // Absolute path of the data directory
	CodeRepo   string // Absolute path of the directory holding macros and plotting scripts
	OutputBase string // Absolute path under which test case output directories are created
}

// Values returns the variables as cty values.
func (v Vars) Values() map[string]cty.Value {
	return map[string]cty.Value{
		VarDataRepo:   cty.StringVal(v.DataRepo),
		VarCodeRepo:   cty.StringVal(v.CodeRepo),
		VarOutputBase: cty.StringVal(v.OutputBase),
	}
}

// Point identifies one variation point of a batch.
type Point struct {
	Radius  int    // Jet resolution parameter in tenths, e.g. 2 for R=0.2
	Trigger string // Empty when the definition has no triggers
}

// String returns the label of the point, e.g. R02 or R02_INT7.
func (p Point) String() string {
	if p.Trigger == "" {
		return fmt.Sprintf("R%02d", p.Radius)
	}

	return fmt.Sprintf("R%02d_%s", p.Radius, p.Trigger)
}

// BatchVars returns the variables for the post-processing steps of one batch.
func (v Vars) BatchVars(tc testcase.TestCase, option, workDir string) map[string]cty.Value {
	vals := v.Values()
	vals[VarName] = cty.StringVal(tc.Name)
	vals[VarExecutable] = cty.StringVal(tc.Executable)
	vals[VarOption] = cty.StringVal(option)
	vals[VarWorkDir] = cty.StringVal(workDir)
	vals[VarFlags] = stringMap(tc.Flags)

	return vals
}

// PointVars returns the variables for the task templates of one variation point.
// Input paths and the log file are not included.
func (v Vars) PointVars(tc testcase.TestCase, option, workDir string, p Point) map[string]cty.Value {
	vals := v.BatchVars(tc, option, workDir)
	vals[VarRadius] = cty.NumberIntVal(int64(p.Radius))
	vals[VarRadiusFraction] = cty.NumberFloatVal(float64(p.Radius) / 10) //nolint:mnd
	vals[VarTrigger] = cty.StringVal(p.Trigger)
	vals[VarMCResponseTrigger] = cty.BoolVal(tc.MCResponseTrigger)

	return vals
}

func stringMap(m map[string]string) cty.Value {
	if len(m) == 0 {
		return cty.MapValEmpty(cty.String)
	}

	vals := make(map[string]cty.Value, len(m))
	for k, s := range m {
		vals[k] = cty.StringVal(s)
	}

	return cty.MapVal(vals)
}

// objectOf turns rendered input paths into an object so templates can write inputs.data.
func objectOf(paths []NamedPath) cty.Value {
	if len(paths) == 0 {
		return cty.EmptyObjectVal
	}

	vals := make(map[string]cty.Value, len(paths))
	for _, p := range paths {
		vals[p.Name] = cty.StringVal(p.Path)
	}

	return cty.ObjectVal(vals)
}

func withVars(base map[string]cty.Value, extra map[string]cty.Value) map[string]cty.Value {
	out := maps.Clone(base)
	maps.Copy(out, extra)

	return out
}
