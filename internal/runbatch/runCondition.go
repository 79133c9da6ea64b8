// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"errors"
	"fmt"
)

// RunCondition defines when a command runs based on the result of the previous command in a serial batch.
type RunCondition int

const (
	// RunOnSuccess means the command runs only if the previous command succeeded.
	RunOnSuccess RunCondition = iota
	// RunOnError means the command runs only if the previous command failed.
	RunOnError
	// RunOnAlways means the command always runs regardless of the previous command's result.
	RunOnAlways
	// RunOnExitCodes means the command runs only if the previous exit code is one of RunsOnExitCodes.
	RunOnExitCodes
)

const (
	runOnSuccessStr = "success"
	runOnErrorStr   = "error"
	runOnAlwaysStr  = "always"
	runOnExitCodes  = "exit-codes"
	runOnUnknownStr = "unknown"
)

// ErrRunConditionUnknown is returned when an unknown RunCondition value is encountered.
var ErrRunConditionUnknown = errors.New("unknown run condition, expected success, error, always or exit-codes")

// String returns the string representation of the RunCondition.
func (r RunCondition) String() string {
	switch r {
	case RunOnSuccess:
		return runOnSuccessStr
	case RunOnError:
		return runOnErrorStr
	case RunOnAlways:
		return runOnAlwaysStr
	case RunOnExitCodes:
		return runOnExitCodes
	default:
		return runOnUnknownStr
	}
}

// NewRunCondition creates a RunCondition from a string.
func NewRunCondition(s string) (RunCondition, error) {
	switch s {
	case runOnSuccessStr:
		return RunOnSuccess, nil
	case runOnErrorStr:
		return RunOnError, nil
	case runOnAlwaysStr:
		return RunOnAlways, nil
	case runOnExitCodes:
		return RunOnExitCodes, nil
	default:
		return RunCondition(-1), fmt.Errorf("%w: %q", ErrRunConditionUnknown, s)
	}
}
