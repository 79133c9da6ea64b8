// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/matt-FFFFFF/sysbatch/internal/config"
	"github.com/matt-FFFFFF/sysbatch/internal/runbatch"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

var testVars = config.Vars{
	DataRepo:   "/data",
	CodeRepo:   "/code",
	OutputBase: "/out",
}

const binningHCL = `
workers = 2
radii   = [2, 3, 4, 5]

task {
  command  = "task ${name} ${option} ${radius}"
  log_file = format("logunfolding_R%02d.log", radius)
}

post_process "plot" {
  command  = "post ${name} ${option} plot"
  log_file = "logplotting.log"
}

post_process "sort" {
  command  = "post ${name} ${option} sort"
  log_file = "logsorting.log"
}

testcase "binning" {
  executable = "${coderepo}/run_${name}.C"
  options    = ["option1", "option2"]
}
`

const inputsHCL = `
workers  = 3
radii    = [2, 3, 4]
triggers = ["INT7", "EJ1"]

task {
  command  = "task ${name} ${option} ${radius} ${trigger} ${inputs.data}"
  log_file = format("logunfolding_R%02d_%s.log", radius, trigger)

  input "data" {
    path = "${datarepo}/R${format("%02d", radius)}_${trigger}.root"
  }
}

testcase "priors" {
  executable = "${coderepo}/run_${name}.C"
  options    = ["default"]
}
`

// tb is satisfied by both *testing.T and *rapid.T.
type tb interface {
	require.TestingT
	Helper()
}

func mustDefinition(t tb, src string) *config.Definition {
	t.Helper()

	def, err := config.ParseHCL(context.Background(), []byte(src), "test.hcl", testVars)
	require.NoError(t, err)

	return def
}

// writeExecutables creates every test case executable so the artifact check passes.
func writeExecutables(t tb, fs afero.Fs, def *config.Definition) {
	t.Helper()

	for _, tc := range def.TestCases {
		require.NoError(t, afero.WriteFile(fs, tc.Executable, []byte("void run() {}"), 0o644))
	}
}

// call is one command creation seen by the recorder.
type call struct {
	label   string
	command string
	logFile string
}

// recorder is a CommandFactory whose commands append their command line to a shared log when run.
type recorder struct {
	mu      sync.Mutex
	created []call
	ran     []string
	fail    func(commandLine string) bool
}

func (r *recorder) factory(_ context.Context, base *runbatch.BaseCommand, commandLine, logFile string) (runbatch.Runnable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.created = append(r.created, call{label: base.Label, command: commandLine, logFile: logFile})

	return &recordedCmd{BaseCommand: base, rec: r, commandLine: commandLine}, nil
}

func (r *recorder) ranWithPrefix(prefix string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string

	for _, s := range r.ran {
		if strings.HasPrefix(s, prefix) {
			out = append(out, s)
		}
	}

	return out
}

type recordedCmd struct {
	*runbatch.BaseCommand
	rec         *recorder
	commandLine string
}

func (c *recordedCmd) Run(_ context.Context) runbatch.Results {
	c.rec.mu.Lock()
	c.rec.ran = append(c.rec.ran, c.commandLine)
	failed := c.rec.fail != nil && c.rec.fail(c.commandLine)
	c.rec.mu.Unlock()

	res := &runbatch.Result{Label: c.Label, Status: runbatch.ResultStatusSuccess}
	if failed {
		res.Status = runbatch.ResultStatusError
		res.ExitCode = 1
		res.Error = fmt.Errorf("%s failed", c.Label)
	}

	return runbatch.Results{res}
}
