// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package profiles holds the built-in run definitions.
package profiles

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/matt-FFFFFF/sysbatch/internal/config"
)

const (
	// Spectrum1D is the 1D jet spectrum systematics profile.
	Spectrum1D = "spectrum1d"
	// ZG is the zg systematics profile.
	ZG = "zg"
	// Default is used when no profile or file is given.
	Default = Spectrum1D

	ext = ".hcl"
)

// ErrUnknownProfile is returned for a profile name that is not built in.
var ErrUnknownProfile = errors.New("unknown profile")

//go:embed *.hcl
var files embed.FS

// Names returns the built-in profile names, sorted.
func Names() []string {
	entries, _ := files.ReadDir(".")
	names := make([]string, 0, len(entries))

	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ext))
	}

	slices.Sort(names)

	return names
}

// Source returns the HCL source of a profile.
func Source(name string) ([]byte, error) {
	src, err := files.ReadFile(path.Join(".", name+ext))
	if err != nil {
		return nil, fmt.Errorf("%w: %q, expected one of %s", ErrUnknownProfile, name, strings.Join(Names(), ", "))
	}

	return src, nil
}

// Load parses a built-in profile.
func Load(ctx context.Context, name string, vars config.Vars) (*config.Definition, error) {
	src, err := Source(name)
	if err != nil {
		return nil, err
	}

	return config.ParseHCL(ctx, src, "profile:"+name+ext, vars)
}
