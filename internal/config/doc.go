// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package config loads run definitions.
//
// A run definition lists the test cases of a systematics study together with
// the variation domain (jet radii and triggers), the task command template run
// for every variation point and the post-processing steps run after each batch.
// Definitions are written in HCL or YAML. String values are HCL templates
// evaluated with go-cty variables, e.g.
//
//	command  = "root -l -b -q '${executable}(${format("%f", radius_fraction)}, \"${option}\", \"${datarepo}\")'"
//	log_file = format("logunfolding_R%02d.log", radius)
package config
