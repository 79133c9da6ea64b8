// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"slices"
	"strings"
)

// LabelPath returns the labels from the outermost parent down to r.
func LabelPath(r Runnable) []string {
	if r == nil {
		return nil
	}

	var labels []string

	for cur := r; cur != nil; cur = cur.GetParent() {
		labels = append(labels, cur.GetLabel())
	}

	slices.Reverse(labels)

	return labels
}

// FullLabel returns the full label of a Runnable, including its parent labels.
func FullLabel(r Runnable) string {
	if r == nil {
		return "Unknown"
	}

	return strings.Join(LabelPath(r), " > ")
}
