// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package ctxlog carries a *slog.Logger in a context.Context.
// The level is shared through LevelVar and initialised from the SYSBATCH_LOG_LEVEL
// environment variable ("DEBUG", "INFO", "WARN" or "ERROR", default "INFO").
package ctxlog
