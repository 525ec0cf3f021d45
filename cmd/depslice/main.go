// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command depslice extracts the dependency subgraph of a JavaScript/Vue project.
//
// Starting from one or more entry files, depslice follows every import,
// require, template asset and stylesheet reference through aliases,
// barrel files and require.context manifests, and reports the minimal file
// set the entries depend on. The set can be copied into a standalone
// project with route components replaced by a mock.
//
// Usage:
//
//	depslice collect src/main.js
//	depslice collect --root ./web --out ./reports src/main.js src/admin.js
//	depslice routes src/main.js
//	depslice extract --target /tmp/slice --mock-routes src/main.js
//	depslice watch src/main.js
//	depslice serve --port 8080
//
// Environment:
//
//	DEPSLICE_ROOT, DEPSLICE_CONFIG, DEPSLICE_LOG_LEVEL, DEPSLICE_NO_COLOR,
//	DEPSLICE_OTEL_STDOUT and DEPSLICE_METRICS_FILE mirror the global flags.
//	A .env file in the working directory is loaded first.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := execute(ctx, os.Args[1:], afero.NewOsFs(), os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
