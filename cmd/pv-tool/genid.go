// SPDX-FileCopyrightText: 2026 Rob Cohen
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"os"

	"github.com/robcohen/peervault/pkg/identity"
)

// generateIdentity for the "genid" CLI option.
func generateIdentity(args []string) {
	if len(args) != 1 {
		printUsage()
	}

	path := args[0]
	if _, err := os.Stat(path); err == nil {
		printFatal(fmt.Errorf("%s already exists", path), "Refusing to overwrite identity")
	}

	id, err := identity.New()
	if err != nil {
		printFatal(err, "Generating identity errored")
	}

	if err := os.WriteFile(path, id.Seed(), 0600); err != nil {
		printFatal(err, "Writing identity file errored")
	}

	fmt.Println(id.NodeID())
}
