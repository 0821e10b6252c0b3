// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// x10gate - X10 Controller Gateway
//
// A daemon and CLI toolkit that bridges CM15A/CM19A X10 controllers to
// line-oriented TCP clients and MQTT.

package main

import (
	"os"

	"github.com/Thermoquad/x10gate/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
