// Filename: main.go
package main

import (
	"github.com/xkilldash9x/ghosttype-cli/cmd"
)

// main hands control to the root command, which owns configuration, logging
// and execution.
func main() {
	cmd.Execute()
}
