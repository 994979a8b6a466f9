// Package main is the entry point for the wpmcp server.
package main

import (
	"github.com/presslocal/wpmcp/internal/cmd"
)

func main() {
	cmd.Execute()
}
