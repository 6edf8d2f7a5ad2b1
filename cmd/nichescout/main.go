// Package main is the entry point for the nichescout CLI.
package main

import "nichescout/cmd"

func main() {
	cmd.Execute()
}
