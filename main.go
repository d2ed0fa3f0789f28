// Package main is the entry point for the fgframes CLI tool, which turns
// symbolic fighting-game frame timelines into frame-advantage metrics and
// coaching insights.
package main

import "github.com/pable/fgframes/cmd"

func main() {
	cmd.Execute()
}
