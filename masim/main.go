// Package main is the entry point of the masim command.
package main

import "github.com/sarchlab/masim/masim/cmd"

func main() {
	cmd.Execute()
}
