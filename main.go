package main

import "github.com/kozaktomas/attendai/cmd"

func main() {
	cmd.Execute()
}
