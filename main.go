package main

import "handoff/cmd"

func main() {
	cmd.Execute()
}
