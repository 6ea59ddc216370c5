package main

import "lab-agent/cmd"

func main() {
	cmd.Execute()
}
