package main

import "github.com/postpilot/postpilot/cmd"

func main() {
	cmd.Execute()
}
