package main

import "github.com/DrSkyle/netscope/cmd/netscope/commands"

func main() {
	commands.Execute()
}
