package main

import "github.com/polyxo/gridctl/cmd"

func main() {
	cmd.Execute()
}
