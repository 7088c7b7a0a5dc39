package main

import "github.com/notargets/gocitcom/cmd"

func main() {
	cmd.Execute()
}
