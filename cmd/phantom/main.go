package main

import "github.com/jmcleod/phantom/cmd/phantom/cmd"

func main() {
	cmd.Execute()
}
