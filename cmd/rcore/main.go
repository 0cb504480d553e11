package main

import "github.com/funvibe/rcore/pkg/cli"

func main() {
	cli.Main()
}
