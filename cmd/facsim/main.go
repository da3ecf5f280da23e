package main

import "github.com/andrescamacho/facsim-go/internal/adapters/cli"

func main() {
	cli.Execute()
}
