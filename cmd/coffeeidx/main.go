package main

import "github.com/alucardeht/coffeeidx/internal/cli"

func main() {
	cli.Execute()
}
