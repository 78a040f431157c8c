package main

import "github.com/minhdang/bpagent/internal/cli"

func main() {
	cli.Execute()
}
