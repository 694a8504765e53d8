package main

import "github.com/rustyeddy/parity/internal/cli"

func main() {
	cli.Execute()
}
