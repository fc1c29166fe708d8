package main

import "tunneldeck/internal/cli"

func main() {
	cli.Execute()
}
