package main

import "github.com/rcsgugs/gugs-db/internal/cli"

var version = "dev"

func main() {
	cli.Version = version
	cli.Execute()
}
