package main

import "github.com/ogulcanaydogan/bullfrog/internal/cli"

func main() {
	cli.Execute()
}
