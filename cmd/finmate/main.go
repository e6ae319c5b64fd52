package main

import "github.com/finmate-app/finmate/internal/cli"

func main() {
	cli.Execute()
}
