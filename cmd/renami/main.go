// Command renami renames files from their content using an LLM.
package main

import "github.com/renami-app/renami/internal/cli"

func main() {
	cli.Execute()
}
