package main

import "docsqa/internal/cli"

func main() {
	cli.Execute()
}
