package main

import "quizdeck/internal/cli"

func main() {
	cli.Execute()
}
