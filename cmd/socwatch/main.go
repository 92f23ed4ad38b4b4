package main

import "github.com/ppiankov/socwatch/internal/cli"

func main() {
	cli.Execute()
}
