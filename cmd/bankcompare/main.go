package main

import "bankcompare/internal/cli"

func main() {
	cli.Execute()
}
