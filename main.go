package main

import "go-soilsync/cli"

func main() {
	cli.Execute()
}
