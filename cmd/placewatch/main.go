package main

import "placewatch/internal/cli"

func main() {
	cli.Execute()
}
