package main

import "github.com/aquasim/appdate-engine/cmd"

func main() {
	cmd.Execute()
}
