package main

import "github.com/angelospk/subdivx-go/cmd/cli/cmd"

func main() {
	cmd.Execute()
}
