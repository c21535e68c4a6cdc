package main

import "github.com/brogergvhs/pagekit/cmd"

func main() {
	cmd.Execute()
}
