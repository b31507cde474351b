package main

import "github.com/OpenTraceLab/OpenTraceTAI/cmd/tai/cmd"

func main() {
	cmd.Execute()
}
