package main

import "brz/cmd"

func main() {
	cmd.Execute()
}
