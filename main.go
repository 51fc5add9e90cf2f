package main

import "github.com/palisadehq/palisade/cmd"

func main() {
	cmd.Execute()
}
