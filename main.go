package main

import "github.com/taglens/taglens/cmd"

func main() {
	cmd.Execute()
}
