package main

import "github.com/ethan-al/gsqr/cmd"

func main() {
	cmd.Execute()
}
