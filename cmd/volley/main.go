package main

import "volley/cmd"

func main() {
	cmd.Execute()
}
