package main

import "github.com/modelsync/modelsync/cmd"

func main() {
	cmd.Execute()
}
