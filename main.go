package main

import "github.com/khasanovbi/tretyakov-backend/cmd"

func main() {
	cmd.Execute()
}
