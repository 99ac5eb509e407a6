package main

import "github.com/andresmejia3/willis/cmd"

func main() {
	cmd.Execute()
}
