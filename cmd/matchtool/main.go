package main

import "github.com/PatrickWalther/wordle-timer-go/cmd/matchtool/root"

func main() {
	root.Execute()
}
