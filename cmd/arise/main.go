package main

import "github.com/crach-ad/crachToDo/cmd/arise/root"

func main() {
	root.Execute()
}
