package main

import (
	"github.com/MeKo-Tech/platen/cmd/platen/cmd"
)

func main() {
	cmd.Execute()
}
