package main

import (
	"github.com/mlanghorne/ghactions/internal/cli"
)

func main() {
	cli.Execute()
}
