package main

import (
	"github.com/galleryspace/relay/internal/cli"
)

func main() {
	cli.Execute()
}
