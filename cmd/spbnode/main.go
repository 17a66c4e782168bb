package main

import "github.com/iotedgekit/go-sparkplugb/internal/cli"

func main() {
	cli.Run()
}
