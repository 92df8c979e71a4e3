package main

import "github.com/atikulmunna/geotail/internal/cmd"

func main() {
	cmd.Execute()
}
