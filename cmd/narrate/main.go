package main

import "github.com/forPelevin/narrate/internal/cli"

func main() { cli.Main() }
