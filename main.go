package main

import "github.com/robmorgan/metric/cmd"

func main() {
	cmd.Execute()
}
