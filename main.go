package main

import "github.com/nekruzvatanshoev/carstore/pkg/cmd"

func main() {
	cmd.Execute()
}
