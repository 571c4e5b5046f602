package main

import (
	"fmt"
	"os"
)

// Version information
const (
	Version = "0.1.0"
	Name    = "RowBridge-Engine"
)

func main() {
	fmt.Printf("%s v%s\n", Name, Version)
	fmt.Println("Arrow row to BSON document conversion engine")
	fmt.Println("Status: Development")
	os.Exit(0)
}
