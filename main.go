// Public domain.

package main

import "github.com/soniakeys/grbpost/internal/grbprog"

func main() {
	grbprog.Main()
}
