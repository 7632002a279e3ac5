package main

import "github.com/edgeflare/replica/cmd/replica"

func main() {
	replica.Main()
}
