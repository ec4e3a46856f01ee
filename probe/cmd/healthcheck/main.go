package main

import (
	"context"

	"github.com/discipl/ipv8-healthcheck/probe/internal/cmd"
)

// Exit 0: both expected peers attested (HEALTHY). Exit 1: anything else.
func main() {
	cmd.Execute(context.Background())
}
