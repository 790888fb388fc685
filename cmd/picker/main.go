package main

import (
	"os"

	"github.com/wonny/aegis-picker/cmd/picker/commands"
)

// main is the entry point for the picker CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/picker [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
