package main

import (
	"log/slog"

	"elfstat/internal/elfstat/cmd"
	"elfstat/internal/elfstat/log"
)

func main() {
	defer log.RecoverPanic("main", func() {
		slog.Error("Application terminated due to unhandled panic")
	})

	cmd.Execute()
}
