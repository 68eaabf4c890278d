// Command vidtube runs the VidTube account backend.
//
// Usage:
//
//	vidtube serve
//	vidtube migrate [up|status]
//	vidtube seed <name>
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/vidtube/backend/internal/app"
)

func main() {
	if err := app.Run(context.Background(), os.Args[1:]); err != nil {
		slog.Error("vidtube exited", "error", err)
		os.Exit(1)
	}
}
