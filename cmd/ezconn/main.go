// cmd/ezconn/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/nhath/ezconn/internal/cli"
	"github.com/nhath/ezconn/internal/db"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()

	if err != nil {
		// Translated database errors were already reported by the command
		if _, ok := db.AsError(err); !ok {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(cli.ExitCode(err))
	}
}
