// Command omcli runs declarative operation trees as interactive menus or as
// one-shot commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gyaneshwarpardhi/omtree/internal/tui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errOperationFailed) {
			fmt.Fprintln(os.Stderr, tui.Outcome(false, err.Error()))
		}
		stop()
		os.Exit(1)
	}
}
