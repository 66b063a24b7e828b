// Command cmpack compresses and decompresses files with the context-mixing
// coder.
//
//	cmpack compress notes.txt            # writes notes.txt.cmx
//	cmpack decompress notes.txt.cmx      # writes notes.txt
//	cmpack info notes.txt.cmx
//	cat big.log | cmpack compress > big.log.cmx
//
// compress holds its whole input in memory, stdin included, because the
// container header stores the input's length and CRC ahead of the coded data.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
