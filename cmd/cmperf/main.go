// Command cmperf measures the mixing kernels and the arithmetic coder on the
// running machine and checks that every kernel variant agrees with the
// scalar reference.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/sbl8/ctxmix/kernels"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "cmperf",
		Short:        "Kernel and coder performance analysis",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "ctxmix performance analysis\n")
			fmt.Fprintf(w, "===========================\n")
			fmt.Fprintf(w, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(w, "OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
			fmt.Fprintf(w, "CPUs:       %d\n", runtime.NumCPU())
			fmt.Fprintf(w, "Best:       %s\n\n", kernels.Best())
		},
	}
	root.AddCommand(newBenchCmd(), newVerifyCmd())
	return root
}
