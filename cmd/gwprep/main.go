// Command gwprep conditions gravitational-wave strain recordings into
// fixed-size training batches.
//
// Usage:
//
//	gwprep [--config file] [--log-level level] <command> [args]
//
// Commands:
//
//	run          condition every recording under root_dir
//	psd          print the Welch PSD of a recording and the whitened result
//	plan         print the segment plan of a recording
//	inspect      summarize a batch artifact
//	report       list runs or show one run from the ledger
//	windows      print spectral properties of the Welch taper windows
//	config show  print the resolved configuration
//
// Examples:
//
//	gwprep run --config gwprep.yaml
//	GWPREP_BATCH_SIZE=500 gwprep run --root-dir /data/O3a --channel H1:GWOSC-4KHZ_R1_STRAIN
//	gwprep psd --channel H1:GWOSC-4KHZ_R1_STRAIN H-H1_GWOSC_4KHZ_R1-1126256640-4096.msgpack
//	gwprep inspect processed_data/waveform_batch_000.npy
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(afero.NewOsFs()).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
