package commands

import (
	"fmt"
	"io"

	"github.com/ums-math/ums-site/internal/app"
	"go.uber.org/zap"
)

// ImportEvents converts the legacy lecture pages in dir into events JSON files
// in outDir ("" = dir) and prints a summary to out.
func ImportEvents(dir, outDir string, out io.Writer, log *zap.Logger) error {
	if outDir == "" {
		outDir = dir
	}

	results, err := app.ImportEventsDir(dir, outDir, log)
	if err != nil {
		return err
	}

	for _, r := range results {
		fmt.Fprintf(out, "  Created %s with %d events\n", r.Output, r.Events)
	}
	fmt.Fprintf(out, "Processing complete! Created %d JSON files.\n", len(results))
	return nil
}
