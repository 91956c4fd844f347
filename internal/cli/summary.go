package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/pbx/internal/dispatch"
	"github.com/dmitrijs2005/pbx/internal/upload"
)

func (a *App) printSummary(params []upload.Params, results []dispatch.Result, elapsed time.Duration) {
	var ok, failed, skipped int
	for _, r := range results {
		switch {
		case r.OK:
			ok++
		case r.NotAttempted:
			skipped++
		default:
			failed++
		}
	}

	line := fmt.Sprintf("Uploaded %d of %d documents in %s", ok, len(results), elapsed.Round(time.Millisecond))
	if ok == len(results) {
		fmt.Fprintln(a.stdout, green(line))
		return
	}
	fmt.Fprintln(a.stdout, bold(line))

	for i, r := range results {
		switch {
		case r.OK:
			continue
		case r.NotAttempted:
			fmt.Fprintf(a.stdout, "  %s %s: %s\n", yellow("NOT ATTEMPTED"), params[i].Path, r.Describe())
		default:
			fmt.Fprintf(a.stdout, "  %s %s: %s\n", red("FAILED"), params[i].Path, r.Describe())
		}
	}
	fmt.Fprintf(a.stdout, "%d failed, %d not attempted\n", failed, skipped)
}

func (a *App) runHistory(ctx context.Context, limit int) error {
	jr := a.openJournal(ctx)
	if jr == nil {
		return fmt.Errorf("cannot open journal %s", a.cfg.JournalPath)
	}
	defer jr.Close()

	runs, err := jr.Repo.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(a.stdout, "No uploads recorded yet")
		return nil
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tTARGET\tTOTAL\tFAILED\tPATTERN\tRUN")
	for _, r := range runs {
		failed := fmt.Sprint(r.Failed)
		if !r.Finished() {
			failed = "?"
		}
		target := r.Target
		if target == "" {
			target = "(per document)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			r.StartedAt.Local().Format(time.DateTime), target, r.Total, failed, r.Pattern, r.ID)
	}
	return tw.Flush()
}
