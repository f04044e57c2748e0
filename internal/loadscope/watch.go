package loadscope

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/loadscope/loadscope/internal/common/scopecontext"
	"github.com/loadscope/loadscope/internal/loadscope/aggregator"
	"github.com/loadscope/loadscope/internal/loadscope/status"
)

// Watch polls the results service and prints a summary of the current window every watch.refresh until
// ctx is cancelled.
func (a *App) Watch(ctx *scopecontext.Context) error {
	config := a.Params.Config
	s, err := a.newSession(config)
	if err != nil {
		return err
	}
	stop := s.startPolling(ctx, a.Registry, config.Poll.Interval)
	defer stop()

	ticker := a.Clock.NewTicker(config.Watch.Refresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			renderWindow(a.Out, s.aggregator.Window(s.zoom.Duration()), s.board.Status())
		}
	}
}

func renderWindow(out io.Writer, window aggregator.Window, boardStatus status.Status) {
	if window.NowMs == 0 {
		fmt.Fprintf(out, "Waiting for results (window %s)\n", time.Duration(window.WindowDurationMs)*time.Millisecond)
	} else {
		fmt.Fprintf(out, "Window of %s ending %s\n",
			time.Duration(window.WindowDurationMs)*time.Millisecond,
			time.UnixMilli(window.NowMs).UTC().Format(time.RFC3339))
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Series", "Points", "Avg (ms)", "Min (ms)", "Max (ms)", "Succeeded", "Failed", "Ops/s"})
	for _, summary := range window.Summaries() {
		table.Append([]string{
			summary.DisplayName,
			strconv.Itoa(summary.Points),
			formatLatency(summary.AvgLatency, summary.Points),
			formatLatency(summary.MinLatency, summary.Points),
			formatLatency(summary.MaxLatency, summary.Points),
			strconv.FormatInt(summary.Succeeded, 10),
			strconv.FormatInt(summary.Failed, 10),
			strconv.FormatFloat(summary.Throughput, 'f', 1, 64),
		})
	}
	table.Render()

	if boardStatus.Transport.Failing {
		fmt.Fprintf(out, "Results service unreachable: %s\n", boardStatus.Transport.Message)
	}
}

func formatLatency(latency float64, points int) string {
	if points == 0 {
		return "-"
	}
	return strconv.FormatFloat(latency, 'f', 2, 64)
}
