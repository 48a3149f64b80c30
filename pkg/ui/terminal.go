package ui

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"airgapintel/pkg/models"
)

// ASCII logo for the application
const ASCIILogo = `
    ╔═══════════════════════════════════════════════════════════╗
    ║    _   ___ ___  ___   _   ___   ___ _  _ _____ ___ _      ║
    ║   /_\ |_ _| _ \/ __| /_\ | _ \ |_ _| \| |_   _| __| |     ║
    ║  / _ \ | ||   / (_ |/ _ \|  _/  | || .' | | | | _|| |__   ║
    ║ /_/ \_\___|_|_\\___/_/ \_\_|   |___|_|\_| |_| |___|____|  ║
    ║        MISP FEED COLLECTOR FOR DISCONNECTED NETWORKS       ║
    ╚═══════════════════════════════════════════════════════════╝
`

// NoColor disables ANSI escapes, for output that is not a terminal
var NoColor = false

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		if NoColor {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

// PrintLogo prints the ASCII logo with color
func PrintLogo() {
	fmt.Print(Cyan(ASCIILogo))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(os.Stderr, Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(os.Stderr, Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Println(Green(msg))
}

// PrintInfo prints an info message in cyan
func PrintInfo(label string, value string) {
	fmt.Printf("%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Println(Yellow(msg + ": " + fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Println(Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	fmt.Println(Magenta(msg))
}

// PrintSummary prints the end-of-run report to stdout
func PrintSummary(r *models.RunResult) {
	WriteSummary(os.Stdout, r)
}

// WriteSummary writes the end-of-run report: totals, then every failed feed
// and every source that could not be listed
func WriteSummary(w io.Writer, r *models.RunResult) {
	mark := Green("✓")
	if r.TasksFailed > 0 || len(r.DiscoveryErrors) > 0 {
		mark = Yellow("⚠")
	}

	fmt.Fprintf(w, "\n%s Run %s finished in %s\n", mark, r.RunID, FormatDuration(r.Duration()))
	fmt.Fprintf(w, "  %s %d attempted, %s, %s\n",
		Dim("•"),
		r.TasksAttempted,
		Green(fmt.Sprintf("%d saved", r.TasksSucceeded)),
		failedText(r.TasksFailed),
	)

	var bytes int64
	for _, p := range r.Persisted {
		bytes += int64(p.Size)
	}
	fmt.Fprintf(w, "  %s %s written\n", Dim("•"), FormatBytes(bytes))

	if len(r.DiscoveryErrors) > 0 {
		fmt.Fprintf(w, "\n%s\n", Yellow("Sources that could not be listed:"))
		for _, d := range r.DiscoveryErrors {
			fmt.Fprintf(w, "  %s [%s] %s: %s\n", Red("✗"), d.Category, d.Source, d.Detail)
		}
	}

	if len(r.Errors) > 0 {
		errors := append([]models.TaskError(nil), r.Errors...)
		sort.SliceStable(errors, func(i, j int) bool {
			return errors[i].Task.Category < errors[j].Task.Category
		})
		fmt.Fprintf(w, "\n%s\n", Yellow("Failed feeds:"))
		for _, e := range errors {
			fmt.Fprintf(w, "  %s [%s] %s: %s\n", Red("✗"), e.Task.Category, e.Task.DisplayName, e.Detail)
		}
	}
}

func failedText(n int) string {
	s := fmt.Sprintf("%d failed", n)
	if n > 0 {
		return Red(s)
	}
	return Dim(s)
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	} else {
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// FormatBytes formats bytes in a human-readable way
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
