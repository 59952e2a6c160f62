package logger

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
)

var logoRows = []string{
	" ██████╗  █████╗ ██████╗  █████╗  ██████╗  ██████╗  ██████╗ ██╗",
	"██╔════╝ ██╔══██╗██╔══██╗██╔══██╗██╔════╝ ██╔═══██╗██╔═══██╗██║",
	"██║  ███╗███████║██████╔╝███████║██║  ███╗██║   ██║██║   ██║██║",
	"██║   ██║██╔══██║██╔══██╗██╔══██║██║   ██║██║   ██║██║   ██║██║",
	"╚██████╔╝██║  ██║██████╔╝██║  ██║╚██████╔╝╚██████╔╝╚██████╔╝███████╗",
	" ╚═════╝ ╚═╝  ╚═╝╚═════╝ ╚═╝  ╚═╝ ╚═════╝  ╚═════╝  ╚═════╝ ╚══════╝",
}

var logoColors = []func(a ...interface{}) string{
	pterm.LightRed,
	pterm.LightGreen,
	pterm.LightYellow,
	pterm.LightBlue,
	pterm.LightMagenta,
	pterm.LightCyan,
}

// PrintLogo prints the banner. Suppressed in JSON mode.
func PrintLogo() {
	if JSONOutput {
		return
	}
	pterm.Println()
	for i, row := range logoRows {
		pterm.Println("    " + logoColors[i%len(logoColors)](row))
	}
	pterm.Println()
}

// Stage prints a short progress line for a pipeline stage.
func Stage(stage, message string) {
	if JSONOutput {
		Logger.Infow(message, "stage", stage)
		return
	}
	pterm.Printf("  %s %s\n", pterm.LightCyan(stage+":"), message)
}

// Success prints the final summary for a finished run.
func Success(models, services, files int, elapsed time.Duration) {
	if JSONOutput {
		Logger.Infow("Generation complete",
			"models", models,
			"services", services,
			"files", files,
			FieldDurationMS, elapsed.Milliseconds())
		return
	}
	pterm.Success.Printf("Generated %s models and %s services (%d files) in %s\n",
		pterm.Green(fmt.Sprintf("%d", models)),
		pterm.Green(fmt.Sprintf("%d", services)),
		files,
		elapsed.Round(10*time.Millisecond))
}

// Failure prints a fatal error and any hints attached to it.
func Failure(command string, err error, hints []string) {
	if JSONOutput {
		Logger.Errorw("Command failed", "command", command, FieldError, err.Error(), "hints", hints)
		return
	}
	pterm.Error.Printf("command %s failed: %v\n", command, err)
	for _, hint := range hints {
		pterm.Printf("  %s %s\n", pterm.Gray("hint:"), hint)
	}
}
