package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/choropleth/pkg/pipeline"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorBlue   = lipgloss.Color("75")  // Light blue - commands
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)

	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
	styleKey     = lipgloss.NewStyle().Foreground(colorGray).Width(12)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"

	// swatchWidth is the number of cells a color swatch occupies.
	swatchWidth = 3
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func printWarning(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconInfo.Render(iconInfo)+" "+fmt.Sprintf(format, args...))
}

// printDetail prints an indented secondary line.
func printDetail(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

func printFile(w io.Writer, path string) {
	fmt.Fprintln(w, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

func printKeyValue(w io.Writer, key, value string) {
	fmt.Fprintln(w, styleKey.Render(key)+" "+StyleValue.Render(value))
}

func printNextStep(w io.Writer, description, cmd string) {
	fmt.Fprintln(w, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

// =============================================================================
// Swatches
// =============================================================================

// swatch renders a block of terminal cells in color. Colors lipgloss cannot
// parse render as blank cells.
func swatch(color string) string {
	return lipgloss.NewStyle().Background(lipgloss.Color(color)).Render(strings.Repeat(" ", swatchWidth))
}

// swatches renders colors side by side.
func swatches(colors []string) string {
	var sb strings.Builder
	for _, c := range colors {
		sb.WriteString(swatch(c))
	}
	return sb.String()
}

// =============================================================================
// Run Summary
// =============================================================================

// printRunStats prints a one-line summary of a styling run.
func printRunStats(w io.Writer, s pipeline.Stats, geometryHit, geometryUsed bool) {
	parts := []string{
		fmt.Sprintf("%d regions", s.Regions),
		fmt.Sprintf("%d elements", s.ColoredElements),
	}
	if s.MultiElements > 0 {
		parts = append(parts, fmt.Sprintf("%d in groups", s.MultiElements))
	}
	if s.DefaultFilled > 0 {
		parts = append(parts, fmt.Sprintf("%d no-data", s.DefaultFilled))
	}
	if s.Bins > 0 {
		parts = append(parts, fmt.Sprintf("%d bins", s.Bins))
	}

	line := "  "
	for i, part := range parts {
		if i > 0 {
			line += StyleDim.Render(" · ")
		}
		line += StyleDim.Render(part)
	}
	if geometryUsed {
		status, style := iconFresh, styleComputed
		if geometryHit {
			status, style = iconCached, styleCached
		}
		line += StyleDim.Render(" · ") + style.Render("geometry "+status)
	}
	fmt.Fprintln(w, line)
}

// printWarnings lists run warnings, collapsing long lists.
func printWarnings(w io.Writer, warnings []pipeline.Warning, limit int) {
	for i, warn := range warnings {
		if i == limit {
			printDetail(w, "... and %d more", len(warnings)-limit)
			return
		}
		printWarning(w, "%s", warn)
	}
}
