package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// fatih/color disables itself when stdout is not a terminal.
var (
	successColor = color.New(color.FgGreen, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
	headerColor  = color.New(color.FgBlue, color.Bold)
	labelColor   = color.New(color.FgWhite, color.Bold)
	dimColor     = color.New(color.FgHiBlack)
)

const ruleWidth = 60

// PrintSection prints a section header surrounded by blank lines.
func PrintSection(title string) {
	fmt.Println()
	_, _ = headerColor.Printf("▸ %s\n\n", title)
}

func PrintSubsection(title string) {
	_, _ = infoColor.Printf("  %s\n", title)
}

func PrintSuccess(msg string) {
	_, _ = successColor.Printf("✓ %s\n", msg)
}

func PrintWarning(msg string) {
	_, _ = warningColor.Printf("⚠ %s\n", msg)
}

// PrintError writes msg to stderr.
func PrintError(msg string) {
	_, _ = errorColor.Fprintf(os.Stderr, "✗ %s\n", msg)
}

func PrintInfo(msg string) {
	fmt.Println(msg)
}

// PrintLabelValue prints "label: value" with a dimmed value.
func PrintLabelValue(label, value string) {
	PrintLabelValueWithColor(label, value, dimColor)
}

func PrintLabelValueWithColor(label, value string, valueClr *color.Color) {
	_, _ = labelColor.Printf("  %s: ", label)
	_, _ = valueClr.Println(value)
}

// PrintList prints items one per line under a section, as bullets or, when
// numbered is set, starting from 1.
func PrintList(items []string, numbered bool) {
	for i, item := range items {
		marker := "•"
		if numbered {
			marker = fmt.Sprintf("%d.", i+1)
		}
		_, _ = infoColor.Printf("    %s %s\n", marker, item)
	}
}

// PrintTable prints rows aligned under headers. Cells past the header count
// are dropped.
func PrintTable(headers []string, rows [][]string) {
	if len(headers) == 0 || len(rows) == 0 {
		return
	}

	widths := make([]int, len(headers))
	for _, row := range append([][]string{headers}, rows...) {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], len(row[i]))
		}
	}

	printRow := func(cells []string, clr *color.Color) {
		padded := make([]string, len(widths))
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			padded[i] = fmt.Sprintf("%-*s", widths[i], cell)
		}
		_, _ = clr.Println("  " + strings.TrimRight(strings.Join(padded, "  "), " "))
	}

	printRow(headers, headerColor)
	rules := make([]string, len(widths))
	for i, w := range widths {
		rules[i] = strings.Repeat("-", w)
	}
	fmt.Println("  " + strings.Join(rules, "  "))
	for _, row := range rows {
		printRow(row, dimColor)
	}
}

func PrintEmptyState(msg string) {
	_, _ = dimColor.Printf("  %s\n", msg)
}

// PrintRule prints a horizontal rule, with title embedded when set.
func PrintRule(title string) {
	if title == "" {
		_, _ = dimColor.Println(strings.Repeat("─", ruleWidth))
		return
	}
	pad := max(ruleWidth-len(title)-4, 2)
	_, _ = dimColor.Print("── ")
	_, _ = headerColor.Print(title)
	_, _ = dimColor.Printf(" %s\n", strings.Repeat("─", pad))
}

// PrintPanel boxes lines under title so they stand out from log output.
func PrintPanel(title string, lines []string) {
	width := len(title) + 2
	for _, line := range lines {
		width = max(width, len(line))
	}

	_, _ = warningColor.Printf("┌─ %s %s┐\n", title, strings.Repeat("─", width-len(title)-1))
	for _, line := range lines {
		_, _ = warningColor.Print("│ ")
		fmt.Printf("%-*s", width, line)
		_, _ = warningColor.Println(" │")
	}
	_, _ = warningColor.Printf("└%s┘\n", strings.Repeat("─", width+2))
}

// PrintCount formats count with the singular or plural noun.
func PrintCount(count int, singular, plural string) string {
	if count == 1 {
		return fmt.Sprintf("1 %s", singular)
	}
	return fmt.Sprintf("%d %s", count, plural)
}
