package help

import "strings"

// Header returns text styled as a header (bold + cyan).
func Header(text string) string {
	return ColorBold + ColorCyan + text + ColorReset
}

// StyleCategory returns text styled as a category label (bold + green).
func StyleCategory(text string) string {
	return ColorBold + ColorGreen + text + ColorReset
}

// StyleCommand returns text styled as a command name (cyan).
func StyleCommand(text string) string {
	return ColorCyan + text + ColorReset
}

// Argument returns text styled as a command argument (yellow).
func Argument(text string) string {
	return ColorYellow + text + ColorReset
}

// Shortcut returns text styled as an alias or key (bold + yellow).
func Shortcut(text string) string {
	return ColorBold + ColorYellow + text + ColorReset
}

// Dim returns text in gray.
func Dim(text string) string {
	return ColorGray + text + ColorReset
}

// Bold returns text in bold.
func Bold(text string) string {
	return ColorBold + text + ColorReset
}

// CommandWithShortcut formats "/help (or /h)".
func CommandWithShortcut(cmd, shortcut string) string {
	if shortcut == "" {
		return StyleCommand(cmd)
	}
	return StyleCommand(cmd) + Dim(" (or ") + Shortcut(shortcut) + Dim(")")
}

// HighlightExample shows the command word in cyan and its arguments in yellow.
func HighlightExample(line string) string {
	name, args, _ := strings.Cut(strings.TrimSpace(line), " ")
	if name == "" {
		return ""
	}
	out := StyleCommand(name)
	if args = strings.TrimLeft(args, " "); args != "" {
		out += Argument(" " + args)
	}
	return out
}

// VisibleLength is the rune count of s with ANSI escape sequences removed.
func VisibleLength(s string) int {
	length := 0
	inEscape := false
	for _, r := range s {
		if r == '\033' {
			inEscape = true
			continue
		}
		if inEscape {
			if r == 'm' {
				inEscape = false
			}
			continue
		}
		length++
	}
	return length
}

// PadRight pads s with spaces to the given visible width.
func PadRight(s string, width int) string {
	if n := VisibleLength(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
