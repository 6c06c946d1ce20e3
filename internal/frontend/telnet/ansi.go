// Package telnet serves the arena's text front end over Telnet, with ANSI
// styling for health bars and the battle log.
package telnet

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ANSI escape sequences used by the arena screens.
const (
	Reset = "\033[0m"
	Bold  = "\033[1m"
	Dim   = "\033[2m"

	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"

	BrightRed    = "\033[91m"
	BrightGreen  = "\033[92m"
	BrightYellow = "\033[93m"
	BrightWhite  = "\033[97m"

	// ClearScreen erases the terminal and homes the cursor.
	ClearScreen = "\033[2J\033[H"
)

// Colorize wraps text with the given ANSI color code and a reset suffix.
func Colorize(color, text string) string {
	return color + text + Reset
}

// Colorf wraps a formatted string with the given ANSI color code.
func Colorf(color, format string, args ...any) string {
	return color + fmt.Sprintf(format, args...) + Reset
}

// StripANSI removes all ANSI escape sequences from a string.
//
// Postcondition: Returns s with every \033[...<letter> sequence removed.
func StripANSI(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	i := 0
	for i < len(s) {
		if s[i] == '\033' && i+1 < len(s) && s[i+1] == '[' {
			j := i + 2
			for j < len(s) && !isFinalByte(s[j]) {
				j++
			}
			if j < len(s) {
				i = j + 1
				continue
			}
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

func isFinalByte(c byte) bool { return c >= '@' && c <= '~' }

// VisibleWidth is the number of runes s occupies once styling is removed.
func VisibleWidth(s string) int {
	return utf8.RuneCountInString(StripANSI(s))
}

// PadRight pads styled text with spaces to width visible columns.
func PadRight(s string, width int) string {
	if n := VisibleWidth(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
