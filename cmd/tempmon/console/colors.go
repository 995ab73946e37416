package console

import "github.com/fatih/color"

// Output colours; fatih/color disables them when stdout is not a terminal.
var (
	Yellow = color.New(color.FgYellow).SprintFunc()
	Red    = color.New(color.FgRed).SprintFunc()
	White  = color.New(color.FgHiWhite).SprintFunc()
)
