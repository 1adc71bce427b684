package notify

import (
	"fmt"
	"io"
	"time"
)

// TerminalToaster renders toasts as timestamped lines; the terminal stands
// in for the dashboard's toast area.
type TerminalToaster struct {
	W io.Writer
}

func (t *TerminalToaster) Show(msg string) {
	fmt.Fprintf(t.W, "%s  %s\n", time.Now().Format("15:04:05"), msg)
}

func (t *TerminalToaster) Error(msg string) {
	fmt.Fprintf(t.W, "%s  error: %s\n", time.Now().Format("15:04:05"), msg)
}

// TerminalAudio rings the terminal bell; the cue name is written alongside
// so the two cues are distinguishable without speakers.
type TerminalAudio struct {
	W io.Writer
}

func (a *TerminalAudio) Play(cue Cue, volume float64) {
	fmt.Fprintf(a.W, "\a[%s]\n", cue)
}
