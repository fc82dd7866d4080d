// Package review asks the operator to confirm keeping a track when the
// segmenter closes it (a content change, a gap or end-of-tape marker,
// or a run of non-audio frames), when the demux tool is run with
// --interactive. Healing a one-frame glitch does not prompt, and
// tracks closed by a length limit or at the end of the input are kept
// without asking. It is never consulted in batch mode.
package review

import (
	"fmt"

	"github.com/manifoldco/promptui"
)

// Confirm asks the operator a yes/no question about the track
// described by label and reason, defaulting to "keep" if they just
// press enter. It returns false if the operator declines or the
// prompt is interrupted (e.g. Ctrl-C), never an error the caller has
// to additionally branch on.
func Confirm(label, reason string) bool {
	prompt := promptui.Prompt{
		Label:     fmt.Sprintf("%s (%s) - keep this track?", label, reason),
		IsConfirm: true,
		Default:   "y",
	}
	_, err := prompt.Run()
	return err == nil
}
