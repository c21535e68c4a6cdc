package session

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/brogergvhs/pagekit/internal/keys"

	"github.com/manifoldco/promptui"
)

type Confirmer interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

// AlwaysConfirm answers yes without asking.
type AlwaysConfirm struct{}

func (AlwaysConfirm) Confirm(context.Context, string) (bool, error) {
	return true, nil
}

// PromptConfirmer asks on the terminal with a y/N prompt.
type PromptConfirmer struct{}

func (PromptConfirmer) Confirm(_ context.Context, question string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     question,
		IsConfirm: true,
	}

	if _, err := prompt.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// KeyConfirmer reads the answer from the next key press, for use while the
// terminal is in raw mode and owned by a key listener.
type KeyConfirmer struct {
	Events <-chan keys.Event
	Out    io.Writer
}

func (k KeyConfirmer) Confirm(ctx context.Context, question string) (bool, error) {
	_, _ = fmt.Fprintf(k.Out, "%s [y/N] ", question)

	select {
	case <-ctx.Done():
		_, _ = fmt.Fprintln(k.Out)
		return false, ctx.Err()
	case ev, ok := <-k.Events:
		if !ok {
			_, _ = fmt.Fprintln(k.Out)
			return false, io.EOF
		}

		yes := ev.Action == keys.ActionNone && !ev.Chord.Ctrl && !ev.Chord.Alt && ev.Chord.Key == 'y'
		if yes {
			_, _ = fmt.Fprintln(k.Out, "y")
		} else {
			_, _ = fmt.Fprintln(k.Out, "n")
		}
		return yes, nil
	}
}
