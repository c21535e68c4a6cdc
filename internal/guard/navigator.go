package guard

import (
	"context"
	"fmt"
	"io"
)

type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

// WriterNavigator prints the redirect target, one per line, for whatever
// drives the browser to pick up.
type WriterNavigator struct {
	Out io.Writer
}

func (n WriterNavigator) Navigate(_ context.Context, url string) error {
	_, err := fmt.Fprintf(n.Out, "navigate %s\n", url)
	return err
}
