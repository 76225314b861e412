package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"check-review-gateway/internal/services/review"
)

var errNotInteractive = errors.New("total does not match the expected amount; rerun with --yes to submit anyway")

// promptConfirmer asks on w and reads the answer from r. Anything other than
// "y" or "yes" declines.
func promptConfirmer(w io.Writer, r io.Reader) review.Confirmer {
	if f, ok := r.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		return review.ConfirmerFunc(func(context.Context, review.Mismatch) (bool, error) {
			return false, errNotInteractive
		})
	}

	reader := bufio.NewReader(r)
	return review.ConfirmerFunc(func(_ context.Context, m review.Mismatch) (bool, error) {
		fmt.Fprintf(w, "\n%s [y/N] ", m.Message())

		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, fmt.Errorf("read confirmation: %w", err)
		}
		fmt.Fprintln(w)

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	})
}

func alwaysConfirm() review.Confirmer {
	return review.ConfirmerFunc(func(context.Context, review.Mismatch) (bool, error) {
		return true, nil
	})
}
