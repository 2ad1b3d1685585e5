// Package browserhelper launches the external JavaScript-rendering
// subprocess for sites whose descriptor sets requires_js, per spec.md §6.
// The core never executes JavaScript itself; this package only knows how
// to invoke the helper and capture its stdout.
package browserhelper

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/reekid420/website-searcher/internal/searcherr"
)

// Runner shells out to a configured browser-helper binary.
type Runner struct {
	binary string
}

// New builds a Runner that invokes the given binary path.
func New(binary string) *Runner {
	return &Runner{binary: binary}
}

// Options carries the environment variables the helper may honor, per
// spec.md §6: a page count, and an opaque cookie string.
type Options struct {
	PageCount int
	Cookies   string
}

// Render invokes the helper with query as its sole positional argument and
// returns its stdout as the HTML body. A non-zero exit is reported as
// ErrSolverFailed, matching the taxonomy used for the JSON solver since
// both are "external renderer failed" from the caller's perspective.
func (r *Runner) Render(ctx context.Context, query string, opts Options) (string, error) {
	cmd := exec.CommandContext(ctx, r.binary, query)
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("PAGE_COUNT=%d", maxInt(opts.PageCount, 1)),
		fmt.Sprintf("COOKIES=%s", opts.Cookies),
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: browser helper: %v: %s", searcherr.ErrSolverFailed, err, stderr.String())
	}

	return stdout.String(), nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
