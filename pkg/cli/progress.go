package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/rget/rget/pkg/output"
)

// NewProgressBar returns a factory for a byte progress bar drawn on w, sized once the download
// knows its total.
func NewProgressBar(w io.Writer, description string) func(total int64) output.Progress {
	return func(total int64) output.Progress {
		return progressbar.NewOptions64(total,
			progressbar.OptionSetDescription(description),
			progressbar.OptionSetWriter(w),
			progressbar.OptionShowBytes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionFullWidth(),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(w)
			}),
		)
	}
}
