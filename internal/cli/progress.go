package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/alucardeht/coffeeidx/internal/engine"
)

// reindexProgress renders reindex progress as a bar on out. The bar is
// created on the first callback, once the file count is known.
type reindexProgress struct {
	out   io.Writer
	quiet bool

	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func newReindexProgress(out io.Writer, quiet bool) *reindexProgress {
	return &reindexProgress{out: out, quiet: quiet}
}

func (p *reindexProgress) callback() engine.Progress {
	if p.quiet {
		return nil
	}
	return func(done, total int) {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.bar == nil {
			p.bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(p.out),
				progressbar.OptionSetDescription("Indexing files"),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionShowIts(),
				progressbar.OptionSetItsString("files/s"),
				progressbar.OptionThrottle(65*time.Millisecond),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(p.out)
				}),
			)
		}
		p.bar.Set(done)
	}
}

func (p *reindexProgress) finish(res engine.ReindexResult) {
	p.mu.Lock()
	if p.bar != nil {
		p.bar.Finish()
	}
	p.mu.Unlock()

	if p.quiet {
		return
	}
	fmt.Fprintf(p.out, "%d files indexed, %d removed, %d failed\n", res.Files, res.Removed, res.Failed)
}
