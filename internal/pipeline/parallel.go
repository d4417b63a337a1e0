package pipeline

import (
	"runtime"
	"sync"

	"github.com/inodb/vibe-ptm/internal/search"
)

// WorkItem is one input file waiting to be read.
type WorkItem struct {
	Seq  int
	Path string
}

// WorkResult holds the matches read from a single input file.
type WorkResult struct {
	Seq       int
	Path      string
	Matches   []*search.PeptideMatch
	RowErrors []*search.RowError
	Err       error
}

// ParallelRead reads input files using a pool of workers.
// Results are sent to the returned channel in arrival order (not sequence order).
// Use OrderedCollect to consume results in sequence-number order.
// If workers is 0, runtime.NumCPU() is used.
func ParallelRead(format search.Format, opts search.Options, items <-chan WorkItem, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for item := range items {
				var rowErrs []*search.RowError
				matches, err := search.ReadFile(format, item.Path, opts, func(re *search.RowError) {
					rowErrs = append(rowErrs, re)
				})
				results <- WorkResult{
					Seq:       item.Seq,
					Path:      item.Path,
					Matches:   matches,
					RowErrors: rowErrs,
					Err:       err,
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}

// Feed sends one work item per path and closes the channel.
func Feed(paths []string) <-chan WorkItem {
	items := make(chan WorkItem, len(paths))
	for i, p := range paths {
		items <- WorkItem{Seq: i, Path: p}
	}
	close(items)
	return items
}
