package coupon

import (
	"bufio"
	"context"
	"os"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"
)

const (
	bloomFPR   = 0.001
	minCodeLen = 6
	maxCodeLen = 12
)

// LoadCodeList streams one or more gzip-compressed files of newline-separated
// promo codes into the registry, concurrently. Every loaded code resolves to
// defaultRule on Lookup. Codes outside [6, 12] characters are skipped.
//
// The list replaces any previously loaded bulk codes; named rules are
// unaffected.
func (r *Registry) LoadCodeList(ctx context.Context, defaultRule Rule, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}

	var (
		mu    sync.Mutex
		codes = make(map[string]struct{})
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, path := range paths {
		g.Go(func() error {
			local := make(map[string]struct{})
			if err := streamGzLines(ctx, path, func(line string) {
				code := normalizeCode(line)
				if len(code) < minCodeLen || len(code) > maxCodeLen {
					return
				}
				local[code] = struct{}{}
			}); err != nil {
				return errors.Wrapf(err, "load code list %s", path)
			}

			mu.Lock()
			for code := range local {
				codes[code] = struct{}{}
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	filter := bloom.NewWithEstimates(uint(max(len(codes), 1)), bloomFPR)
	for code := range codes {
		filter.AddString(code)
	}

	r.mu.Lock()
	r.bulkFilter = filter
	r.bulkCodes = codes
	r.bulkRule = defaultRule
	r.mu.Unlock()
	return nil
}

// streamGzLines opens a gzip-compressed file and calls fn for each line.
func streamGzLines(ctx context.Context, path string, fn func(line string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrap(err, "create gzip reader")
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(scanner.Text())
	}
	return errors.Wrap(scanner.Err(), "scan")
}
