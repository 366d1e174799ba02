package cli

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/vbauerster/mpb/v7"
	"github.com/vbauerster/mpb/v7/decor"
	"go.uber.org/zap"

	"github.com/upalinski/blake3"
	"github.com/upalinski/blake3/internal/config"
)

const (
	stdinName   = "-"
	readBufSize = 1 << 20
)

// ErrFailed is returned once every input has been handled if at least one of
// them could not be hashed or verified. The causes are reported on stderr.
var ErrFailed = errors.New("one or more inputs could not be hashed")

var errRepeatedStdin = errors.New("standard input may be named only once")

type runner struct {
	cfg    *config.Config
	log    *zap.Logger
	key    []byte
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	progress *mpb.Progress
}

// readKey consumes the key from stdin in keyed mode. stdin then cannot also
// be an input.
func (r *runner) readKey(args []string) error {
	if !r.cfg.Keyed {
		return nil
	}
	for _, name := range args {
		if name == stdinName {
			return errors.New("cannot read both the key and an input from stdin")
		}
	}
	key, err := io.ReadAll(io.LimitReader(r.stdin, blake3.KeySize+1))
	if err != nil {
		return fmt.Errorf("reading key: %w", err)
	}
	if len(key) != blake3.KeySize {
		return fmt.Errorf("key must be exactly %d bytes, read %d", blake3.KeySize, len(key))
	}
	r.key = key
	return nil
}

func (r *runner) newHasher(size int) (*blake3.Hasher, error) {
	switch {
	case r.cfg.DeriveKey != "":
		return blake3.NewDeriveKey(size, r.cfg.DeriveKey)
	case r.cfg.Keyed:
		return blake3.NewKeyed(size, r.key)
	default:
		if size < 0 {
			return nil, blake3.ErrNegativeSize
		}
		return blake3.New(size, nil), nil
	}
}

type result struct {
	name string
	sum  []byte
	err  error
}

// hash prints the digest of every input, in argument order. Inputs are
// hashed concurrently; a lone input is instead split across threads.
func (r *runner) hash(ctx context.Context, names []string) error {
	if r.cfg.Raw && len(names) != 1 {
		return errors.New("--raw requires exactly one input")
	}
	stdinSeen := false
	for _, name := range names {
		if name == stdinName {
			if stdinSeen {
				return errRepeatedStdin
			}
			stdinSeen = true
		}
	}
	if r.cfg.Progress {
		r.progress = mpb.NewWithContext(ctx, mpb.WithOutput(r.stderr))
	}

	threads := 1
	if len(names) == 1 {
		threads = r.cfg.NumThreads
	}
	results := make([]result, len(names))
	wp := workerpool.New(min(r.cfg.NumThreads, len(names)))
	for i, name := range names {
		i, name := i, name
		wp.Submit(func() {
			sum, err := r.hashFile(ctx, name, r.cfg.Length, threads)
			results[i] = result{name: name, sum: sum, err: err}
		})
	}
	wp.StopWait()
	if r.progress != nil {
		r.progress.Wait()
	}

	failed := false
	for _, res := range results {
		if res.err != nil {
			failed = true
			r.log.Error("hashing failed", zap.String("file", res.name), zap.Error(res.err))
			fmt.Fprintf(r.stderr, "b3sum: %s: %v\n", res.name, res.err)
			continue
		}
		if err := r.printSum(res); err != nil {
			return err
		}
	}
	if failed {
		return ErrFailed
	}
	return nil
}

func (r *runner) printSum(res result) error {
	var err error
	switch {
	case r.cfg.Raw:
		_, err = r.stdout.Write(res.sum)
	case r.cfg.NoNames:
		_, err = fmt.Fprintln(r.stdout, hex.EncodeToString(res.sum))
	default:
		_, err = fmt.Fprintf(r.stdout, "%s  %s\n", hex.EncodeToString(res.sum), res.name)
	}
	return err
}

// hashFile returns size bytes of output for the named input.
func (r *runner) hashFile(ctx context.Context, name string, size, threads int) ([]byte, error) {
	h, err := r.newHasher(size)
	if err != nil {
		return nil, err
	}

	var in io.Reader
	if name == stdinName {
		in = r.stdin
	} else {
		f, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		in = f

		if r.progress != nil {
			var total int64
			if fi, err := f.Stat(); err == nil {
				total = fi.Size()
			}
			bar := r.progress.AddBar(total,
				mpb.PrependDecorators(decor.Name(name, decor.WCSyncSpaceR)),
				mpb.AppendDecorators(decor.Percentage()),
			)
			proxy := bar.ProxyReader(f)
			defer proxy.Close()
			// complete the bar even when the file changed size or failed
			defer bar.SetTotal(-1, true)
			in = proxy
		}
	}

	start := time.Now()
	n, err := r.copyToHasher(ctx, h, in, threads)
	if err != nil {
		return nil, err
	}
	r.log.Debug("hashed input",
		zap.String("file", name),
		zap.Int64("bytes", n),
		zap.Int("threads", threads),
		zap.Duration("elapsed", time.Since(start)),
	)
	return h.Sum(nil), nil
}

func (r *runner) copyToHasher(ctx context.Context, h *blake3.Hasher, in io.Reader, threads int) (int64, error) {
	buf := make([]byte, readBufSize)
	var total int64
	for {
		n, err := io.ReadFull(in, buf)
		if n > 0 {
			total += int64(n)
			if threads > 1 {
				if _, err := h.WriteParallel(ctx, buf[:n], threads); err != nil {
					return total, err
				}
			} else {
				h.Write(buf[:n])
			}
		}
		switch {
		case err == io.EOF || err == io.ErrUnexpectedEOF:
			return total, nil
		case err != nil:
			return total, err
		}
	}
}
