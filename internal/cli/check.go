package cli

import (
	"bufio"
	"context"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
)

// check verifies the "<hex>  <name>" lines of each checksum file. The digest
// length of every line is taken from its hex string.
func (r *runner) check(ctx context.Context, checkFiles []string) error {
	var mismatched, malformed, unreadable int
	for _, name := range checkFiles {
		lines, err := r.readCheckFile(name)
		if err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}
		for i, line := range lines {
			if line == "" {
				continue
			}
			want, path, ok := parseCheckLine(line)
			if !ok {
				malformed++
				r.log.Warn("malformed checksum line", zap.String("file", name), zap.Int("line", i+1))
				continue
			}
			got, err := r.hashFile(ctx, path, len(want), 1)
			if err != nil {
				unreadable++
				r.log.Error("hashing failed", zap.String("file", path), zap.Error(err))
				fmt.Fprintf(r.stdout, "%s: FAILED (%v)\n", path, err)
				continue
			}
			if subtle.ConstantTimeCompare(got, want) != 1 {
				mismatched++
				fmt.Fprintf(r.stdout, "%s: FAILED\n", path)
				continue
			}
			fmt.Fprintf(r.stdout, "%s: OK\n", path)
		}
	}

	if malformed > 0 {
		fmt.Fprintf(r.stderr, "b3sum: WARNING: %d line(s) are improperly formatted\n", malformed)
	}
	if unreadable > 0 {
		fmt.Fprintf(r.stderr, "b3sum: WARNING: %d listed file(s) could not be read\n", unreadable)
	}
	if mismatched > 0 {
		fmt.Fprintf(r.stderr, "b3sum: WARNING: %d computed checksum(s) did NOT match\n", mismatched)
	}
	if mismatched+unreadable > 0 {
		return ErrFailed
	}
	return nil
}

func (r *runner) readCheckFile(name string) ([]string, error) {
	var in io.Reader = r.stdin
	if name != stdinName {
		f, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		in = f
	}
	var lines []string
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	return lines, sc.Err()
}

// parseCheckLine splits a line printed by b3sum into its digest and path.
func parseCheckLine(line string) (sum []byte, path string, ok bool) {
	hexSum, path, found := strings.Cut(line, "  ")
	if !found || path == "" || hexSum == "" || len(hexSum)%2 != 0 {
		return nil, "", false
	}
	sum, err := hex.DecodeString(hexSum)
	if err != nil {
		return nil, "", false
	}
	return sum, path, true
}
