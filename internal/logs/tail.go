package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const (
	maxLineBytes = 1024 * 1024
	pollInterval = 250 * time.Millisecond
)

// TailOptions controls a Tail call. A negative Offset means "the last Limit
// lines"; otherwise reading starts at Offset.
type TailOptions struct {
	Offset int64
	Limit  int
	// Contains keeps only lines that include every listed substring, for
	// example a worker id or an event type.
	Contains []string
	// Follow waits up to Wait for new lines when none are available.
	Follow bool
	Wait   time.Duration
}

// TailResult carries lines oldest first and the offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail reads path according to opts. A missing file yields no lines.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return TailResult{}, nil
		}
		return TailResult{Offset: opts.Offset}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return TailResult{Offset: opts.Offset}, fmt.Errorf("log path %q is a directory", path)
	}
	if opts.Wait < 0 {
		opts.Wait = 0
	}
	keep := matcher(opts.Contains)

	var result TailResult
	if opts.Offset < 0 {
		result, err = readLast(path, opts.Limit, keep)
	} else {
		offset := opts.Offset
		if offset > info.Size() {
			// Truncated or rotated since the last read.
			offset = 0
		}
		result, err = readFrom(path, offset, opts.Limit, keep)
	}
	if err != nil {
		return result, err
	}
	if opts.Follow && opts.Wait > 0 && len(result.Lines) == 0 {
		return waitForLines(ctx, path, result.Offset, opts.Limit, opts.Wait, keep)
	}
	return result, nil
}

func matcher(needles []string) func(string) bool {
	var filtered []string
	for _, n := range needles {
		if n = strings.TrimSpace(n); n != "" {
			filtered = append(filtered, n)
		}
	}
	return func(line string) bool {
		for _, n := range filtered {
			if !strings.Contains(line, n) {
				return false
			}
		}
		return true
	}
}

// readLast keeps the last limit matching lines in a ring.
func readLast(path string, limit int, keep func(string) bool) (TailResult, error) {
	if limit <= 0 {
		offset, err := fileSize(path)
		return TailResult{Offset: offset}, err
	}
	ring := make([]string, limit)
	count := 0
	offset, err := scan(path, 0, func(line string) {
		if !keep(line) {
			return
		}
		ring[count%limit] = line
		count++
	})
	if err != nil {
		return TailResult{}, err
	}

	n := min(count, limit)
	lines := make([]string, n)
	start := count - n
	for i := range n {
		lines[i] = ring[(start+i)%limit]
	}
	return TailResult{Lines: lines, Offset: offset}, nil
}

func readFrom(path string, offset int64, limit int, keep func(string) bool) (TailResult, error) {
	var lines []string
	next, err := scan(path, offset, func(line string) {
		if keep(line) {
			lines = append(lines, line)
		}
	})
	if err != nil {
		return TailResult{Offset: offset}, err
	}
	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	return TailResult{Lines: lines, Offset: next}, nil
}

// scan calls fn for every complete line after offset and returns the offset
// just past the last complete line. A trailing partial line is left for the
// next call.
func scan(path string, offset int64, fn func(string)) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReaderSize(file, 64*1024)
	pos := offset
	for {
		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			return pos, nil
		}
		if err != nil {
			return pos, fmt.Errorf("read log file: %w", err)
		}
		pos += int64(len(line))
		if len(line) > maxLineBytes {
			line = line[:maxLineBytes]
		}
		fn(strings.TrimRight(line, "\r\n"))
	}
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("stat log file: %w", err)
	}
	return info.Size(), nil
}

func waitForLines(ctx context.Context, path string, offset int64, limit int, wait time.Duration, keep func(string) bool) (TailResult, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		result, err := readFrom(path, offset, limit, keep)
		if err != nil || len(result.Lines) > 0 {
			return result, err
		}
		offset = result.Offset
		if time.Now().After(deadline) {
			return result, nil
		}
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-ticker.C:
		}
	}
}
