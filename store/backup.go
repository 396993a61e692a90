package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// Backup streams every profile to w as one JSON document per line.
// Aux records and index entries are not included; Restore rebuilds the
// indexes from the profiles themselves.
func (s *Store) Backup(ctx context.Context, w io.Writer) (int, error) {
	enc := json.NewEncoder(w)
	count := 0

	iter := s.redis.Scan(ctx, 0, s.prefix+":p:*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.redis.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			return count, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		p, err := decodeProfile(data)
		if err != nil {
			return count, err
		}
		if err := enc.Encode(p); err != nil {
			return count, fmt.Errorf("backup write: %w", err)
		}
		count++
	}
	if err := iter.Err(); err != nil {
		return count, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return count, nil
}

// Restore reads JSON-line profiles from r and recreates them. Profiles
// whose identifier, email, or mobile already exist are skipped rather
// than overwritten; the skip count is reported alongside the restore
// count.
func (s *Store) Restore(ctx context.Context, r io.Reader) (restored, skipped int, err error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		p, err := decodeProfile(line)
		if err != nil {
			return restored, skipped, err
		}
		switch err := s.Create(ctx, p); {
		case err == nil:
			restored++
		case IsDuplicate(err):
			skipped++
		default:
			return restored, skipped, err
		}
	}
	if err := sc.Err(); err != nil {
		return restored, skipped, fmt.Errorf("restore read: %w", err)
	}
	return restored, skipped, nil
}
