package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// maxLineBytes bounds a single audit line. Triage details can exceed the
// bufio.Scanner default of 64 KiB.
const maxLineBytes = 1 << 20

// VerifyResult holds the outcome of a hash chain verification. On success
// it also reports what the chain covers.
type VerifyResult struct {
	Valid     bool           `json:"valid"`
	Lines     int            `json:"lines"`
	Incidents []string       `json:"incidents,omitempty"`
	Events    map[string]int `json:"events,omitempty"`
	Tail      string         `json:"tail,omitempty"`
	Error     string         `json:"error,omitempty"`
	ErrorLine int            `json:"error_line,omitempty"`
}

// Verify reads a JSONL audit log and validates the hash chain.
// Incidents lists distinct incident ids in first-seen order.
func Verify(path string) VerifyResult {
	f, err := os.Open(path)
	if err != nil {
		return VerifyResult{Error: fmt.Sprintf("open: %v", err)}
	}
	defer f.Close()
	return verifyChain(f)
}

func verifyChain(r io.Reader) VerifyResult {
	res := VerifyResult{Events: map[string]int{}}
	seen := map[string]bool{}
	prev := GenesisHash

	err := scanLines(r, func(n int, line []byte) *lineError {
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			return &lineError{line: n, msg: fmt.Sprintf("parse error: %v", err)}
		}
		if entry.PrevHash != prev {
			if n == 1 {
				return &lineError{line: n, msg: fmt.Sprintf("first entry prev_hash is %q, expected genesis hash", entry.PrevHash)}
			}
			return &lineError{line: n, msg: fmt.Sprintf("hash mismatch: expected %s, got %s", prev, entry.PrevHash)}
		}

		prev = HashLine(line)
		res.Lines = n
		res.Events[entry.Event]++
		if id := entry.IncidentID; id != "" && !seen[id] {
			seen[id] = true
			res.Incidents = append(res.Incidents, id)
		}
		return nil
	})
	if err != nil {
		return VerifyResult{Lines: res.Lines, Error: err.msg, ErrorLine: err.line}
	}

	res.Valid = true
	if res.Lines > 0 {
		res.Tail = prev
	}
	return res
}

type lineError struct {
	line int
	msg  string
}

// scanLines calls fn with a private copy of each line, numbered from 1.
// It stops at the first error; scanner failures carry line 0.
func scanLines(r io.Reader, fn func(n int, line []byte) *lineError) *lineError {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	n := 0
	for scanner.Scan() {
		n++
		line := append([]byte(nil), scanner.Bytes()...)
		if err := fn(n, line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return &lineError{msg: fmt.Sprintf("scan: %v", err)}
	}
	return nil
}
