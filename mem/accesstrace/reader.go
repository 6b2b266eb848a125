// Package accesstrace reads text memory access traces.
//
// Each non-empty line that does not start with '#' is one access:
//
//	<op> <address> [pc] [cpu]
//
// The op is one of R/LOAD, W/RFO, P/PREFETCH, WB/WRITEBACK, T/TRANSLATION,
// case-insensitive. Address and pc are hexadecimal with an optional 0x
// prefix. The cpu is decimal.
package accesstrace

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sarchlab/hybridpolicy/mem/cache/replacement"
	"github.com/sarchlab/hybridpolicy/mem/cache/tagging"
)

var opTypes = map[string]replacement.AccessType{
	"R":           replacement.AccessLoad,
	"LOAD":        replacement.AccessLoad,
	"W":           replacement.AccessRFO,
	"RFO":         replacement.AccessRFO,
	"P":           replacement.AccessPrefetch,
	"PREFETCH":    replacement.AccessPrefetch,
	"WB":          replacement.AccessWriteback,
	"WRITEBACK":   replacement.AccessWriteback,
	"T":           replacement.AccessTranslation,
	"TRANSLATION": replacement.AccessTranslation,
}

// Reader reads requests from a trace one at a time.
type Reader struct {
	scanner *bufio.Scanner
	lineNum int
	instrID uint64
}

// NewReader creates a Reader on top of r.
func NewReader(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// Next returns the next request. It returns io.EOF at the end of the trace.
// Requests are numbered in trace order through InstrID, starting from 0.
func (r *Reader) Next() (tagging.Request, error) {
	for r.scanner.Scan() {
		r.lineNum++

		line := strings.TrimSpace(r.scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		req, err := parseLine(line)
		if err != nil {
			return tagging.Request{}, fmt.Errorf("line %d: %w", r.lineNum, err)
		}

		req.InstrID = r.instrID
		r.instrID++

		return req, nil
	}

	if err := r.scanner.Err(); err != nil {
		return tagging.Request{}, fmt.Errorf("reading trace: %w", err)
	}

	return tagging.Request{}, io.EOF
}

func parseLine(line string) (tagging.Request, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 || len(fields) > 4 {
		return tagging.Request{}, fmt.Errorf("expected 2 to 4 fields, got %d", len(fields))
	}

	accessType, ok := opTypes[strings.ToUpper(fields[0])]
	if !ok {
		return tagging.Request{}, fmt.Errorf("unknown op %q", fields[0])
	}

	req := tagging.Request{Type: accessType}

	var err error

	req.Address, err = parseHex(fields[1])
	if err != nil {
		return tagging.Request{}, fmt.Errorf("bad address: %w", err)
	}

	if len(fields) > 2 {
		req.PC, err = parseHex(fields[2])
		if err != nil {
			return tagging.Request{}, fmt.Errorf("bad pc: %w", err)
		}
	}

	if len(fields) > 3 {
		cpu, err := strconv.ParseUint(fields[3], 10, 32)
		if err != nil {
			return tagging.Request{}, fmt.Errorf("bad cpu: %w", err)
		}

		req.CPU = uint32(cpu)
	}

	return req, nil
}

func parseHex(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return strconv.ParseUint(s, 16, 64)
}
