package routing

import (
	"bufio"
	"io"
	"strings"
)

const (
	fieldSep      = ","
	recordFields  = 3
	maxLineLength = 64 * 1024
)

// Record is one tokenized route line. Fields are kept verbatim.
type Record struct {
	Line      int
	ID        string
	Converter string
	Topic     string
}

// RecordReader splits a route source into records.
type RecordReader struct {
	sc   *bufio.Scanner
	line int
}

func NewRecordReader(r io.Reader) *RecordReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLineLength)
	return &RecordReader{sc: sc}
}

// Next returns the next non-blank record, or io.EOF after the last one.
func (rr *RecordReader) Next() (Record, error) {
	for rr.sc.Scan() {
		rr.line++
		text := strings.TrimSuffix(rr.sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		fields := strings.Split(text, fieldSep)
		if len(fields) != recordFields {
			return Record{}, lineErr(rr.line, ErrMalformedRecord, "want %d fields, got %d", recordFields, len(fields))
		}
		return Record{Line: rr.line, ID: fields[0], Converter: fields[1], Topic: fields[2]}, nil
	}
	if err := rr.sc.Err(); err != nil {
		return Record{}, lineErr(rr.line+1, ErrMalformedRecord, "%v", err)
	}
	return Record{}, io.EOF
}
