// GoHyphanet - Freenet/Hyphanet FCP Library and Tools
// Copyright (C) 2025 GoHyphanet Contributors
// Licensed under GNU AGPLv3 - see LICENSE file for details
// Source: https://github.com/blubskye/gohyphanet

package fcp

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// WriteMessage serializes m onto w in FCP wire form:
//
//	header '\n' (key '=' value '\n')* data_terminator
//
// data_terminator is "EndMessage\n" when m has no payload, otherwise the
// single line "Data\n" followed by exactly len(m.Payload) bytes. Callers
// are responsible for flushing w if it is buffered.
func WriteMessage(w io.Writer, m *Message) error {
	if m.Header == "" {
		return errors.WithStack(&BadArgumentError{Reason: "message header must not be empty"})
	}

	bw, ok := w.(*bufio.Writer)
	if !ok {
		bw = bufio.NewWriter(w)
		defer bw.Flush()
	}

	if _, err := bw.WriteString(m.Header); err != nil {
		return errors.Wrap(&TransportError{Cause: err}, "write header")
	}
	if err := bw.WriteByte('\n'); err != nil {
		return errors.Wrap(&TransportError{Cause: err}, "write header newline")
	}

	for _, f := range m.Fields {
		if strings.ContainsRune(f.Value, '\n') || strings.ContainsRune(f.Key, '\n') {
			return errors.WithStack(&BadArgumentError{Reason: "field contains newline: " + f.Key})
		}
		if _, err := bw.WriteString(f.Key); err != nil {
			return errors.Wrap(&TransportError{Cause: err}, "write field key")
		}
		if err := bw.WriteByte('='); err != nil {
			return errors.Wrap(&TransportError{Cause: err}, "write field separator")
		}
		if _, err := bw.WriteString(f.Value); err != nil {
			return errors.Wrap(&TransportError{Cause: err}, "write field value")
		}
		if err := bw.WriteByte('\n'); err != nil {
			return errors.Wrap(&TransportError{Cause: err}, "write field newline")
		}
	}

	if len(m.Payload) > 0 {
		if _, err := bw.WriteString("Data\n"); err != nil {
			return errors.Wrap(&TransportError{Cause: err}, "write Data marker")
		}
		if _, err := bw.Write(m.Payload); err != nil {
			return errors.Wrap(&TransportError{Cause: err}, "write payload")
		}
	} else {
		if _, err := bw.WriteString("EndMessage\n"); err != nil {
			return errors.Wrap(&TransportError{Cause: err}, "write EndMessage")
		}
	}

	return nil
}

// ReadMessage reads one FCP message from r. It reads lines until it sees
// "End", "EndMessage", or "Data"; on "Data" it consumes exactly the
// previously declared DataLength bytes of payload. A trailing '\r' before
// '\n' is tolerated.
func ReadMessage(r *bufio.Reader) (*Message, error) {
	header, err := readLine(r)
	if err != nil {
		return nil, errors.Wrap(&TransportError{Cause: err}, "read header")
	}
	if header == "" {
		return nil, errors.WithStack(&MalformedFrameError{Reason: "empty header line"})
	}

	m := NewMessage(header)

	for {
		line, err := readLine(r)
		if err != nil {
			return nil, errors.Wrap(&TransportError{Cause: err}, "read field line")
		}

		if line == "End" || line == "EndMessage" {
			return m, nil
		}

		if line == "Data" {
			lenStr, ok := m.Get("DataLength")
			if !ok {
				return nil, errors.WithStack(&MalformedFrameError{Reason: "Data section without DataLength"})
			}
			n, err := strconv.ParseInt(lenStr, 10, 64)
			if err != nil || n < 0 {
				return nil, errors.Wrapf(&MalformedFrameError{Reason: "invalid DataLength: " + lenStr}, "parse DataLength")
			}

			payload := make([]byte, n)
			if _, err := io.ReadFull(r, payload); err != nil {
				return nil, errors.Wrap(&TransportError{Cause: err}, "read payload")
			}
			m.Payload = payload
			return m, nil
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, errors.WithStack(&MalformedFrameError{Reason: "field missing '=': " + line})
		}
		m.Fields = append(m.Fields, Field{Key: key, Value: value})
	}
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}
