package listener

import (
	"bytes"
	"io"
)

// crlfReadWriter speaks CRLF to remote terminals and plain \n to the console.
// Reads turn \r\n and a lone \r (ssh without a pty) into \n. Writes turn \n
// into \r\n.
type crlfReadWriter struct {
	rw io.ReadWriter
	// afterCR is set when the last byte read was \r, so a \n starting the
	// next read belongs to the same line ending.
	afterCR bool
}

func newCRLFReadWriter(rw io.ReadWriter) io.ReadWriter {
	return &crlfReadWriter{rw: rw}
}

func (c *crlfReadWriter) Read(p []byte) (int, error) {
	n, err := c.rw.Read(p)
	out := p[:0]
	for _, b := range p[:n] {
		switch {
		case b == '\r':
			out = append(out, '\n')
			c.afterCR = true
		case b == '\n' && c.afterCR:
			c.afterCR = false
		default:
			out = append(out, b)
			c.afterCR = false
		}
	}
	return len(out), err
}

func (c *crlfReadWriter) Write(p []byte) (int, error) {
	_, err := c.rw.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n")))
	if err != nil {
		return 0, err
	}
	return len(p), nil
}
