package transport

import "bytes"

// lineSplitter is a bufio.SplitFunc source that yields only newline-terminated
// lines. A trailing partial line stays buffered until more data arrives and
// is discarded when the stream ends. Lines longer than limit are skipped up
// to the next newline and reported through onOversize.
type lineSplitter struct {
	limit      int
	skipping   bool
	onOversize func()
}

func newLineSplitter(limit int, onOversize func()) *lineSplitter {
	if onOversize == nil {
		onOversize = func() {}
	}
	return &lineSplitter{limit: limit, onOversize: onOversize}
}

// Split implements bufio.SplitFunc. The scanner buffer must be allowed to
// grow past limit so an oversized line is seen here before the scanner gives
// up with bufio.ErrTooLong.
func (s *lineSplitter) Split(data []byte, atEOF bool) (advance int, token []byte, err error) {
	i := bytes.IndexByte(data, '\n')
	if s.skipping {
		if i < 0 {
			return len(data), nil, nil
		}
		s.skipping = false
		s.onOversize()
		return i + 1, nil, nil
	}
	if i >= 0 {
		if i > s.limit {
			s.onOversize()
			return i + 1, nil, nil
		}
		return i + 1, dropCR(data[:i]), nil
	}
	if atEOF {
		return len(data), nil, nil
	}
	if len(data) > s.limit {
		s.skipping = true
		return len(data), nil, nil
	}
	return 0, nil, nil
}

func dropCR(line []byte) []byte {
	if len(line) > 0 && line[len(line)-1] == '\r' {
		return line[:len(line)-1]
	}
	return line
}
