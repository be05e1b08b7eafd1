package repl

import (
	"io"
	"strings"
)

// Splitter reads SQL statements separated by ';'. Semicolons inside quoted strings,
// quoted identifiers, and comments do not end a statement. Comments are dropped.
type Splitter struct {
	rr   io.RuneReader
	peek *rune
	eof  bool
}

func NewSplitter(rr io.RuneReader) *Splitter {
	return &Splitter{rr: rr}
}

func (s *Splitter) readRune() (rune, error) {
	if s.peek != nil {
		r := *s.peek
		s.peek = nil
		return r, nil
	}
	if s.eof {
		return 0, io.EOF
	}
	r, _, err := s.rr.ReadRune()
	if err == io.EOF {
		s.eof = true
	}
	return r, err
}

func (s *Splitter) unreadRune(r rune) {
	s.peek = &r
}

// Next returns the next non-empty statement without its terminating ';'. At the end of
// input, a final unterminated statement is returned, then io.EOF.
func (s *Splitter) Next() (string, error) {
	var b strings.Builder

	for {
		stmt, err := s.next(&b)
		if err == io.EOF && stmt == "" {
			return "", io.EOF
		} else if err != nil && err != io.EOF {
			return "", err
		}
		if stmt != "" {
			return stmt, nil
		}
		b.Reset()
	}
}

func (s *Splitter) next(b *strings.Builder) (string, error) {
	for {
		r, err := s.readRune()
		if err != nil {
			return strings.TrimSpace(b.String()), err
		}

		switch r {
		case ';':
			return strings.TrimSpace(b.String()), nil
		case '\'', '"':
			b.WriteRune(r)
			err = s.quoted(b, r)
			if err != nil {
				return strings.TrimSpace(b.String()), err
			}
		case '-':
			r2, err := s.readRune()
			if err == nil && r2 == '-' {
				err = s.lineComment()
				b.WriteRune(' ')
				if err != nil {
					return strings.TrimSpace(b.String()), err
				}
				continue
			}
			b.WriteRune(r)
			if err == nil {
				s.unreadRune(r2)
			}
		case '/':
			r2, err := s.readRune()
			if err == nil && r2 == '*' {
				err = s.blockComment()
				b.WriteRune(' ')
				if err != nil {
					return strings.TrimSpace(b.String()), err
				}
				continue
			}
			b.WriteRune(r)
			if err == nil {
				s.unreadRune(r2)
			}
		default:
			b.WriteRune(r)
		}
	}
}

// quoted copies a quoted string through its closing quote. A doubled quote closes the
// string and immediately opens another, so escaped quotes are copied unchanged.
func (s *Splitter) quoted(b *strings.Builder, q rune) error {
	for {
		r, err := s.readRune()
		if err != nil {
			return err
		}
		b.WriteRune(r)
		if r == q {
			return nil
		}
	}
}

func (s *Splitter) lineComment() error {
	for {
		r, err := s.readRune()
		if err != nil {
			return err
		}
		if r == '\n' {
			return nil
		}
	}
}

func (s *Splitter) blockComment() error {
	var prev rune
	for {
		r, err := s.readRune()
		if err != nil {
			return err
		}
		if prev == '*' && r == '/' {
			return nil
		}
		prev = r
	}
}
