package iox

import (
	"errors"
	"io"
	"strings"
	"testing"
)

type spyCloser struct{ closed bool }

func (s *spyCloser) Close() error { s.closed = true; return errors.New("ignored") }

type spyBody struct {
	io.Reader
	spyCloser
}

func TestDiscardClose(t *testing.T) {
	s := &spyCloser{}
	DiscardClose(s)
	if !s.closed {
		t.Fatal("Close was not called")
	}
}

func TestDrainClose(t *testing.T) {
	r := strings.NewReader("unread response body")
	body := &spyBody{Reader: r}

	DrainClose(body)

	if !body.closed {
		t.Fatal("Close was not called")
	}
	if r.Len() != 0 {
		t.Errorf("%d bytes left unread, want 0", r.Len())
	}
}

func TestDrainClose_Bounded(t *testing.T) {
	r := strings.NewReader(strings.Repeat("x", maxDrain+10))
	DrainClose(&spyBody{Reader: r})

	if r.Len() != 10 {
		t.Errorf("%d bytes left unread, want 10", r.Len())
	}
}

func TestCloseFunc(t *testing.T) {
	s := &spyCloser{}
	fn := CloseFunc(s)
	if s.closed {
		t.Fatal("Close called before invoking returned func")
	}
	fn()
	if !s.closed {
		t.Fatal("Close was not called")
	}
}
