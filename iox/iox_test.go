package iox

import (
	"errors"
	"io"
	"strings"
	"testing"
)

type spyCloser struct {
	io.Reader
	closed bool
}

func (s *spyCloser) Close() error { s.closed = true; return errors.New("ignored") }

func TestDiscardClose(t *testing.T) {
	s := &spyCloser{}
	DiscardClose(s)
	if !s.closed {
		t.Fatal("Close was not called")
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

func TestDiscardErr(t *testing.T) {
	called := false
	DiscardErr(func() error {
		called = true
		return errors.New("ignored")
	})
	if !called {
		t.Fatal("fn was not called")
	}
}

func TestDrainClose(t *testing.T) {
	body := strings.NewReader(strings.Repeat("x", 1024))
	s := &spyCloser{Reader: body}
	DrainClose(s)
	if !s.closed {
		t.Fatal("Close was not called")
	}
	if body.Len() != 0 {
		t.Errorf("unread bytes = %d, want 0", body.Len())
	}
}

func TestDrainClose_StopsAtLimit(t *testing.T) {
	body := strings.NewReader(strings.Repeat("x", drainLimit+10))
	s := &spyCloser{Reader: body}
	DrainClose(s)
	if body.Len() != 10 {
		t.Errorf("unread bytes = %d, want 10", body.Len())
	}
}
