package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/khotba/khotba_server/internal/pkg/media"
)

type Call struct {
	Name string
	Args []string
}

// LastArg is the output path for ffmpeg invocations.
func (c Call) LastArg() string {
	if len(c.Args) == 0 {
		return ""
	}
	return c.Args[len(c.Args)-1]
}

// Has reports whether the flag appears immediately followed by value.
func (c Call) Has(flag, value string) bool {
	for i := 0; i+1 < len(c.Args); i++ {
		if c.Args[i] == flag && c.Args[i+1] == value {
			return true
		}
	}
	return false
}

// FakeRunner records every command and answers through Handler.
type FakeRunner struct {
	mu      sync.Mutex
	calls   []Call
	Handler func(call Call) (*media.Output, error)
}

func NewFakeRunner(handler func(call Call) (*media.Output, error)) *FakeRunner {
	return &FakeRunner{Handler: handler}
}

func (f *FakeRunner) Run(ctx context.Context, timeout time.Duration, name string, args ...string) (*media.Output, error) {
	call := Call{Name: name, Args: append([]string(nil), args...)}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	if f.Handler == nil {
		return &media.Output{}, nil
	}
	return f.Handler(call)
}

func (f *FakeRunner) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

func (f *FakeRunner) CallsTo(name string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}
