package dummy

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/executor"
)

type Call struct {
	Name string
	Args []string
	Dir  string
}

// Arg returns the value following flag, empty when the flag is absent.
func (c Call) Arg(flag string) string {
	for i := 0; i < len(c.Args)-1; i++ {
		if c.Args[i] == flag {
			return c.Args[i+1]
		}
	}

	return ""
}

func (c Call) HasArg(arg string) bool {
	for _, a := range c.Args {
		if a == arg {
			return true
		}
	}

	return false
}

func (c Call) LastArg() string {
	if len(c.Args) == 0 {
		return ""
	}

	return c.Args[len(c.Args)-1]
}

// Handler plays the part of a binary: it gets the invocation and may write
// whatever files the real binary would have produced.
type Handler func(call Call) ([]byte, error)

var _ executor.Executor = &Executor{}

func NewDummyExecutor() *Executor {
	return &Executor{
		handlers: map[string]Handler{},
	}
}

type Executor struct {
	mutex    sync.Mutex
	handlers map[string]Handler
	calls    []Call
}

func (e *Executor) Handle(binPath string, handler Handler) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.handlers[binPath] = handler
}

func (e *Executor) Command(ctx context.Context, name string, arg ...string) executor.Command {
	return &command{
		ctx:      ctx,
		executor: e,
		call: Call{
			Name: name,
			Args: append([]string(nil), arg...),
		},
	}
}

func (e *Executor) Calls() []Call {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	return append([]Call(nil), e.calls...)
}

func (e *Executor) CallsTo(binPath string) []Call {
	var calls []Call
	for _, call := range e.Calls() {
		if call.Name == binPath {
			calls = append(calls, call)
		}
	}

	return calls
}

func (e *Executor) run(ctx context.Context, call Call) ([]byte, error) {
	e.mutex.Lock()
	e.calls = append(e.calls, call)
	handler, ok := e.handlers[call.Name]
	e.mutex.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !ok {
		return []byte("command not found"), errors.Newf("no dummy handler for %s", call.Name)
	}

	return handler(call)
}

type command struct {
	ctx      context.Context
	executor *Executor
	call     Call
}

func (c *command) SetDir(dir string) {
	c.call.Dir = dir
}

func (c *command) CombinedOutput() ([]byte, error) {
	return c.executor.run(c.ctx, c.call)
}
