package cerr

import (
	"github.com/apex/log"
	"github.com/cockroachdb/errors"
)

type F = log.Fields

// Context accumulates structured fields that get attached to an error
// when it is created or wrapped, so the fields survive until the error is logged.
type Context struct {
	fields log.Fields
}

type Wrapper struct {
	ctx   Context
	cause error
}

func Field(key string, value interface{}) Context {
	return Context{}.Field(key, value)
}

func Fields(fields F) Context {
	return Context{}.Fields(fields)
}

func Wrap(err error) Wrapper {
	return Context{}.Wrap(err)
}

func Error(msg string) error {
	return Context{}.Error(msg)
}

func (c Context) Field(key string, value interface{}) Context {
	return c.Fields(F{key: value})
}

func (c Context) Fields(fields F) Context {
	merged := make(log.Fields, len(c.fields)+len(fields))
	for k, v := range c.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	return Context{fields: merged}
}

func (c Context) Wrap(err error) Wrapper {
	return Wrapper{ctx: c, cause: err}
}

func (c Context) Error(msg string) error {
	return c.attach(errors.NewWithDepth(1, msg))
}

func (w Wrapper) Error(msg string) error {
	if w.cause == nil {
		return w.ctx.attach(errors.NewWithDepth(1, msg))
	}

	return w.ctx.attach(errors.WrapWithDepth(1, w.cause, msg))
}

func (c Context) attach(err error) error {
	if len(c.fields) == 0 {
		return err
	}

	return &withFields{cause: err, fields: c.fields}
}

type withFields struct {
	cause  error
	fields log.Fields
}

func (w *withFields) Error() string { return w.cause.Error() }
func (w *withFields) Cause() error  { return w.cause }
func (w *withFields) Unwrap() error { return w.cause }

// CollectFields walks the chain, outer fields win over inner ones.
func CollectFields(err error) log.Fields {
	var chain []*withFields
	for e := err; e != nil; e = errors.UnwrapOnce(e) {
		if wf, ok := e.(*withFields); ok {
			chain = append(chain, wf)
		}
	}

	fields := log.Fields{}
	for i := len(chain) - 1; i >= 0; i-- {
		for k, v := range chain[i].fields {
			fields[k] = v
		}
	}

	return fields
}

func Log(err error) {
	if err == nil {
		return
	}

	log.WithFields(CollectFields(err)).
		WithError(err).
		Error(err.Error())
}
