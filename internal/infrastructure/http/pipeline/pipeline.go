// Package pipeline runs an ordered list of request stages in front of a route handler.
//
// Each stage inspects the shared Exchange and returns a Result telling the runner
// whether to continue, stop because a response was already written, or stop with
// an error. Errors from stages and handlers all end up in one ErrorTranslator,
// which is the only place deciding the shape of error responses.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// Exchange is the in-flight request state shared by every stage and the handler.
type Exchange struct {
	Writer  http.ResponseWriter
	Request *http.Request
	Logger  *slog.Logger

	// RawBody and Fields are filled by the body parsing stage. Fields is nil
	// when the request carried no JSON body.
	RawBody []byte
	Fields  map[string]json.RawMessage
}

// Context returns the request context.
func (x *Exchange) Context() context.Context {
	return x.Request.Context()
}

// HasField reports whether the parsed body contains the top-level key.
func (x *Exchange) HasField(name string) bool {
	_, ok := x.Fields[name]
	return ok
}

type outcome uint8

const (
	outcomeContinue outcome = iota
	outcomeRespond
	outcomeFail
)

// Result is what a stage hands back to the runner.
type Result struct {
	outcome outcome
	err     error
}

// Continue passes control to the next stage.
func Continue() Result { return Result{outcome: outcomeContinue} }

// Respond stops the pipeline; the stage has written the response itself.
func Respond() Result { return Result{outcome: outcomeRespond} }

// Fail stops the pipeline and hands err to the error translator.
func Fail(err error) Result { return Result{outcome: outcomeFail, err: err} }

// Err returns the error carried by a failed result.
func (r Result) Err() error { return r.err }

// Stage is a single pipeline step.
type Stage func(x *Exchange) Result

// Handler is the terminal route logic. A non-nil error is sent to the translator.
type Handler func(x *Exchange) error

// ErrorTranslator writes the response for any error signaled in the pipeline.
type ErrorTranslator func(w http.ResponseWriter, r *http.Request, err error)

var errNoCause = errors.New("pipeline stage failed without an error")

// Pipeline is an immutable, ordered list of stages plus the translator used on failure.
type Pipeline struct {
	stages    []Stage
	translate ErrorTranslator
	logger    *slog.Logger
}

// New creates a pipeline running stages in the given order.
func New(logger *slog.Logger, translate ErrorTranslator, stages ...Stage) *Pipeline {
	return &Pipeline{
		stages:    append([]Stage(nil), stages...),
		translate: translate,
		logger:    logger,
	}
}

// With returns a new pipeline with stages appended after the existing ones.
func (p *Pipeline) With(stages ...Stage) *Pipeline {
	combined := make([]Stage, 0, len(p.stages)+len(stages))
	combined = append(combined, p.stages...)
	combined = append(combined, stages...)
	return &Pipeline{stages: combined, translate: p.translate, logger: p.logger}
}

// Len returns the number of stages.
func (p *Pipeline) Len() int {
	return len(p.stages)
}

// Run executes the stages and, if all of them continue, the handler.
func (p *Pipeline) Run(x *Exchange, h Handler) {
	for _, stage := range p.stages {
		res := stage(x)
		switch res.outcome {
		case outcomeContinue:
			continue
		case outcomeRespond:
			return
		case outcomeFail:
			p.fail(x, res.err)
			return
		}
	}

	if err := h(x); err != nil {
		p.fail(x, err)
	}
}

// Handle adapts a handler running behind this pipeline to net/http.
func (p *Pipeline) Handle(h Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p.Run(&Exchange{Writer: w, Request: r, Logger: p.logger}, h)
	}
}

func (p *Pipeline) fail(x *Exchange, err error) {
	if err == nil {
		err = errNoCause
	}
	p.translate(x.Writer, x.Request, err)
}
