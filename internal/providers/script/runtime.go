package script

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// runtime is one sandboxed VM.
type runtime struct {
	vm     *goja.Runtime
	config Config
	log    *zap.Logger
}

func newRuntime(config Config, log *zap.Logger) *runtime {
	r := &runtime{config: config, log: log}
	r.reset()
	return r
}

// reset replaces the VM, dropping every global a script defined.
func (r *runtime) reset() {
	r.vm = goja.New()
	r.vm.SetMaxCallStackSize(r.config.MaxCallStack)

	for _, name := range []string{"require", "process", "module", "exports"} {
		r.vm.Set(name, goja.Undefined())
	}
	noop := func(goja.FunctionCall) goja.Value { return goja.Undefined() }
	r.vm.Set("setTimeout", noop)
	r.vm.Set("setInterval", noop)

	console := r.vm.NewObject()
	for _, level := range []string{"log", "info", "warn", "error"} {
		console.Set(level, r.consoleFunc(level))
	}
	r.vm.Set("console", console)
}

func (r *runtime) consoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		msg := strings.Join(parts, " ")
		switch level {
		case "warn":
			r.log.Warn(msg)
		case "error":
			r.log.Error(msg)
		default:
			r.log.Debug(msg)
		}
		return goja.Undefined()
	}
}

// call loads prog and invokes its function fn with arg. A missing function
// yields (nil, nil).
func (r *runtime) call(ctx context.Context, prog *goja.Program, fn string, arg any) (goja.Value, error) {
	vm := r.vm
	stop, done := make(chan struct{}), make(chan struct{})
	defer func() {
		close(stop)
		<-done
	}()
	go func() {
		defer close(done)
		timer := time.NewTimer(r.config.Timeout)
		defer timer.Stop()
		select {
		case <-timer.C:
			vm.Interrupt("execution timeout exceeded")
		case <-ctx.Done():
			vm.Interrupt("context cancelled")
		case <-stop:
		}
	}()

	if _, err := r.vm.RunProgram(prog); err != nil {
		return nil, fmt.Errorf("load script: %w", err)
	}
	callable, ok := goja.AssertFunction(r.vm.Get(fn))
	if !ok {
		return nil, nil
	}
	val, err := callable(goja.Undefined(), r.vm.ToValue(arg))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	return val, nil
}

// defines reports whether prog declares a global function fn.
func (r *runtime) defines(prog *goja.Program, fn string) (bool, error) {
	if _, err := r.vm.RunProgram(prog); err != nil {
		return false, err
	}
	_, ok := goja.AssertFunction(r.vm.Get(fn))
	return ok, nil
}
