// Package script runs a user-supplied JavaScript filter over extracted
// strings.
//
// A script defines a global filter object:
//
//	var filter = {
//	  onInit: function (ctx) { ctx.state.seen = {}; },
//	  keep: function (s, ctx) {
//	    if (ctx.state.seen[s]) return false;
//	    ctx.state.seen[s] = true;
//	    return s.trim();
//	  }
//	};
//
// keep returning false, null or undefined drops the string, a string
// replaces it, and any other value keeps it unchanged.
package script

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// DefaultTimeout bounds a single keep or onInit call.
const DefaultTimeout = 5 * time.Second

var (
	// ErrNoFilter is returned when a script does not define filter.keep.
	ErrNoFilter = errors.New("script: filter.keep is not defined")

	// ErrTimeout is returned when a script call runs past its timeout.
	ErrTimeout = errors.New("script: execution timed out")
)

type config struct {
	timeout time.Duration
	logger  zerolog.Logger
}

// Option configures a Filter.
type Option func(*config)

// WithTimeout sets the per-call timeout. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger that receives the script's log() calls.
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// Filter is a loaded script. A Filter is safe for use by one goroutine at a
// time; calls are serialised.
type Filter struct {
	name string

	mu     sync.Mutex
	vm     *goja.Runtime
	keep   goja.Callable
	onInit goja.Callable
	state  *goja.Object

	timeout time.Duration
	logger  zerolog.Logger
}

// LoadFile reads and loads the script at path.
func LoadFile(path string, opts ...Option) (*Filter, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return Load(path, string(code), opts...)
}

// Load compiles code, looks up filter.keep and runs filter.onInit if present.
func Load(name, code string, opts ...Option) (*Filter, error) {
	cfg := config{
		timeout: DefaultTimeout,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	vm := goja.New()
	f := &Filter{
		name:    name,
		vm:      vm,
		timeout: cfg.timeout,
		logger:  cfg.logger.With().Str("script", name).Logger(),
	}
	f.injectHelpers()

	if err := f.guard(func() error {
		_, err := vm.RunScript(name, code)
		return err
	}); err != nil {
		return nil, fmt.Errorf("run script %s: %w", name, err)
	}

	filterVal := vm.Get("filter")
	if filterVal == nil || goja.IsUndefined(filterVal) || goja.IsNull(filterVal) {
		return nil, ErrNoFilter
	}
	obj := filterVal.ToObject(vm)

	keep, ok := goja.AssertFunction(obj.Get("keep"))
	if !ok {
		return nil, ErrNoFilter
	}
	f.keep = keep

	if initVal := obj.Get("onInit"); initVal != nil && !goja.IsUndefined(initVal) {
		f.onInit, _ = goja.AssertFunction(initVal)
	}

	f.state = vm.NewObject()

	if f.onInit != nil {
		ctx := f.newContext("", -1)
		if err := f.guard(func() error {
			_, err := f.onInit(goja.Undefined(), ctx)
			return err
		}); err != nil {
			return nil, fmt.Errorf("%s onInit: %w", name, err)
		}
	}
	return f, nil
}

// Name returns the name the script was loaded under.
func (f *Filter) Name() string {
	return f.name
}

// Apply runs keep over every string in order and returns the survivors.
// The first script error aborts the run.
func (f *Filter) Apply(ctx context.Context, source string, in []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, 0, len(in))
	for i, s := range in {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var res goja.Value
		err := f.guard(func() error {
			var err error
			res, err = f.keep(goja.Undefined(), f.vm.ToValue(s), f.newContext(source, i))
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("%s keep(#%d): %w", f.name, i, err)
		}

		if kept, ok := interpret(res, s); ok {
			out = append(out, kept)
		}
	}
	return out, nil
}

// interpret maps a keep() return value to the string to emit.
func interpret(res goja.Value, s string) (string, bool) {
	if res == nil || goja.IsUndefined(res) || goja.IsNull(res) {
		return "", false
	}
	switch v := res.Export().(type) {
	case bool:
		return s, v
	case string:
		return v, true
	}
	return s, true
}

// guard runs fn under the call timeout and converts VM interrupts and panics
// into errors.
func (f *Filter) guard(fn func() error) (err error) {
	timer := time.AfterFunc(f.timeout, func() {
		f.vm.Interrupt("timeout")
	})
	defer func() {
		timer.Stop()
		f.vm.ClearInterrupt()
		if r := recover(); r != nil {
			err = fmt.Errorf("script panic: %v", r)
		}
	}()

	err = fn()
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return ErrTimeout
	}
	return err
}

func (f *Filter) newContext(source string, index int) *goja.Object {
	ctx := f.vm.NewObject()
	ctx.Set("source", source)
	ctx.Set("index", index)
	ctx.Set("state", f.state)
	return ctx
}

func (f *Filter) injectHelpers() {
	vm := f.vm

	// jsonPath: gjson query against a JSON string or any JS value
	vm.Set("jsonPath", func(obj interface{}, path string) interface{} {
		var result gjson.Result
		if s, ok := obj.(string); ok {
			if !gjson.Valid(s) {
				return nil
			}
			result = gjson.Get(s, path)
		} else {
			jsonBytes, err := json.Marshal(obj)
			if err != nil {
				return nil
			}
			result = gjson.GetBytes(jsonBytes, path)
		}
		if !result.Exists() {
			return nil
		}
		return result.Value()
	})

	vm.Set("matchRegex", func(regexStr, text string) interface{} {
		re, err := regexp.Compile(regexStr)
		if err != nil {
			return nil
		}
		matches := re.FindStringSubmatch(text)
		if matches == nil {
			return nil
		}
		return matches
	})

	vm.Set("base64Decode", func(encoded string) string {
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			f.logger.Debug().Err(err).Msg("base64Decode failed")
			return ""
		}
		return string(decoded)
	})

	vm.Set("log", func(call goja.FunctionCall) goja.Value {
		args := make([]interface{}, 0, len(call.Arguments))
		for _, a := range call.Arguments {
			args = append(args, a.Export())
		}
		f.logger.Info().Interface("args", args).Msg("script log")
		return goja.Undefined()
	})
}
