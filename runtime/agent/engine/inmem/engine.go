// Package inmem provides an in-memory implementation of the workflow engine
// for testing and development.
package inmem

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/distrihub/agentd/runtime/agent/api"
	"github.com/distrihub/agentd/runtime/agent/engine"
	"github.com/distrihub/agentd/runtime/agent/telemetry"
)

type (
	eng struct {
		mu         sync.RWMutex
		workflows  map[string]engine.WorkflowDefinition
		activities map[string]inmemActivity
		statuses   map[string]engine.RunStatus // tracks workflow status by runID
	}

	childHandle struct {
		h engine.WorkflowHandle
	}

	handle struct {
		mu     sync.Mutex
		done   chan struct{}
		err    error
		result *api.RunOutput
		wfCtx  *wfCtx
	}

	wfCtx struct {
		ctx     context.Context
		id      string
		runID   string
		logger  telemetry.Logger
		metrics telemetry.Metrics
		tracer  telemetry.Tracer
		eng     *eng

		sigMu *sync.Mutex
		sigs  map[string]*signalChan
	}

	future struct {
		mu     sync.Mutex
		ready  chan struct{}
		result any
		err    error
	}

	signalChan struct{ ch chan any }

	inmemActivity struct {
		handler func(context.Context, any) (any, error)
		opts    engine.ActivityOptions
	}
)

// New returns a new in-memory Engine implementation suitable for local
// development, tests, and simple single-process runs. It is not deterministic
// or replay-safe and should not be used for production workloads.
func New() engine.Engine {
	return &eng{
		statuses: make(map[string]engine.RunStatus),
	}
}

func (e *eng) RegisterWorkflow(ctx context.Context, def engine.WorkflowDefinition) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.workflows == nil {
		e.workflows = make(map[string]engine.WorkflowDefinition)
	}
	if _, dup := e.workflows[def.Name]; dup {
		return fmt.Errorf("workflow %q already registered", def.Name)
	}
	if def.Handler == nil || def.Name == "" {
		return errors.New("invalid workflow definition")
	}
	e.workflows[def.Name] = def
	return nil
}

// RegisterActivity registers a generic activity definition with the engine,
// satisfying engine.Engine.
func (e *eng) RegisterActivity(ctx context.Context, def engine.ActivityDefinition) error {
	if def.Handler == nil || def.Name == "" {
		return errors.New("invalid activity definition")
	}
	handler := func(c context.Context, input any) (any, error) {
		return def.Handler(c, input)
	}
	return e.registerActivity(ctx, def.Name, handler, def.Options)
}

// RegisterPlannerActivity registers a typed planner activity (PlanStart/PlanResume).
func (e *eng) RegisterPlannerActivity(ctx context.Context, name string, opts engine.ActivityOptions, fn func(context.Context, *api.PlanActivityInput) (*api.PlanActivityOutput, error)) error {
	if name == "" || fn == nil {
		return errors.New("invalid planner activity definition")
	}
	return e.registerActivity(ctx, name, func(c context.Context, input any) (any, error) {
		in, _ := input.(*api.PlanActivityInput)
		if in == nil {
			if v, ok := input.(api.PlanActivityInput); ok {
				in = &v
			}
		}
		if in == nil {
			return nil, errors.New("invalid planner activity input")
		}
		return fn(c, in)
	}, opts)
}

// RegisterExecuteToolActivity registers a typed execute_tool activity.
func (e *eng) RegisterExecuteToolActivity(ctx context.Context, name string, opts engine.ActivityOptions, fn func(context.Context, *api.ToolInput) (*api.ToolOutput, error)) error {
	if name == "" || fn == nil {
		return errors.New("invalid execute tool activity definition")
	}
	return e.registerActivity(ctx, name, func(c context.Context, input any) (any, error) {
		in, _ := input.(*api.ToolInput)
		if in == nil {
			if v, ok := input.(api.ToolInput); ok {
				in = &v
			}
		}
		if in == nil {
			return nil, errors.New("invalid tool activity input")
		}
		return fn(c, in)
	}, opts)
}

func (e *eng) StartWorkflow(ctx context.Context, req engine.WorkflowStartRequest) (engine.WorkflowHandle, error) {
	e.mu.RLock()
	def, ok := e.workflows[req.Workflow]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("workflow %q not registered", req.Workflow)
	}
	if req.ID == "" {
		return nil, errors.New("workflow id is required")
	}

	wctx := &wfCtx{
		ctx:     ctx,
		id:      req.ID,
		runID:   req.ID, // in-memory assigns same ID as run
		logger:  telemetry.NoopLogger{},
		metrics: telemetry.NoopMetrics{},
		tracer:  telemetry.NoopTracer{},
		eng:     e,
		sigMu:   &sync.Mutex{},
		sigs:    make(map[string]*signalChan),
	}

	h := &handle{done: make(chan struct{}), wfCtx: wctx}

	// Track workflow as running
	e.mu.Lock()
	if e.statuses == nil {
		e.statuses = make(map[string]engine.RunStatus)
	}
	e.statuses[req.ID] = engine.RunStatusRunning
	e.mu.Unlock()

	go func() {
		defer close(h.done)
		res, err := def.Handler(wctx, req.Input)
		out, ok := res.(*api.RunOutput)
		if !ok && res != nil && err == nil {
			err = fmt.Errorf("workflow %q returned unexpected result type %T", req.Workflow, res)
		}
		h.mu.Lock()
		h.result = out
		h.err = err
		h.mu.Unlock()
		// Update status based on completion
		e.mu.Lock()
		if err != nil {
			if errors.Is(err, context.Canceled) {
				e.statuses[req.ID] = engine.RunStatusCanceled
			} else {
				e.statuses[req.ID] = engine.RunStatusFailed
			}
		} else {
			e.statuses[req.ID] = engine.RunStatusCompleted
		}
		e.mu.Unlock()
	}()

	return h, nil
}

func (e *eng) registerActivity(_ context.Context, name string, handler func(context.Context, any) (any, error), opts engine.ActivityOptions) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.activities == nil {
		e.activities = make(map[string]inmemActivity)
	}
	if _, dup := e.activities[name]; dup {
		return fmt.Errorf("activity %q already registered", name)
	}
	if handler == nil || name == "" {
		return errors.New("invalid activity definition")
	}
	e.activities[name] = inmemActivity{handler: handler, opts: opts}
	return nil
}

// StartChildWorkflow starts a new in-memory workflow using the engine and returns an adapter handle.
func (w *wfCtx) StartChildWorkflow(ctx context.Context, req engine.ChildWorkflowRequest) (engine.ChildWorkflowHandle, error) {
	h, err := w.eng.StartWorkflow(ctx, engine.WorkflowStartRequest{
		ID:          req.ID,
		Workflow:    req.Workflow,
		TaskQueue:   req.TaskQueue,
		Input:       req.Input,
		RunTimeout:  req.RunTimeout,
		RetryPolicy: req.RetryPolicy,
	})
	if err != nil {
		return nil, err
	}
	return &childHandle{h: h}, nil
}

func (c *childHandle) Get(ctx context.Context) (*api.RunOutput, error) {
	return c.h.Wait(ctx)
}
func (c *childHandle) Cancel(ctx context.Context) error { return c.h.Cancel(ctx) }
func (c *childHandle) RunID() string                    { return "" }

// IsReady reports whether the child workflow has completed.
func (c *childHandle) IsReady() bool {
	h, ok := c.h.(*handle)
	if !ok {
		return false
	}
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

func (h *handle) Wait(ctx context.Context) (*api.RunOutput, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.result, h.err
	}
}

func (h *handle) Signal(ctx context.Context, name string, payload any) error {
	ch := h.wfCtx.SignalChannel(name).(*signalChan)
	select {
	case ch.ch <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return errors.New("workflow completed")
	}
}

func (h *handle) Cancel(ctx context.Context) error {
	// In-memory: best-effort cancellation via context cancellation is not wired.
	// Return nil to match no-op behavior.
	return nil
}

// QueryRunStatus returns the current lifecycle status for a workflow execution
// by checking the in-memory status map.
func (e *eng) QueryRunStatus(ctx context.Context, runID string) (engine.RunStatus, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	status, ok := e.statuses[runID]
	if !ok {
		return "", engine.ErrWorkflowNotFound
	}
	return status, nil
}

func (w *wfCtx) Context() context.Context   { return w.ctx }
func (w *wfCtx) WorkflowID() string         { return w.id }
func (w *wfCtx) RunID() string              { return w.runID }
func (w *wfCtx) Logger() telemetry.Logger   { return w.logger }
func (w *wfCtx) Metrics() telemetry.Metrics { return w.metrics }
func (w *wfCtx) Tracer() telemetry.Tracer   { return w.tracer }
func (w *wfCtx) Now() time.Time             { return time.Now() }

// SetQueryHandler is a no-op for the in-memory engine.
func (w *wfCtx) SetQueryHandler(name string, handler any) error { return nil }

func (w *wfCtx) ExecuteActivity(ctx context.Context, req engine.ActivityRequest, result any) error {
	fut, err := w.ExecuteActivityAsync(ctx, req)
	if err != nil {
		return err
	}
	return fut.Get(ctx, result)
}

func (w *wfCtx) ExecuteActivityAsync(ctx context.Context, req engine.ActivityRequest) (engine.ActivityFuture, error) {
	w.eng.mu.RLock()
	def, ok := w.eng.activities[req.Name]
	w.eng.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("activity %q not registered", req.Name)
	}
	f := &future{ready: make(chan struct{})}
	go func() {
		defer close(f.ready)
		res, err := def.handler(ctx, req.Input)
		f.mu.Lock()
		f.result = res
		f.err = err
		f.mu.Unlock()
	}()
	return f, nil
}

func (f *future) Get(ctx context.Context, result any) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.ready:
		f.mu.Lock()
		defer f.mu.Unlock()
		assignResult(result, f.result)
		return f.err
	}
}

func (f *future) IsReady() bool {
	select {
	case <-f.ready:
		return true
	default:
		return false
	}
}

func (s *signalChan) Receive(ctx context.Context, dest any) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case v := <-s.ch:
		assignResult(dest, v)
		return nil
	}
}

func (s *signalChan) ReceiveAsync(dest any) bool {
	select {
	case v := <-s.ch:
		assignResult(dest, v)
		return true
	default:
		return false
	}
}

func (w *wfCtx) SignalChannel(name string) engine.SignalChannel {
	w.sigMu.Lock()
	defer w.sigMu.Unlock()
	ch, ok := w.sigs[name]
	if !ok {
		ch = &signalChan{ch: make(chan any, 1)}
		w.sigs[name] = ch
	}
	return ch
}

// futureAdapter bridges the reflection-based ActivityFuture to the typed
// engine.Future[T] interface used by typed planner/tool activities.
type futureAdapter[T any] struct {
	inner engine.ActivityFuture
}

func (f *futureAdapter[T]) Get(ctx context.Context) (T, error) {
	var out T
	err := f.inner.Get(ctx, &out)
	return out, err
}

func (f *futureAdapter[T]) IsReady() bool { return f.inner.IsReady() }

func (w *wfCtx) activityFutureFor(ctx context.Context, name string, input any, opts engine.ActivityOptions) (engine.ActivityFuture, error) {
	return w.ExecuteActivityAsync(ctx, engine.ActivityRequest{
		Name:        name,
		Input:       input,
		Queue:       opts.Queue,
		RetryPolicy: opts.RetryPolicy,
		Timeout:     opts.Timeout,
	})
}

func (w *wfCtx) PublishHook(ctx context.Context, call engine.HookActivityCall) error {
	if call.Name == "" {
		return errors.New("hook activity name is required")
	}
	fut, err := w.activityFutureFor(ctx, call.Name, call.Input, call.Options)
	if err != nil {
		return err
	}
	var ignored any
	return fut.Get(ctx, &ignored)
}

func (w *wfCtx) ExecutePlannerActivity(ctx context.Context, call engine.PlannerActivityCall) (*api.PlanActivityOutput, error) {
	if call.Name == "" {
		return nil, errors.New("planner activity name is required")
	}
	fut, err := w.activityFutureFor(ctx, call.Name, call.Input, call.Options)
	if err != nil {
		return nil, err
	}
	var out *api.PlanActivityOutput
	if err := fut.Get(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (w *wfCtx) ExecuteToolActivity(ctx context.Context, call engine.ToolActivityCall) (*api.ToolOutput, error) {
	fut, err := w.ExecuteToolActivityAsync(ctx, call)
	if err != nil {
		return nil, err
	}
	return fut.Get(ctx)
}

func (w *wfCtx) ExecuteToolActivityAsync(ctx context.Context, call engine.ToolActivityCall) (engine.Future[*api.ToolOutput], error) {
	if call.Name == "" {
		return nil, errors.New("tool activity name is required")
	}
	fut, err := w.activityFutureFor(ctx, call.Name, call.Input, call.Options)
	if err != nil {
		return nil, err
	}
	return &futureAdapter[*api.ToolOutput]{inner: fut}, nil
}

// typedReceiver adapts the in-memory engine's untyped SignalChannel to the
// generic Receiver[T] interface used by typed external-signal accessors.
type typedReceiver[T any] struct {
	ch *signalChan
}

func (r *typedReceiver[T]) Receive(ctx context.Context) (T, error) {
	var out T
	err := r.ch.Receive(ctx, &out)
	return out, err
}

func (r *typedReceiver[T]) ReceiveWithTimeout(ctx context.Context, timeout time.Duration) (T, error) {
	var out T
	if timeout <= 0 {
		return out, context.DeadlineExceeded
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := r.ch.Receive(cctx, &out)
	if err != nil && cctx.Err() == context.DeadlineExceeded {
		return out, context.DeadlineExceeded
	}
	return out, err
}

func (r *typedReceiver[T]) ReceiveAsync() (T, bool) {
	var out T
	ok := r.ch.ReceiveAsync(&out)
	return out, ok
}

func (w *wfCtx) typedSignal(name string) *signalChan {
	return w.SignalChannel(name).(*signalChan)
}

func (w *wfCtx) PauseRequests() engine.Receiver[api.PauseRequest] {
	return &typedReceiver[api.PauseRequest]{ch: w.typedSignal(api.SignalPause)}
}

func (w *wfCtx) ResumeRequests() engine.Receiver[api.ResumeRequest] {
	return &typedReceiver[api.ResumeRequest]{ch: w.typedSignal(api.SignalResume)}
}

func (w *wfCtx) ClarificationAnswers() engine.Receiver[api.ClarificationAnswer] {
	return &typedReceiver[api.ClarificationAnswer]{ch: w.typedSignal(api.SignalProvideClarification)}
}

func (w *wfCtx) ExternalToolResults() engine.Receiver[api.ToolResultsSet] {
	return &typedReceiver[api.ToolResultsSet]{ch: w.typedSignal(api.SignalProvideToolResults)}
}

func (w *wfCtx) ConfirmationDecisions() engine.Receiver[api.ConfirmationDecision] {
	return &typedReceiver[api.ConfirmationDecision]{ch: w.typedSignal(api.SignalProvideConfirmation)}
}

// timerFuture implements engine.Future[time.Time] for the in-memory engine's
// best-effort, non-deterministic timer support.
type timerFuture struct {
	done   chan struct{}
	fireAt time.Time
	ready  bool
}

func (f *timerFuture) Get(ctx context.Context) (time.Time, error) {
	if f.ready {
		return f.fireAt, nil
	}
	select {
	case <-ctx.Done():
		return time.Time{}, ctx.Err()
	case <-f.done:
		return f.fireAt, nil
	}
}

func (f *timerFuture) IsReady() bool {
	if f.ready {
		return true
	}
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

func (w *wfCtx) NewTimer(ctx context.Context, d time.Duration) (engine.Future[time.Time], error) {
	if d <= 0 {
		return &timerFuture{ready: true, fireAt: time.Now()}, nil
	}
	tf := &timerFuture{done: make(chan struct{}), fireAt: time.Now().Add(d)}
	go func() {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
		}
		close(tf.done)
	}()
	return tf, nil
}

// Await polls condition until it is true or ctx is canceled. The in-memory
// engine is not replay-safe, so unlike Temporal's workflow.Await this is a
// plain busy-poll rather than a deterministic coroutine wakeup.
func (w *wfCtx) Await(ctx context.Context, condition func() bool) error {
	if condition == nil {
		return errors.New("await condition is required")
	}
	for {
		if condition() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func (w *wfCtx) WithCancel() (engine.WorkflowContext, func()) {
	cctx, cancel := context.WithCancel(w.ctx)
	return &wfCtx{
		ctx:     cctx,
		id:      w.id,
		runID:   w.runID,
		logger:  w.logger,
		metrics: w.metrics,
		tracer:  w.tracer,
		eng:     w.eng,
		sigMu:   w.sigMu,
		sigs:    w.sigs,
	}, cancel
}

func (w *wfCtx) Detached() engine.WorkflowContext {
	return &wfCtx{
		ctx:     context.WithoutCancel(w.ctx),
		id:      w.id,
		runID:   w.runID,
		logger:  w.logger,
		metrics: w.metrics,
		tracer:  w.tracer,
		eng:     w.eng,
		sigMu:   w.sigMu,
		sigs:    w.sigs,
	}
}

func assignResult(dst any, src any) {
	if dst == nil || src == nil {
		return
	}
	dv := reflect.ValueOf(dst)
	if dv.Kind() != reflect.Ptr || dv.IsNil() {
		return
	}
	sv := reflect.ValueOf(src)
	// Direct assignable types
	if sv.IsValid() && sv.Type().AssignableTo(dv.Elem().Type()) {
		dv.Elem().Set(sv)
		return
	}
	// Allow setting interface pointers when value implements the interface
	if dv.Elem().Kind() == reflect.Interface && sv.Type().Implements(dv.Elem().Type()) {
		dv.Elem().Set(sv)
		return
	}
}
