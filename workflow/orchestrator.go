package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
)

// Orchestrator manages the execution of steps.
type Orchestrator struct {
	config interface{}
	logger *slog.Logger

	// Dependency injection: type -> per-step factory
	factories map[reflect.Type]func(StepID) reflect.Value

	stepMap         map[StepID]Step
	order           []StepID                 // insertion order, used for Init and reporting
	dependencyMap   map[StepID][]StepID      // step -> steps it waits for
	completionChans map[StepID]chan struct{} // closed when the step reaches a final state
	resultMap       map[StepID]*Result       // protected by mu

	mu sync.RWMutex
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger used for orchestration messages.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger.With("component", "workflow")
	}
}

// WithConfig sets the configuration struct used for `config:"..."` injection.
func WithConfig(config interface{}) Option {
	return func(o *Orchestrator) {
		o.config = config
	}
}

// NewOrchestrator creates a new orchestrator.
func NewOrchestrator(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger:          slog.Default().With("component", "workflow"),
		factories:       make(map[reflect.Type]func(StepID) reflect.Value),
		stepMap:         make(map[StepID]Step),
		dependencyMap:   make(map[StepID][]StepID),
		completionChans: make(map[StepID]chan struct{}),
		resultMap:       make(map[StepID]*Result),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Factory creates a value of type T for the step identified by id.
type Factory[T any] func(id StepID) T

// Shared returns a Factory that hands the same value to every step.
func Shared[T any](v T) Factory[T] {
	return func(StepID) T { return v }
}

// Provide registers a factory for fields of type T. Registering a second
// factory for the same type replaces the first.
func Provide[T any](o *Orchestrator, f Factory[T]) {
	t := reflect.TypeFor[T]()
	o.factories[t] = func(id StepID) reflect.Value {
		return reflect.ValueOf(f(id))
	}
	o.logger.Debug("factory registered", "type", t.String())
}

// AddStep adds one or more steps. Results are available as soon as this returns.
// Adding a second step of the same type is an error.
func (o *Orchestrator) AddStep(steps ...Step) error {
	for _, step := range steps {
		t := reflect.TypeOf(step)
		if t == nil || t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Struct {
			return fmt.Errorf("step %T must be a pointer to a struct", step)
		}

		id := GetStepID(step)
		if _, exists := o.stepMap[id]; exists {
			return fmt.Errorf("step of type %s already exists", id.String())
		}

		o.stepMap[id] = step
		o.order = append(o.order, id)
		o.resultMap[id] = &Result{State: NotStarted}
		o.logger.Debug("step added", "step", id.ShortString())
	}
	return nil
}

// Execute runs all steps, each on its own goroutine as soon as its
// dependencies have completed successfully.
//
// Before any step runs the dependency graph is built, configuration and
// dependencies are injected and every Init() is called. A failure in that
// phase leaves every step NotStarted and is returned directly.
//
// Afterwards each step ends in one of these states:
//   - Completed, Error nil: success
//   - Completed, Error set: Execute() failed
//   - Skipped: a dependency did not succeed or the context was cancelled
//
// The returned error joins the errors of failed and cancelled steps. Steps
// skipped because of a failed dependency do not contribute to it.
func (o *Orchestrator) Execute(ctx context.Context) error {
	if len(o.stepMap) == 0 {
		o.logger.Info("no steps to execute")
		return nil
	}

	o.logger.Debug("starting execution", "step_count", len(o.stepMap))

	if err := o.buildDependencyGraph(); err != nil {
		o.logger.Error("dependency analysis failed", "error", err)
		return fmt.Errorf("dependency analysis failed: %w", err)
	}

	for _, id := range o.order {
		if err := o.stepMap[id].Init(); err != nil {
			o.logger.Error("step initialization failed", "step", id.ShortString(), "error", err)
			return fmt.Errorf("step %s initialization failed: %w", id.ShortString(), err)
		}
	}

	for _, id := range o.order {
		o.completionChans[id] = make(chan struct{})
	}

	var wg sync.WaitGroup
	errorChan := make(chan error, len(o.stepMap))
	for _, id := range o.order {
		wg.Add(1)
		go o.runStep(ctx, id, o.stepMap[id], &wg, errorChan)
	}
	wg.Wait()
	close(errorChan)

	var errs []error
	for err := range errorChan {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		o.logger.Error("execution completed with errors", "error_count", len(errs))
		return errors.Join(errs...)
	}

	o.logger.Debug("execution completed successfully")
	return nil
}

// runStep executes a single step after waiting for its dependencies.
func (o *Orchestrator) runStep(ctx context.Context, id StepID, step Step, wg *sync.WaitGroup, errorChan chan<- error) {
	defer wg.Done()
	defer close(o.completionChans[id])

	logger := o.logger.With("step", id.ShortString())
	o.setResult(id, &Result{State: Pending})

	for _, depID := range o.dependencyMap[id] {
		select {
		case <-ctx.Done():
			o.cancelled(ctx, id, logger, errorChan)
			return
		case <-o.completionChans[depID]:
			if dep := o.GetResult(depID); dep == nil || !dep.IsSuccess() {
				logger.Debug("skipping step, dependency did not succeed", "dependency", depID.ShortString())
				o.setResult(id, &Result{State: Skipped, Error: fmt.Errorf("dependency %s did not succeed", depID.ShortString())})
				return
			}
		}
	}

	if ctx.Err() != nil {
		o.cancelled(ctx, id, logger, errorChan)
		return
	}

	o.setResult(id, &Result{State: Running})
	logger.Debug("executing step")

	err := step.Execute(ctx)
	o.setResult(id, &Result{State: Completed, Error: err})
	if err != nil {
		logger.Error("step failed", "error", err)
		errorChan <- err
		return
	}
	logger.Debug("step completed")
}

func (o *Orchestrator) cancelled(ctx context.Context, id StepID, logger *slog.Logger, errorChan chan<- error) {
	logger.Warn("step cancelled", "error", ctx.Err())
	o.setResult(id, &Result{State: Skipped, Error: fmt.Errorf("cancelled: %w", ctx.Err())})
	errorChan <- fmt.Errorf("step %s cancelled: %w", id.ShortString(), ctx.Err())
}

func (o *Orchestrator) setResult(id StepID, r *Result) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resultMap[id] = r
}

// buildDependencyGraph injects configuration and values, then records step
// dependencies and injects step references.
func (o *Orchestrator) buildDependencyGraph() error {
	stepTypes := make(map[reflect.Type]StepID, len(o.stepMap))
	for id, step := range o.stepMap {
		stepTypes[reflect.TypeOf(step).Elem()] = id
	}

	for _, id := range o.order {
		if err := o.injectValues(o.stepMap[id], id); err != nil {
			return fmt.Errorf("injection failed for %s: %w", id.ShortString(), err)
		}
	}

	for _, id := range o.order {
		stepValue := reflect.ValueOf(o.stepMap[id]).Elem()
		stepType := stepValue.Type()
		deps := []StepID{}

		for i := 0; i < stepType.NumField(); i++ {
			field := stepType.Field(i)
			if field.Tag.Get("config") != "" {
				continue
			}
			unnamed := field.Name == "_"
			if !field.IsExported() && !unnamed {
				continue
			}

			if field.Type.Kind() != reflect.Ptr {
				if _, isStep := stepTypes[field.Type]; isStep {
					return fmt.Errorf("step %s dependency field %s must be a pointer (*%s)",
						id.ShortString(), field.Name, field.Type.Name())
				}
				continue
			}
			if o.isInjectable(field.Type) {
				continue
			}

			depID, isStep := stepTypes[field.Type.Elem()]
			if !isStep {
				continue
			}
			deps = append(deps, depID)
			if !unnamed {
				stepValue.Field(i).Set(reflect.ValueOf(o.stepMap[depID]))
			}
			o.logger.Debug("dependency detected", "step", id.ShortString(), "dependency", depID.ShortString(), "ordering_only", unnamed)
		}

		o.dependencyMap[id] = deps
	}

	if err := o.validateNoCycles(); err != nil {
		return fmt.Errorf("circular dependency detected: %w", err)
	}
	return o.validateDependencies()
}

func (o *Orchestrator) isInjectable(t reflect.Type) bool {
	_, ok := o.factories[t]
	return ok
}

// injectValues handles config and factory injection for one step.
func (o *Orchestrator) injectValues(step Step, id StepID) error {
	stepValue := reflect.ValueOf(step).Elem()
	stepType := stepValue.Type()

	for i := 0; i < stepType.NumField(); i++ {
		field := stepType.Field(i)
		fieldValue := stepValue.Field(i)
		if !fieldValue.CanSet() {
			continue
		}

		if configTag := field.Tag.Get("config"); configTag != "" {
			if err := o.injectConfigValue(fieldValue, configTag); err != nil {
				return fmt.Errorf("config injection failed for field %s: %w", field.Name, err)
			}
			continue
		}

		if factory, ok := o.factories[field.Type]; ok {
			if v := factory(id); v.IsValid() {
				fieldValue.Set(v)
			}
		}
	}
	return nil
}

// validateNoCycles runs Kahn's algorithm over the dependency map.
func (o *Orchestrator) validateNoCycles() error {
	inDegree := make(map[StepID]int, len(o.stepMap))
	dependents := make(map[StepID][]StepID, len(o.stepMap))
	for _, id := range o.order {
		inDegree[id] = len(o.dependencyMap[id])
		for _, dep := range o.dependencyMap[id] {
			dependents[dep] = append(dependents[dep], id)
		}
	}

	queue := []StepID{}
	for _, id := range o.order {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	processed := 0
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		processed++
		for _, next := range dependents[current] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if processed != len(o.stepMap) {
		return fmt.Errorf("only %d of %d steps could be ordered", processed, len(o.stepMap))
	}
	return nil
}

// validateDependencies checks that every named pointer field was injected.
func (o *Orchestrator) validateDependencies() error {
	for _, id := range o.order {
		stepValue := reflect.ValueOf(o.stepMap[id]).Elem()
		stepType := stepValue.Type()

		for i := 0; i < stepType.NumField(); i++ {
			field := stepType.Field(i)
			if !field.IsExported() || field.Type.Kind() != reflect.Ptr || field.Tag.Get("config") != "" {
				continue
			}
			if stepValue.Field(i).IsNil() {
				return fmt.Errorf("step %s has nil dependency: %s (%s)", id.ShortString(), field.Name, field.Type.String())
			}
		}
	}
	return nil
}

// injectConfigValue injects a config value using a dot separated path.
func (o *Orchestrator) injectConfigValue(fieldValue reflect.Value, configPath string) error {
	if o.config == nil {
		o.logger.Debug("no config provided, skipping config injection", "config_path", configPath)
		return nil
	}

	value := reflect.ValueOf(o.config)
	for _, part := range strings.Split(configPath, ".") {
		for value.Kind() == reflect.Ptr {
			if value.IsNil() {
				return fmt.Errorf("config path %s: nil pointer before %q", configPath, part)
			}
			value = value.Elem()
		}
		if value.Kind() != reflect.Struct {
			return fmt.Errorf("config path %s: expected struct, got %s", configPath, value.Kind())
		}
		if part == "" {
			return fmt.Errorf("config path %s: empty element", configPath)
		}

		fieldVal := value.FieldByName(part)
		if !fieldVal.IsValid() {
			fieldVal = value.FieldByName(strings.ToUpper(part[:1]) + part[1:])
		}
		if !fieldVal.IsValid() {
			fieldVal = value.FieldByName(strings.ToUpper(part))
		}
		if !fieldVal.IsValid() {
			typ := value.Type()
			for i := 0; i < typ.NumField(); i++ {
				if yamlTag := typ.Field(i).Tag.Get("yaml"); yamlTag != "" {
					if strings.Split(yamlTag, ",")[0] == part {
						fieldVal = value.Field(i)
						break
					}
				}
			}
		}
		if !fieldVal.IsValid() {
			return fmt.Errorf("config path %s: field for '%s' not found", configPath, part)
		}
		value = fieldVal
	}

	if !value.Type().AssignableTo(fieldValue.Type()) {
		return fmt.Errorf("config path %s: type %s not assignable to %s", configPath, value.Type(), fieldValue.Type())
	}
	fieldValue.Set(value)
	return nil
}

// GetResult returns the result for a step ID.
func (o *Orchestrator) GetResult(id StepID) *Result {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.resultMap[id]
}

// GetAllResults returns a copy of all step results.
func (o *Orchestrator) GetAllResults() map[StepID]*Result {
	o.mu.RLock()
	defer o.mu.RUnlock()

	results := make(map[StepID]*Result, len(o.resultMap))
	for id, result := range o.resultMap {
		results[id] = result
	}
	return results
}

// Steps returns the step IDs in the order they were added.
func (o *Orchestrator) Steps() []StepID {
	out := make([]StepID, len(o.order))
	copy(out, o.order)
	return out
}
