package preflight

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/dshills/missioncontrol/internal/beans/property"
	"github.com/dshills/missioncontrol/internal/drone"
	"github.com/dshills/missioncontrol/internal/metrics"
)

// Step is one checkable line of the active checklist.
type Step struct {
	Section string
	Text    string
	checked *property.Property[bool]
}

// Checked returns the checked state.
func (s *Step) Checked() property.ReadOnly[bool] { return s.checked }

// SetChecked marks the step.
func (s *Step) SetChecked(ctx context.Context, v bool) error {
	return s.checked.Set(ctx, v)
}

// ActiveChecklist is the checklist shown for one airplane type. Check marks
// are kept per airplane type while the view model lives.
type ActiveChecklist struct {
	AirplaneType drone.AirplaneType
	Steps        []*Step
}

// ViewModel follows the current drone of a flight scope and exposes the
// preflight checklist of its platform.
type ViewModel struct {
	logger  *zap.Logger
	catalog Catalog

	drone     *property.Property[*drone.Drone]
	platform  *property.Path[*drone.PlatformDescription]
	checklist *property.Property[*ActiveChecklist]
	checked   *property.Property[int]
	total     *property.Property[int]

	mu          sync.Mutex
	byType      map[drone.AirplaneType]*ActiveChecklist
	stepSubs    []*property.Subscription
	platformSub *property.Subscription
}

type vmOptions struct {
	logger  *zap.Logger
	metrics *metrics.Paths
}

// Option configures a ViewModel.
type Option func(*vmOptions)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *vmOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records the platform path on m.
func WithMetrics(m *metrics.Paths) Option {
	return func(o *vmOptions) {
		o.metrics = m
	}
}

// NewViewModel binds the view model's drone to the scope's current drone
// and derives the platform description through a property path.
func NewViewModel(ctx context.Context, scope *drone.FlightScope, catalog Catalog, opts ...Option) (*ViewModel, error) {
	o := vmOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	vm := &ViewModel{
		logger:  o.logger,
		catalog: catalog,
		byType:  make(map[drone.AirplaneType]*ActiveChecklist),
	}

	var err error
	if vm.drone, err = property.New(vm, property.NewBuilder[*drone.Drone]().Name("drone").MustCreate()); err != nil {
		return nil, err
	}
	if vm.checklist, err = property.New(vm, property.NewBuilder[*ActiveChecklist]().Name("checklist").MustCreate()); err != nil {
		return nil, err
	}
	if vm.checked, err = property.New(vm, property.NewBuilder[int]().Name("checkedCount").MustCreate()); err != nil {
		return nil, err
	}
	if vm.total, err = property.New(vm, property.NewBuilder[int]().Name("totalCount").MustCreate()); err != nil {
		return nil, err
	}

	if err := vm.drone.Bind(ctx, scope.CurrentDrone()); err != nil {
		return nil, err
	}

	vm.platform, err = property.Select(
		property.From[*drone.Drone](vm.drone),
		func(d *drone.Drone) property.ReadOnly[*drone.PlatformDescription] { return d.Platform() },
	).Build(
		property.WithPathName[*drone.PlatformDescription]("platformDescription"),
		property.WithPathMetrics[*drone.PlatformDescription](o.metrics),
	)
	if err != nil {
		vm.drone.Dispose()
		return nil, err
	}

	vm.platformSub = vm.platform.AddListener(func(property.ReadOnly[*drone.PlatformDescription], *drone.PlatformDescription, *drone.PlatformDescription) {
		vm.update()
	})
	vm.update()

	return vm, nil
}

// Drone returns the drone the view model follows.
func (vm *ViewModel) Drone() property.ReadOnly[*drone.Drone] { return vm.drone }

// Platform returns the platform description of the followed drone.
func (vm *ViewModel) Platform() property.ReadOnly[*drone.PlatformDescription] { return vm.platform }

// Checklist returns the active checklist, nil when the platform has none.
func (vm *ViewModel) Checklist() property.ReadOnly[*ActiveChecklist] { return vm.checklist }

// CheckedCount returns the number of checked steps of the active checklist.
func (vm *ViewModel) CheckedCount() property.ReadOnly[int] { return vm.checked }

// TotalCount returns the number of steps of the active checklist.
func (vm *ViewModel) TotalCount() property.ReadOnly[int] { return vm.total }

// CheckAll checks every step of the active checklist.
func (vm *ViewModel) CheckAll(ctx context.Context) error {
	cl := vm.checklist.GetUncritical()
	if cl == nil {
		return nil
	}
	for _, s := range cl.Steps {
		if err := s.SetChecked(ctx, true); err != nil {
			return err
		}
	}
	return nil
}

// Close releases all subscriptions.
func (vm *ViewModel) Close() {
	vm.platformSub.Remove()
	vm.platform.Dispose()
	vm.drone.Dispose()

	vm.mu.Lock()
	for _, s := range vm.stepSubs {
		s.Remove()
	}
	vm.stepSubs = nil
	vm.mu.Unlock()
}

// update switches the active checklist to the one of the current platform.
// It runs from listeners on arbitrary goroutines, so it writes with a fresh
// caller identity.
func (vm *ViewModel) update() {
	ctx := context.Background()
	platform := vm.platform.GetUncritical()

	var cl *ActiveChecklist
	if platform != nil {
		cl = vm.checklistFor(platform.AirplaneType)
	}

	vm.mu.Lock()
	for _, s := range vm.stepSubs {
		s.Remove()
	}
	vm.stepSubs = nil
	total := 0
	if cl != nil {
		for _, s := range cl.Steps {
			vm.stepSubs = append(vm.stepSubs, s.checked.AddListener(func(property.ReadOnly[bool], bool, bool) {
				vm.recount(context.Background())
			}))
		}
		total = len(cl.Steps)
	}
	vm.mu.Unlock()

	if err := vm.checklist.Set(ctx, cl); err != nil {
		vm.logger.Warn("failed to switch checklist", zap.Error(err))
		return
	}
	if err := vm.total.Set(ctx, total); err != nil {
		vm.logger.Warn("failed to update step count", zap.Int("total", total), zap.Error(err))
	}
	vm.recount(ctx)

	if platform != nil {
		vm.logger.Debug("preflight checklist selected",
			zap.String("platform", platform.Name),
			zap.String("airplaneType", string(platform.AirplaneType)),
			zap.Bool("found", cl != nil),
			zap.Int("steps", total))
	}
}

func (vm *ViewModel) checklistFor(t drone.AirplaneType) *ActiveChecklist {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	if cl, ok := vm.byType[t]; ok {
		return cl
	}
	src, ok := vm.catalog[t]
	if !ok {
		return nil
	}

	cl := &ActiveChecklist{AirplaneType: t}
	for _, it := range src.Items {
		for _, text := range it.Steps {
			cl.Steps = append(cl.Steps, &Step{
				Section: it.Title,
				Text:    text,
				checked: property.MustNew(vm, property.NewBuilder[bool]().Name(it.Title+": "+text).MustCreate()),
			})
		}
	}
	vm.byType[t] = cl
	return cl
}

func (vm *ViewModel) recount(ctx context.Context) {
	cl := vm.checklist.GetUncritical()
	n := 0
	if cl != nil {
		for _, s := range cl.Steps {
			if s.checked.GetUncritical() {
				n++
			}
		}
	}
	if err := vm.checked.Set(ctx, n); err != nil {
		vm.logger.Warn("failed to update checked count", zap.Int("checked", n), zap.Error(err))
	}
}
