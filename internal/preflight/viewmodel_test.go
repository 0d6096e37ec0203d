package preflight

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dshills/missioncontrol/internal/beans"
	"github.com/dshills/missioncontrol/internal/concurrent"
	"github.com/dshills/missioncontrol/internal/drone"
	"github.com/dshills/missioncontrol/internal/metrics"
)

type fixture struct {
	scope  *drone.FlightScope
	falcon *drone.Drone
	sirius *drone.Drone
	vm     *ViewModel
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	scope, err := drone.NewFlightScope(nil)
	require.NoError(t, err)
	falcon, err := drone.New(drone.Platforms["falcon8"], drone.WithSerial("F1"))
	require.NoError(t, err)
	sirius, err := drone.New(drone.Platforms["sirius-pro"], drone.WithSerial("S1"))
	require.NoError(t, err)

	catalog, err := DefaultCatalog()
	require.NoError(t, err)

	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	vm, err := NewViewModel(context.Background(), scope, catalog, opts...)
	require.NoError(t, err)

	t.Cleanup(func() {
		vm.Close()
		scope.Close()
	})
	return &fixture{scope: scope, falcon: falcon, sirius: sirius, vm: vm}
}

func TestViewModel_NoDrone(t *testing.T) {
	f := newFixture(t)

	assert.Nil(t, f.vm.Drone().GetUncritical())
	assert.Nil(t, f.vm.Platform().GetUncritical())
	assert.Nil(t, f.vm.Checklist().GetUncritical())
	assert.Equal(t, 0, f.vm.TotalCount().GetUncritical())
	assert.NoError(t, f.vm.CheckAll(context.Background()))
}

func TestViewModel_FollowsCurrentDrone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.scope.Select(ctx, f.falcon))
	assert.Same(t, f.falcon, f.vm.Drone().GetUncritical())
	require.NotNil(t, f.vm.Checklist().GetUncritical())
	assert.Equal(t, drone.Falcon8, f.vm.Checklist().GetUncritical().AirplaneType)
	assert.Equal(t, 6, f.vm.TotalCount().GetUncritical())

	require.NoError(t, f.scope.Select(ctx, f.sirius))
	assert.Equal(t, drone.SiriusPro, f.vm.Checklist().GetUncritical().AirplaneType)
	assert.Equal(t, 5, f.vm.TotalCount().GetUncritical())

	// The old drone no longer drives the view model.
	require.NoError(t, f.falcon.SetPlatform(ctx, drone.Platforms["falcon8plus"]))
	assert.Equal(t, drone.SiriusPro, f.vm.Checklist().GetUncritical().AirplaneType)
	assert.Equal(t, 0, f.falcon.Platform().ListenerCount())

	// A platform change of the current drone switches the checklist.
	require.NoError(t, f.sirius.SetPlatform(ctx, drone.Platforms["sirius-basic"]))
	assert.Equal(t, drone.SiriusBasic, f.vm.Checklist().GetUncritical().AirplaneType)
}

func TestViewModel_CheckedCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.scope.Select(ctx, f.falcon))
	steps := f.vm.Checklist().GetUncritical().Steps
	require.NoError(t, steps[0].SetChecked(ctx, true))
	require.NoError(t, steps[1].SetChecked(ctx, true))
	assert.Equal(t, 2, f.vm.CheckedCount().GetUncritical())

	require.NoError(t, f.scope.Select(ctx, f.sirius))
	assert.Equal(t, 0, f.vm.CheckedCount().GetUncritical())
	require.NoError(t, f.vm.CheckAll(ctx))
	assert.Equal(t, 5, f.vm.CheckedCount().GetUncritical())

	// Check marks are remembered per airplane type.
	require.NoError(t, f.scope.Select(ctx, f.falcon))
	assert.Equal(t, 2, f.vm.CheckedCount().GetUncritical())
	assert.Equal(t, "Airframe", steps[0].Section)
}

func TestViewModel_UnknownPlatform(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	custom := &drone.PlatformDescription{ID: "custom", Name: "Custom", AirplaneType: "CUSTOM"}
	d, err := drone.New(custom)
	require.NoError(t, err)

	require.NoError(t, f.scope.Select(ctx, d))
	assert.Same(t, custom, f.vm.Platform().GetUncritical())
	assert.Nil(t, f.vm.Checklist().GetUncritical())
	assert.Equal(t, 0, f.vm.TotalCount().GetUncritical())
}

func TestViewModel_LogsCountFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	f := newFixture(t, WithLogger(zap.New(core)))
	ctx := context.Background()

	f.vm.total.Dispose()
	f.vm.checked.Dispose()
	require.NoError(t, f.scope.Select(ctx, f.falcon))
	assert.Equal(t, drone.Falcon8, f.vm.Checklist().GetUncritical().AirplaneType)

	total := logs.FilterMessage("failed to update step count").All()
	require.NotEmpty(t, total)
	assert.Equal(t, int64(6), total[0].ContextMap()["total"])
	assert.Contains(t, total[0].ContextMap()["error"], beans.ErrInvalidState.Error())
	assert.Positive(t, logs.FilterMessage("failed to update checked count").Len())
}

func TestViewModel_OnUIContext(t *testing.T) {
	ui := concurrent.NewAffinity(concurrent.WithName("ui"))
	require.NoError(t, ui.Start())
	defer func() { require.NoError(t, ui.Stop(context.Background())) }()

	scope, err := drone.NewFlightScope(ui)
	require.NoError(t, err)
	defer scope.Close()

	catalog, err := DefaultCatalog()
	require.NoError(t, err)
	vm, err := NewViewModel(context.Background(), scope, catalog)
	require.NoError(t, err)
	defer vm.Close()

	d, err := drone.New(drone.Platforms["sirius-basic"])
	require.NoError(t, err)
	require.NoError(t, scope.Select(context.Background(), d))

	assert.Equal(t, drone.SiriusBasic, vm.Checklist().GetUncritical().AirplaneType)
	assert.Equal(t, uint64(1), ui.Stats().Executed)
}

func TestViewModel_PathMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := newFixture(t, WithMetrics(metrics.NewPaths(reg)))

	require.NoError(t, f.scope.Select(context.Background(), f.falcon))

	n, err := testutil.GatherAndCount(reg, "missioncontrol_path_active_links")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
