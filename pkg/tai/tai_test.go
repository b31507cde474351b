package tai

import (
	"errors"
	"os"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/OpenTraceLab/OpenTraceTAI/internal/logging"
	"github.com/OpenTraceLab/OpenTraceTAI/pkg/console"
	"github.com/OpenTraceLab/OpenTraceTAI/pkg/fake"
	"github.com/OpenTraceLab/OpenTraceTAI/pkg/target"
	"github.com/OpenTraceLab/OpenTraceTAI/pkg/telemetry"
)

func TestMain(m *testing.M) {
	logging.ConfigureTests()
	os.Exit(m.Run())
}

type fakes struct {
	target  *target.Target
	console *console.SimConsole
	power   *fake.PowerDriver
	reset   *fake.ResetDriver
	sysboot *fake.SysbootDriver
	config  *fake.ConfigDriver
	meter   *fake.PowerMeterDriver

	mu     sync.Mutex
	events []string
}

func newFakes(t *testing.T) *fakes {
	t.Helper()
	f := &fakes{target: target.New("main"), console: console.NewSimConsole("TivaSerial")}
	var err error
	if f.power, err = fake.NewPowerDriver(f.target, "FakePowerDriver", f.console); err != nil {
		t.Fatalf("power: %v", err)
	}
	if f.reset, err = fake.NewResetDriver(f.target, "FakePorDriver", f.console); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if f.sysboot, err = fake.NewSysbootDriver(f.target, "FakeSysbootDriver", f.console); err != nil {
		t.Fatalf("sysboot: %v", err)
	}
	if f.config, err = fake.NewConfigDriver(f.target, "FakeConfigDriver", f.console); err != nil {
		t.Fatalf("config: %v", err)
	}
	if f.meter, err = fake.NewPowerMeterDriver(f.target, "FakePowerMeterDriver", f.console); err != nil {
		t.Fatalf("meter: %v", err)
	}
	f.meter.Rows = []telemetry.RailData{{Index: 0, RailName: "vdd_core", Power: 12.5}}

	trace := func(driver, event string) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.events = append(f.events, event+" "+driver)
	}
	f.power.Trace = trace
	f.reset.Trace = trace
	f.sysboot.Trace = trace
	f.config.Trace = trace
	f.meter.Trace = trace
	return f
}

func (f *fakes) takeEvents() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.events
	f.events = nil
	return out
}

func newFacade(t *testing.T, f *fakes, b Bindings) *Driver {
	t.Helper()
	d, err := New(f.target, "BoardAutomation", b)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func TestFacadeDelegatesEveryOperation(t *testing.T) {
	f := newFakes(t)
	d := newFacade(t, f, DefaultBindings())

	steps := []struct {
		name   string
		call   func() error
		active target.Driver
	}{
		{"reset", d.Reset, f.reset},
		{"por", d.POR, f.reset},
		{"hold_por", d.HoldPOR, f.reset},
		{"release_por", d.ReleasePOR, f.reset},
		{"set_dut", func() error { return d.SetDUT("abcd") }, f.config},
		{"set_bootmode", func() error { return d.SetBootmode("0243") }, f.sysboot},
		{"measure_power", func() error {
			rows, err := d.MeasurePower(5, 5)
			if err == nil && !reflect.DeepEqual(rows, f.meter.Rows) {
				t.Errorf("MeasurePower rows = %+v", rows)
			}
			return err
		}, f.meter},
		{"power_on", d.PowerOn, f.power},
		{"power_off", d.PowerOff, f.power},
	}

	for _, s := range steps {
		if err := s.call(); err != nil {
			t.Fatalf("%s: %v", s.name, err)
		}
		active := f.target.Active(f.console.ID())
		if len(active) != 1 || active[0] != s.active {
			t.Fatalf("after %s active drivers = %v, want only %s", s.name, active, s.active.Name())
		}
	}

	checks := []struct {
		calls []fake.Call
		want  []fake.Call
	}{
		{f.power.Calls(), []fake.Call{{Op: "on"}, {Op: "off"}}},
		{f.reset.Calls(), []fake.Call{{Op: "reset"}, {Op: "por"}, {Op: "hold_por"}, {Op: "release_por"}}},
		{f.config.Calls(), []fake.Call{{Op: "set_dut", Args: []any{"abcd"}}}},
		{f.sysboot.Calls(), []fake.Call{{Op: "set_bootmode", Args: []any{"0243"}}}},
		{f.meter.Calls(), []fake.Call{{Op: "measure_power", Args: []any{5, 5}}}},
	}
	for _, c := range checks {
		if !reflect.DeepEqual(c.calls, c.want) {
			t.Fatalf("calls = %+v, want %+v", c.calls, c.want)
		}
	}
}

func TestFacadeActivationOrder(t *testing.T) {
	f := newFakes(t)
	d := newFacade(t, f, DefaultBindings())

	if err := d.PowerOn(); err != nil {
		t.Fatalf("PowerOn: %v", err)
	}
	if err := d.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	want := []string{"activate FakePowerDriver", "deactivate FakePowerDriver", "activate FakePorDriver"}
	if got := f.takeEvents(); !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}

	// Consecutive calls on the same capability do not churn activation.
	if err := d.POR(); err != nil {
		t.Fatalf("POR: %v", err)
	}
	if got := f.takeEvents(); len(got) != 0 {
		t.Fatalf("unexpected events on re-activation: %v", got)
	}
	if act, deact := f.reset.HookCounts(); act != 1 || deact != 0 {
		t.Fatalf("reset hook counts = %d/%d, want 1/0", act, deact)
	}
}

func TestFacadeUnboundCapability(t *testing.T) {
	f := newFakes(t)
	d := newFacade(t, f, Bindings{target.CapabilityPower: "FakePowerDriver"})

	if err := d.SetDUT("abcd"); !errors.Is(err, target.ErrUnboundCapability) {
		t.Fatalf("SetDUT = %v, want ErrUnboundCapability", err)
	}
	if _, err := d.MeasurePower(1, 1); !errors.Is(err, target.ErrUnboundCapability) {
		t.Fatalf("MeasurePower = %v, want ErrUnboundCapability", err)
	}
	if n := len(f.config.Calls()); n != 0 {
		t.Fatalf("config driver called %d times", n)
	}
	if err := d.PowerOn(); err != nil {
		t.Fatalf("PowerOn: %v", err)
	}
	if _, ok := d.Bound(target.CapabilityConfiguration); ok {
		t.Fatalf("configuration must be unbound")
	}
}

func TestFacadePropagatesErrors(t *testing.T) {
	f := newFakes(t)
	d := newFacade(t, f, DefaultBindings())

	relayStuck := errors.New("relay stuck")
	f.power.Err = relayStuck
	if err := d.PowerOn(); err != relayStuck {
		t.Fatalf("PowerOn = %v, want the driver's error unchanged", err)
	}

	busy := errors.New("busy")
	f.power.DeactivateErr = busy
	err := d.Reset()
	if !errors.Is(err, target.ErrDeactivationFailed) || !errors.Is(err, busy) {
		t.Fatalf("Reset = %v, want ErrDeactivationFailed", err)
	}
	if n := f.reset.CallCount("reset"); n != 0 {
		t.Fatalf("reset driver called %d times after failed arbitration", n)
	}
	if f.target.State("FakePorDriver") != target.StateInactive {
		t.Fatalf("reset driver must stay inactive")
	}
	if active := f.target.Active(f.console.ID()); len(active) != 1 || active[0] != target.Driver(f.power) {
		t.Fatalf("active drivers = %v", active)
	}
}

func TestNewValidatesBindings(t *testing.T) {
	f := newFakes(t)

	tests := []struct {
		name string
		b    Bindings
	}{
		{name: "unknown driver", b: Bindings{target.CapabilityPower: "missing"}},
		{name: "wrong capability", b: Bindings{target.CapabilitySysboot: "FakePowerDriver"}},
		{name: "automation", b: Bindings{target.CapabilityAutomation: ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(f.target, "tai-"+tt.name, tt.b); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	d := newFacade(t, f, DefaultBindings())
	if _, err := f.target.Resolve(target.CapabilityAutomation, ""); err != nil {
		t.Fatalf("facade not registered: %v", err)
	}
	if len(d.Resources()) != 0 {
		t.Fatalf("facade must not hold transport resources")
	}
	if _, err := New(f.target, "BoardAutomation", DefaultBindings()); err == nil {
		t.Fatalf("expected error for duplicate facade name")
	}
}

// busy is a driver that tracks how many calls are using its console at once.
type busy struct {
	target.Base
	inFlight *int32
	peak     *int32
	inactive *int32
}

func (b *busy) use() error {
	n := atomic.AddInt32(b.inFlight, 1)
	defer atomic.AddInt32(b.inFlight, -1)
	for {
		p := atomic.LoadInt32(b.peak)
		if n <= p || atomic.CompareAndSwapInt32(b.peak, p, n) {
			break
		}
	}
	time.Sleep(200 * time.Microsecond)
	if err := b.CheckActive(); err != nil {
		atomic.AddInt32(b.inactive, 1)
	}
	return nil
}

type busyPower struct{ busy }

func (d *busyPower) Capabilities() []target.Capability {
	return []target.Capability{target.CapabilityPower}
}
func (d *busyPower) On() error  { return d.use() }
func (d *busyPower) Off() error { return d.use() }

type busyMeter struct{ busy }

func (d *busyMeter) Capabilities() []target.Capability {
	return []target.Capability{target.CapabilityPowerMeter}
}
func (d *busyMeter) MeasurePower(samples, delayMs int) ([]telemetry.RailData, error) {
	return nil, d.use()
}

func TestFacadeSerializesConcurrentCalls(t *testing.T) {
	tg := target.New("main")
	con := console.NewSimConsole("TivaSerial")
	if err := tg.AddResource(con); err != nil {
		t.Fatalf("AddResource: %v", err)
	}
	var inFlight, peak, inactive int32
	shared := busy{inFlight: &inFlight, peak: &peak, inactive: &inactive}

	power := &busyPower{busy: shared}
	power.Base = target.NewBase(tg, "power", con)
	meter := &busyMeter{busy: shared}
	meter.Base = target.NewBase(tg, "meter", con)
	for _, d := range []target.Driver{power, meter} {
		if err := tg.Register(d); err != nil {
			t.Fatalf("Register %s: %v", d.Name(), err)
		}
	}
	facade, err := New(tg, "BoardAutomation", Bindings{target.CapabilityPower: "", target.CapabilityPowerMeter: ""})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				var err error
				if (g+i)%2 == 0 {
					err = facade.PowerOn()
				} else {
					_, err = facade.MeasurePower(1, 0)
				}
				if err != nil {
					t.Errorf("call failed: %v", err)
					return
				}
			}
		}(g)
	}
	wg.Wait()

	if peak != 1 {
		t.Fatalf("%d calls used the console at once", peak)
	}
	if inactive != 0 {
		t.Fatalf("%d calls ran on a deactivated driver", inactive)
	}
}
