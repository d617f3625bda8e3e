package di_test

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocrud/inject/di"
)

type Animal interface {
	Name() string
}

type Tiger struct {
	id int64
}

var tigers atomic.Int64

func NewTiger() *Tiger { return &Tiger{id: tigers.Add(1)} }

func (t *Tiger) Name() string { return "tiger" }

type Greeter struct {
	Lookup func() Animal
	Hello  func(name string) string
}

func NewGreeter() *Greeter {
	return &Greeter{
		Lookup: func() Animal { return nil },
		Hello:  func(name string) string { return "Hello, " + name + "!" },
	}
}

func TestContainer_GreeterScenario(t *testing.T) {
	c := di.NewContainer()
	di.Register[Tiger](c, "tiger", di.WithTransient(), di.WithConstructor(NewTiger))
	di.Register[Greeter](c, "greeter",
		di.WithTransient(),
		di.WithConstructor(NewGreeter),
		di.WithLookup("Lookup", "tiger"),
	)
	require.NoError(t, c.Build())

	g1 := di.MustResolve[*Greeter](c, "greeter")
	g2 := di.MustResolve[*Greeter](c, "greeter")
	assert.NotSame(t, g1, g2)

	a1, a2 := g1.Lookup(), g2.Lookup()
	require.NotNil(t, a1)
	assert.Equal(t, "tiger", a1.Name())
	assert.NotSame(t, a1, a2)

	// 同一实例的两次调用也得到不同的 FRESH 目标
	assert.NotSame(t, g1.Lookup(), g1.Lookup())

	assert.Equal(t, NewGreeter().Hello("Ann"), g1.Hello("Ann"))

	// 两个定义共享同一个特化类型
	stats := c.Stats()
	assert.Equal(t, 2, stats.Definitions)
	assert.Equal(t, 1, stats.SynthesizedTypes)
}

func TestContainer_SingletonLookupTarget(t *testing.T) {
	c := di.NewContainer()
	di.Register[Tiger](c, "tiger", di.WithConstructor(NewTiger))
	di.Register[Greeter](c, "greeter", di.WithConstructor(NewGreeter), di.WithLookup("Lookup", "tiger"))
	require.NoError(t, c.Build())

	g := di.MustResolve[*Greeter](c, "greeter")
	assert.Same(t, g, di.MustResolve[*Greeter](c, "greeter"))
	assert.Same(t, g.Lookup(), g.Lookup())
}

type Calculator struct {
	Add func(a, b int) int
	Sum func(nums ...int) (int, error)
}

var originalCalls atomic.Int64

func NewCalculator() *Calculator {
	return &Calculator{
		Add: func(a, b int) int {
			originalCalls.Add(1)
			return a + b
		},
		Sum: func(nums ...int) (int, error) {
			originalCalls.Add(1)
			return 0, nil
		},
	}
}

type recordingReplacer struct {
	calls    int
	receiver any
	method   di.Method
	args     []any
	result   any
	err      error
}

func (r *recordingReplacer) Reimplement(receiver any, m di.Method, args []any) (any, error) {
	r.calls++
	r.receiver, r.method, r.args = receiver, m, args
	return r.result, r.err
}

func TestContainer_ReplaceDelegation(t *testing.T) {
	replacer := &recordingReplacer{result: 42}

	c := di.NewContainer()
	di.Register[recordingReplacer](c, "replacer", di.WithValue(replacer))
	di.Register[Calculator](c, "calc", di.WithConstructor(NewCalculator), di.WithReplace("Add", "replacer"))
	require.NoError(t, c.Build())

	before := originalCalls.Load()
	calc := di.MustResolve[*Calculator](c, "calc")

	assert.Equal(t, 42, calc.Add(1, 2))
	assert.Equal(t, 1, replacer.calls)
	assert.Equal(t, []any{1, 2}, replacer.args)
	assert.Equal(t, "Add", replacer.method.Name)
	assert.Equal(t, "Add(int,int)", replacer.method.Signature())
	assert.Same(t, calc, replacer.receiver)
	assert.Equal(t, before, originalCalls.Load())
}

// serialReplacer 返回自己的序号，用来区分每次解析出的实例。
type serialReplacer struct {
	serial int
}

func (r *serialReplacer) Reimplement(any, di.Method, []any) (any, error) {
	return r.serial, nil
}

func TestContainer_ReplacerResolvedPerCall(t *testing.T) {
	var resolutions atomic.Int64

	c := di.NewContainer()
	di.Register[serialReplacer](c, "replacer", di.WithTransient(), di.WithConstructor(func() *serialReplacer {
		return &serialReplacer{serial: int(resolutions.Add(1))}
	}))
	di.Register[Calculator](c, "calc", di.WithConstructor(NewCalculator), di.WithReplace("Add", "replacer"))
	require.NoError(t, c.Build())

	calc := di.MustResolve[*Calculator](c, "calc")
	assert.Equal(t, int64(0), resolutions.Load())

	assert.Equal(t, 1, calc.Add(1, 2))
	assert.Equal(t, 2, calc.Add(1, 2))
	assert.Equal(t, int64(2), resolutions.Load())
}

func TestContainer_ReplaceVariadic(t *testing.T) {
	replacer := di.ReplacerFunc(func(_ any, _ di.Method, args []any) (any, error) {
		total := 0
		for _, n := range args[0].([]int) {
			total += n
		}
		return total, nil
	})

	c := di.NewContainer()
	di.Register[di.ReplacerFunc](c, "sum", di.WithValue(replacer))
	di.Register[Calculator](c, "calc", di.WithConstructor(NewCalculator), di.WithReplace("Sum", "sum"))
	require.NoError(t, c.Build())

	sum, err := di.MustResolve[*Calculator](c, "calc").Sum(1, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 6, sum)
}

var errBoom = errors.New("boom")

func TestContainer_ErrorPropagation(t *testing.T) {
	t.Run("replacer error returned verbatim", func(t *testing.T) {
		c := di.NewContainer()
		di.Register[recordingReplacer](c, "replacer", di.WithValue(&recordingReplacer{err: errBoom}))
		di.Register[Calculator](c, "calc", di.WithConstructor(NewCalculator), di.WithReplace("Sum", "replacer"))
		require.NoError(t, c.Build())

		_, err := di.MustResolve[*Calculator](c, "calc").Sum(1)
		assert.Same(t, errBoom, err)
	})

	t.Run("replacer error panics without error result", func(t *testing.T) {
		c := di.NewContainer()
		di.Register[recordingReplacer](c, "replacer", di.WithValue(&recordingReplacer{err: errBoom}))
		di.Register[Calculator](c, "calc", di.WithConstructor(NewCalculator), di.WithReplace("Add", "replacer"))
		require.NoError(t, c.Build())

		calc := di.MustResolve[*Calculator](c, "calc")
		assert.PanicsWithError(t, "boom", func() { calc.Add(1, 2) })
	})

	t.Run("missing lookup target", func(t *testing.T) {
		type Holder struct {
			Get func() (Animal, error)
		}
		c := di.NewContainer()
		di.Register[Holder](c, "holder", di.WithLookup("Get", "nobody"))
		require.NoError(t, c.Build())

		_, err := di.MustResolve[*Holder](c, "holder").Get()
		assert.ErrorIs(t, err, di.ErrNoSuchComponent)
	})

	t.Run("failing lookup target", func(t *testing.T) {
		type Holder struct {
			Get func() (*Tiger, error)
		}
		c := di.NewContainer()
		di.Register[Tiger](c, "tiger", di.WithTransient(), di.WithConstructor(func() (*Tiger, error) {
			return nil, errBoom
		}))
		di.Register[Holder](c, "holder", di.WithLookup("Get", "tiger"))
		require.NoError(t, c.Build())

		_, err := di.MustResolve[*Holder](c, "holder").Get()
		assert.Same(t, errBoom, err)
	})

	t.Run("lookup target of wrong type", func(t *testing.T) {
		type Holder struct {
			Get func() (*Greeter, error)
		}
		c := di.NewContainer()
		di.Register[Tiger](c, "tiger", di.WithConstructor(NewTiger))
		di.Register[Holder](c, "holder", di.WithLookup("Get", "tiger"))
		require.NoError(t, c.Build())

		_, err := di.MustResolve[*Holder](c, "holder").Get()
		var mismatch *di.TypeMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, "tiger", mismatch.Name)
	})

	t.Run("replacer of wrong type", func(t *testing.T) {
		c := di.NewContainer()
		di.Register[Tiger](c, "tiger", di.WithConstructor(NewTiger))
		di.Register[Calculator](c, "calc", di.WithConstructor(NewCalculator), di.WithReplace("Sum", "tiger"))
		require.NoError(t, c.Build())

		_, err := di.MustResolve[*Calculator](c, "calc").Sum()
		assert.ErrorIs(t, err, di.ErrTypeMismatch)
	})
}

type Printer struct {
	PrintString func(s string) string `method:"Print"`
	PrintInt    func(i int) string    `method:"Print"`
}

func TestContainer_AmbiguityBeforeConstruction(t *testing.T) {
	var constructed atomic.Int64
	newPrinter := func() *Printer {
		constructed.Add(1)
		return &Printer{}
	}

	c := di.NewContainer()
	di.Register[Printer](c, "printer",
		di.WithConstructor(newPrinter),
		di.WithReplace("Print", "a"),
		di.WithReplace("Print", "b"),
	)

	err := c.Build()
	var amb *di.AmbiguousOverrideError
	require.ErrorAs(t, err, &amb)
	assert.Len(t, amb.Overrides, 1)
	assert.Equal(t, int64(0), constructed.Load())
}

func TestContainer_LaterOverrideReplacesEarlier(t *testing.T) {
	c := di.NewContainer()
	di.Register[Tiger](c, "tiger", di.WithTransient(), di.WithConstructor(NewTiger))
	di.Register[Greeter](c, "greeter",
		di.WithConstructor(NewGreeter),
		di.WithLookup("Lookup", "lion"),
		di.WithLookup("Lookup", "tiger"),
	)
	require.NoError(t, c.Build())

	def, ok := c.Definition("greeter")
	require.True(t, ok)
	assert.Equal(t, 1, def.Overrides.Len())

	a := di.MustResolve[*Greeter](c, "greeter").Lookup()
	require.NotNil(t, a)
	assert.Equal(t, "tiger", a.Name())
}

func TestContainer_OverloadedReplace(t *testing.T) {
	ints := di.ReplacerFunc(func(_ any, _ di.Method, args []any) (any, error) {
		return "int", nil
	})

	c := di.NewContainer()
	di.Register[di.ReplacerFunc](c, "ints", di.WithValue(ints))
	di.Register[Printer](c, "printer",
		di.WithConstructor(func() *Printer {
			return &Printer{
				PrintString: func(s string) string { return "string " + s },
				PrintInt:    func(i int) string { return "original" },
			}
		}),
		di.WithReplaceSignature("Print", []reflect.Type{reflect.TypeOf(0)}, "ints"),
	)
	require.NoError(t, c.Build())

	p := di.MustResolve[*Printer](c, "printer")
	assert.Equal(t, "int", p.PrintInt(1))
	assert.Equal(t, "string x", p.PrintString("x"))
}

func TestContainer_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		def    *di.Definition
		target error
	}{
		{
			name:   "non overridable",
			def:    di.NewDefinition("t", di.TypeOf[Tiger](), di.WithReplace("Name", "r")),
			target: di.ErrNonOverridableMethod,
		},
		{
			name:   "missing method",
			def:    di.NewDefinition("g", di.TypeOf[Greeter](), di.WithLookup("Goodbye", "x")),
			target: di.ErrMethodNotFound,
		},
		{
			name:   "constructor not found",
			def:    di.NewDefinition("g", di.TypeOf[Greeter](), di.WithConstructor(NewGreeter), di.WithArgs("x")),
			target: di.ErrConstructorNotFound,
		},
		{
			name:   "not a struct",
			def:    di.NewDefinition("n", reflect.TypeOf(0)),
			target: di.ErrInvalidTarget,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := di.NewContainer()
			require.NoError(t, c.Add(tt.def))
			assert.ErrorIs(t, c.Build(), tt.target)
		})
	}
}

func TestContainer_ConstructorArgs(t *testing.T) {
	type Account struct {
		Owner string
	}
	newAccount := func(owner string) *Account { return &Account{Owner: owner} }

	c := di.NewContainer()
	di.Register[Account](c, "account", di.WithConstructor(newAccount), di.WithArgs("ann"))
	require.NoError(t, c.Build())

	assert.Equal(t, "ann", di.MustResolve[*Account](c, "account").Owner)
}

type tigerFactory struct {
	shared   bool
	produced atomic.Int64
}

func (f *tigerFactory) Produce() (any, error) {
	f.produced.Add(1)
	return NewTiger(), nil
}

func (f *tigerFactory) ProducedType() reflect.Type { return reflect.TypeOf(&Tiger{}) }
func (f *tigerFactory) IsShared() bool             { return f.shared }

func TestContainer_Factory(t *testing.T) {
	type Zoo struct {
		Animal  func() Animal
		Factory func() di.Factory
	}

	factory := &tigerFactory{}
	c := di.NewContainer()
	di.Register[tigerFactory](c, "tigers", di.WithValue(factory))
	di.Register[Zoo](c, "zoo",
		di.WithLookup("Animal", "tigers"),
		di.WithProducerLookup("Factory", "tigers"),
	)
	require.NoError(t, c.Build())

	product, err := di.Resolve[*Tiger](c, "tigers")
	require.NoError(t, err)
	assert.NotNil(t, product)

	producer, err := di.ResolveProducer[*tigerFactory](c, "tigers")
	require.NoError(t, err)
	assert.Same(t, factory, producer)

	zoo := di.MustResolve[*Zoo](c, "zoo")
	assert.NotSame(t, zoo.Animal(), zoo.Animal())
	assert.Same(t, factory, zoo.Factory())
	assert.Equal(t, int64(3), factory.produced.Load())
}

func TestContainer_SharedFactory(t *testing.T) {
	factory := &tigerFactory{shared: true}
	c := di.NewContainer()
	di.Register[tigerFactory](c, "tigers", di.WithValue(factory))
	require.NoError(t, c.Build())

	t1 := di.MustResolve[*Tiger](c, "tigers")
	t2 := di.MustResolve[*Tiger](c, "tigers")
	assert.Same(t, t1, t2)
	assert.Equal(t, int64(1), factory.produced.Load())
}

func TestContainer_Lifecycle(t *testing.T) {
	c := di.NewContainer()

	_, err := c.ResolveProduct("tiger")
	assert.ErrorIs(t, err, di.ErrNotBuilt)

	di.Register[Tiger](c, "tiger", di.WithConstructor(NewTiger))
	assert.Error(t, c.Add(di.NewDefinition("tiger", di.TypeOf[Tiger]())))
	assert.Error(t, c.Add(di.NewDefinition("", di.TypeOf[Tiger]())))
	assert.True(t, c.Has("tiger"))

	require.NoError(t, c.Build())
	require.NoError(t, c.Build())

	assert.Error(t, c.Add(di.NewDefinition("lion", di.TypeOf[Tiger]())))
	assert.Panics(t, func() { di.Register[Tiger](c, "lion") })

	_, err = c.ResolveProduct("lion")
	var missing *di.NoSuchComponentError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "lion", missing.Name)

	_, err = di.Resolve[*Greeter](c, "tiger")
	assert.ErrorIs(t, err, di.ErrTypeMismatch)

	def, ok := c.Definition("tiger")
	require.True(t, ok)
	assert.Equal(t, di.ScopeSingleton, def.Scope)
	assert.Len(t, c.Definitions(), 1)
}

func TestContainer_EagerSingletons(t *testing.T) {
	build := func(opts di.Options) *atomic.Int64 {
		var created atomic.Int64
		c := di.NewContainer(di.WithOptions(opts))
		di.Register[Tiger](c, "tiger", di.WithConstructor(func() *Tiger {
			created.Add(1)
			return &Tiger{}
		}))
		require.NoError(t, c.Build())
		return &created
	}

	opts := di.DefaultOptions()
	assert.Equal(t, int64(1), build(opts).Load())

	opts.EagerSingletons = false
	opts.ParallelPrepare = false
	assert.Equal(t, int64(0), build(opts).Load())
}

func TestContainer_EagerSingletonFailureIsSticky(t *testing.T) {
	c := di.NewContainer()
	di.Register[Tiger](c, "tiger", di.WithConstructor(func() (*Tiger, error) {
		return nil, errBoom
	}))

	first := c.Build()
	require.ErrorIs(t, first, errBoom)
	assert.Contains(t, first.Error(), "tiger")

	second := c.Build()
	assert.Same(t, first, second)

	_, err := c.ResolveProduct("tiger")
	assert.Same(t, errBoom, err)
}

func TestContainer_ConcurrentAddBuildResolve(t *testing.T) {
	c := di.NewContainer()
	di.Register[Tiger](c, "tiger", di.WithConstructor(NewTiger))

	const n = 16
	var (
		wg    sync.WaitGroup
		added atomic.Int64
	)
	for i := 0; i < n; i++ {
		wg.Add(3)
		go func(i int) {
			defer wg.Done()
			def := di.NewDefinition(fmt.Sprintf("tiger-%d", i), di.TypeOf[Tiger](), di.WithConstructor(NewTiger))
			if c.Add(def) == nil {
				added.Add(1)
			}
		}(i)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.Build())
		}()
		go func(i int) {
			defer wg.Done()
			_, err := c.ResolveProduct(fmt.Sprintf("tiger-%d", i))
			if err != nil {
				assert.True(t, errors.Is(err, di.ErrNotBuilt) || errors.Is(err, di.ErrNoSuchComponent), err)
			}
		}(i)
	}
	wg.Wait()

	require.NoError(t, c.Build())
	assert.Len(t, c.Definitions(), int(added.Load())+1)
	assert.Error(t, c.Add(di.NewDefinition("late", di.TypeOf[Tiger]())))

	// 成功注册的组件在构建后都可以解析
	for _, def := range c.Definitions() {
		_, err := c.ResolveProduct(def.Name)
		assert.NoError(t, err)
	}
}

func TestContainer_SharedStrategy(t *testing.T) {
	strategy := di.NewStrategy()
	for _, name := range []string{"a", "b"} {
		c := di.NewContainer(di.WithStrategy(strategy))
		di.Register[Greeter](c, name, di.WithConstructor(NewGreeter), di.WithLookup("Lookup", "tiger"))
		di.Register[Tiger](c, "tiger", di.WithConstructor(NewTiger))
		require.NoError(t, c.Build())
		assert.NotNil(t, di.MustResolve[*Greeter](c, name).Lookup())
	}
	assert.Equal(t, 1, strategy.Synthesizer().Len())
}

func TestDefinition_Equal(t *testing.T) {
	d1 := di.NewDefinition("g", di.TypeOf[Greeter](), di.WithConstructor(NewGreeter), di.WithLookup("Lookup", "tiger"))
	d2 := di.NewDefinition("g", di.TypeOf[*Greeter](), di.WithConstructor(NewGreeter), di.WithLookup("Lookup", "tiger"))
	d3 := di.NewDefinition("g", di.TypeOf[Greeter](), di.WithConstructor(NewGreeter), di.WithLookup("Lookup", "lion"))

	assert.True(t, d1.Equal(d2))
	assert.False(t, d1.Equal(d3))
	assert.False(t, d1.Equal(nil))
}
