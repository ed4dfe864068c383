package solver

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func field(rows, cols int, v float64) *mat.Dense {
	m := mat.NewDense(rows, cols, nil)
	m.Apply(func(_, _ int, _ float64) float64 { return v }, m)
	return m
}

func TestAssemble(t *testing.T) {
	in, err := Assemble(field(4, 6, 0.5), field(4, 6, 2), field(4, 6, 1), field(4, 6, 1))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, in.Width(), test.ShouldEqual, 6)
	test.That(t, in.Height(), test.ShouldEqual, 4)
}

func TestAssembleDimensionMismatch(t *testing.T) {
	// a stacked mask is twice as tall as the other fields
	_, err := Assemble(field(4, 6, 0.5), field(4, 6, 2), field(4, 6, 1), field(8, 6, 1))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrDimensionMismatch), test.ShouldBeTrue)

	var dimErr *DimensionMismatchError
	test.That(t, errors.As(err, &dimErr), test.ShouldBeTrue)
	test.That(t, dimErr.Field, test.ShouldEqual, "mask")
	test.That(t, dimErr.Height, test.ShouldEqual, 8)
	test.That(t, dimErr.WantHeight, test.ShouldEqual, 4)
	test.That(t, err.Error(), test.ShouldContainSubstring, "mask is 6x8 but intensity is 6x4")

	_, err = Assemble(field(4, 6, 0.5), field(4, 5, 2), field(4, 6, 1), field(4, 6, 1))
	test.That(t, errors.As(err, &dimErr), test.ShouldBeTrue)
	test.That(t, dimErr.Field, test.ShouldEqual, "target depth")

	_, err = Assemble(nil, field(4, 5, 2), field(4, 6, 1), field(4, 6, 1))
	test.That(t, err, test.ShouldNotBeNil)
	_, err = Assemble(field(4, 6, 0.5), field(4, 6, 2), nil, field(4, 6, 1))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrDimensionMismatch), test.ShouldBeFalse)
}

func TestNamedParameters(t *testing.T) {
	p := DefaultParameters()
	n, err := p.Uint(ParamNonLinearIterations)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, n, test.ShouldEqual, uint(3))
	n, err = p.Uint(ParamLinearIterations)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, n, test.ShouldEqual, uint(200))
	test.That(t, p.Names(), test.ShouldResemble, []string{ParamLinearIterations, ParamNonLinearIterations})

	p.Set(ParamNonLinearIterations, 7)
	n, err = p.Uint(ParamNonLinearIterations)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, n, test.ShouldEqual, uint(7))

	p.Set(ParamNonLinearIterations, -1)
	_, err = p.Uint(ParamNonLinearIterations)
	test.That(t, err, test.ShouldNotBeNil)

	p.Set(ParamNonLinearIterations, "three")
	_, err = p.Uint(ParamNonLinearIterations)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NamedParameters{}.Uint("missing")
	test.That(t, err.Error(), test.ShouldContainSubstring, "missing solver parameter")
}

func TestIdentitySolver(t *testing.T) {
	s, err := New("identity")
	test.That(t, err, test.ShouldBeNil)
	in, err := Assemble(field(3, 3, 0.5), field(3, 3, 2), field(3, 3, 1), field(3, 3, 1))
	test.That(t, err, test.ShouldBeNil)

	res, err := s.Solve(context.Background(), in, DefaultParameters())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mat.Equal(res.Surface, in.InitialUnknown), test.ShouldBeTrue)
	res.Surface.Set(0, 0, 9)
	test.That(t, in.InitialUnknown.At(0, 0), test.ShouldEqual, 1.0)

	_, err = s.Solve(context.Background(), in, NamedParameters{})
	test.That(t, err, test.ShouldNotBeNil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Solve(ctx, in, DefaultParameters())
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)

	res.Surface.Set(0, 0, 1)
	written, err := res.Save(t.TempDir(), "sfsOutput", 150)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, written, test.ShouldHaveLength, 3)

	_, err = New("gaussNewtonGPU")
	test.That(t, err, test.ShouldNotBeNil)
}
