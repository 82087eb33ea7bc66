package matrix_calc

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func testInputs() *Inputs {
	var in Inputs
	for i := range in {
		in[i] = mgl32.Ident4()
	}
	in[Projection] = mgl32.Perspective(mgl32.DegToRad(60), 1.5, 0.1, 100)
	in[LeftView] = mgl32.Translate3D(0, 0, -1)
	in[RightView] = mgl32.Translate3D(0.06, 0, -1)
	in[InverseLeftView] = in[LeftView].Inv()
	in[InverseRightView] = in[RightView].Inv()
	in[Model] = mgl32.Translate3D(1, 2, 3).Mul4(mgl32.Scale3D(2, 2, 2))
	in[LeftViewProj] = in[Projection].Mul4(in[LeftView])
	in[RightViewProj] = in[Projection].Mul4(in[RightView])
	in[LeftMVP] = in[LeftViewProj].Mul4(in[Model])
	in[RightMVP] = in[RightViewProj].Mul4(in[Model])
	return &in
}

func TestProjectionViewModel(t *testing.T) {
	mc, err := NewMatrixCalc("output0 = projection * left_view * model;")
	if err != nil {
		t.Fatal(err)
	}

	in := testInputs()
	in[Model] = mgl32.Ident4()

	var out Outputs
	if err := mc.Calculate(in, &out); err != nil {
		t.Fatal(err)
	}

	exp := in[Projection].Mul4(mgl32.Translate3D(0, 0, -1))
	if !out[0].ApproxEqualThreshold(exp, 1e-6) {
		t.Fatalf("expected output0 to be\n%v\ngot\n%v", exp, out[0])
	}
	if mc.NumOutputs() != 1 {
		t.Fatalf("expected 1 output; got %d", mc.NumOutputs())
	}
}

func TestValidPrograms(t *testing.T) {
	in := testInputs()
	normal := in[Model].Inv().Mul4(in[InverseLeftView]).Transpose()

	specs := []struct {
		expr     string
		outputs  int
		expected map[int]mgl32.Mat4
	}{
		{
			expr:     "left_mvp; model; (model~ * inverse_left_view)^",
			outputs:  3,
			expected: map[int]mgl32.Mat4{0: in[LeftMVP], 1: in[Model], 2: normal},
		},
		{
			expr:     "left_mvp, right_mvp, model",
			outputs:  3,
			expected: map[int]mgl32.Mat4{0: in[LeftMVP], 1: in[RightMVP], 2: in[Model]},
		},
		{
			expr:     "^(~model * inverse_left_view)",
			outputs:  1,
			expected: map[int]mgl32.Mat4{0: normal},
		},
		{
			expr:     "output3 = model; output4 = output3 * output3",
			outputs:  5,
			expected: map[int]mgl32.Mat4{3: in[Model], 4: in[Model].Mul4(in[Model])},
		},
		{
			// multiply binds tighter than add
			expr:     "model + projection * left_view",
			outputs:  1,
			expected: map[int]mgl32.Mat4{0: in[Model].Add(in[Projection].Mul4(in[LeftView]))},
		},
		{
			expr:     "(model + projection) * left_view",
			outputs:  1,
			expected: map[int]mgl32.Mat4{0: in[Model].Add(in[Projection]).Mul4(in[LeftView])},
		},
		{
			// add and subtract associate left to right
			expr:     "model - projection + left_view",
			outputs:  1,
			expected: map[int]mgl32.Mat4{0: in[Model].Sub(in[Projection]).Add(in[LeftView])},
		},
	}

	for index, spec := range specs {
		mc, err := NewMatrixCalc(spec.expr)
		if err != nil {
			t.Errorf("[spec %d] compile error for %q: %v", index, spec.expr, err)
			continue
		}
		if mc.NumOutputs() != spec.outputs {
			t.Errorf("[spec %d] expected %d outputs; got %d", index, spec.outputs, mc.NumOutputs())
		}

		var out Outputs
		if err := mc.Calculate(in, &out); err != nil {
			t.Errorf("[spec %d] eval error for %q: %v", index, spec.expr, err)
			continue
		}
		for slot, exp := range spec.expected {
			if !out[slot].ApproxEqualThreshold(exp, 1e-4) {
				t.Errorf("[spec %d] output%d mismatch\nexpected %v\ngot      %v", index, slot, exp, out[slot])
			}
		}
	}
}

func TestMalformedPrograms(t *testing.T) {
	invalid := []string{
		"",
		"(model * projection",
		"model * projection)",
		"model * world",
		"model * ",
		"model projection",
		"model # projection",
		"output0 = ",
		"a;b;c;d;e;f;g;h;i;j;k",
	}

	for index, expr := range invalid {
		_, err := NewMatrixCalc(expr)
		if !errors.Is(err, ErrMalformedExpression) {
			t.Errorf("[expr %d] expected ErrMalformedExpression for %q; got %v", index, expr, err)
		}
	}
}

func TestReadUnwrittenOutput(t *testing.T) {
	mc, err := NewMatrixCalc("output0 = output1 * model; output1 = model")
	if err != nil {
		t.Fatal(err)
	}

	var out Outputs
	if err := mc.Calculate(testInputs(), &out); !errors.Is(err, ErrEval) {
		t.Fatalf("expected ErrEval; got %v", err)
	}
}

func TestCalculateIsPure(t *testing.T) {
	mc, err := NewMatrixCalc("left_mvp; right_mvp; model; (model~ * inverse_left_view)^; (model~ * inverse_right_view)^")
	if err != nil {
		t.Fatal(err)
	}

	in := testInputs()
	var first, second Outputs
	if err := mc.Calculate(in, &first); err != nil {
		t.Fatal(err)
	}
	// garbage in the output table must not influence the result
	for i := range second {
		second[i] = mgl32.Scale3D(9, 9, 9)
	}
	if err := mc.Calculate(in, &second); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < mc.NumOutputs(); i++ {
		if first[i] != second[i] {
			t.Fatalf("expected output%d of two evaluations with the same inputs to be identical", i)
		}
	}
}
