package shader

import (
	"errors"
	"strings"
	"testing"
)

func TestSignature(t *testing.T) {
	specs := []struct {
		template  string
		useLights bool
		desc      string
		multiview bool
		exp       string
	}{
		{"Phong", true, "$DirectLight1", false, "Phong$DirectLight1"},
		{"Phong", true, "$DirectLight1", true, "Phong#multiview$DirectLight1"},
		{"Unlit", false, "$DirectLight1", false, "Unlit"},
		{"Phong", true, "", false, "Phong"},
	}

	for index, spec := range specs {
		got := Signature(spec.template, spec.useLights, spec.desc, spec.multiview)
		if got != spec.exp {
			t.Errorf("[spec %d] expected %q; got %q", index, spec.exp, got)
		}
		if spec.useLights && !strings.HasSuffix(got, spec.desc) {
			t.Errorf("[spec %d] expected lit signature %q to end in the descriptor", index, got)
		}
	}
}

func TestAddAndFind(t *testing.T) {
	m := NewManager(nil)

	a, err := m.AddShader("A", Source{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.AddShader("B", Source{MatrixCalc: "left_mvp; model"})
	if err != nil {
		t.Fatal(err)
	}
	if a.ID() != 1 || b.ID() != 2 {
		t.Fatalf("expected dense IDs 1 and 2; got %d and %d", a.ID(), b.ID())
	}

	again, _ := m.AddShader("A", Source{})
	if again != a {
		t.Fatal("expected re-registering a signature to return the cached shader")
	}
	if m.FindShader("B") != b || m.GetShader(2) != b {
		t.Fatal("expected lookups by signature and ID to agree")
	}
	if m.FindShader("C") != nil || m.GetShader(0) != nil || m.GetShader(3) != nil {
		t.Fatal("expected misses to return nil")
	}
	if b.OutputMatrixCount(false) != 2 || a.OutputMatrixCount(true) != 2 || a.OutputMatrixCount(false) != 1 {
		t.Fatal("unexpected output matrix counts")
	}
}

func TestBadMatrixExpressionInvalidatesShader(t *testing.T) {
	m := NewManager(nil)
	s, err := m.AddShader("Broken", Source{MatrixCalc: "(model * left_view"})
	if !errors.Is(err, ErrExpressionCompile) {
		t.Fatalf("expected ErrExpressionCompile; got %v", err)
	}
	if s == nil || s.IsValid() {
		t.Fatal("expected the shader to be registered and invalid")
	}

	_, err = m.SelectShader("Broken", false, "", false)
	if !errors.Is(err, ErrShaderNotReady) {
		t.Fatalf("expected ErrShaderNotReady when selecting an invalid shader; got %v", err)
	}
}

func TestSelectShaderGeneratesVariants(t *testing.T) {
	var generated []string
	m := NewManager(func(template, signature string, useLights, multiview bool) (Source, error) {
		generated = append(generated, signature)
		if template == "Missing" {
			return Source{}, errors.New("no such template")
		}
		return Source{UsesLights: useLights}, nil
	})

	s1, err := m.SelectShader("Phong", true, "$PointLight1", false)
	if err != nil {
		t.Fatal(err)
	}
	s2, err := m.SelectShader("Phong", true, "$PointLight1", false)
	if err != nil {
		t.Fatal(err)
	}
	if s1 != s2 || len(generated) != 1 {
		t.Fatalf("expected the second selection to hit the cache; generated %v", generated)
	}

	s3, err := m.SelectShader("Phong", true, "$PointLight2", false)
	if err != nil {
		t.Fatal(err)
	}
	if s3 == s1 || s3.Signature() != "Phong$PointLight2" {
		t.Fatalf("expected a new variant for a new light descriptor; got %q", s3.Signature())
	}

	if _, err := m.SelectShader("Missing", false, "", false); !errors.Is(err, ErrShaderNotReady) {
		t.Fatalf("expected ErrShaderNotReady for a failing generator; got %v", err)
	}

	m.SetGenerator(nil)
	if _, err := m.SelectShader("Other", false, "", false); !errors.Is(err, ErrShaderNotReady) {
		t.Fatalf("expected ErrShaderNotReady without a generator; got %v", err)
	}
}
