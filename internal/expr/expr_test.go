package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		e    Expr
		want string
	}{
		{"constant", C(0.1), "0.1"},
		{"product", Mul(P("k0"), S("A"), S("B")), "k0*A*B"},
		{"subtraction", Add(S("A"), Negate(Mul(C(2), S("B")))), "A - 2*B"},
		{"leading negation", Add(Negate(S("A")), S("B")), "-A + B"},
		{"negated sum", Negate(Add(S("A"), S("B"))), "-(A + B)"},
		{"double negation", Negate(Negate(S("A"))), "-(-A)"},
		{"subtract negation", Add(S("A"), Negate(Negate(S("B")))), "A - (-B)"},
		{"sum inside product", Mul(C(2), Add(S("A"), S("B"))), "2*(A + B)"},
		{"negative constant factor", Mul(C(-2), S("A")), "(-2)*A"},
		{"empty sum", Add(), "0"},
		{"empty product", Mul(), "1"},
		{"scientific", C(1e-5), "1e-05"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.e.String())
		})
	}
}

func TestFormatNamer(t *testing.T) {
	e := Add(Negate(Mul(P("k0"), S("sin"))), P("k1"))
	got := Format(e, func(v Var) string {
		if v.Kind == ParamVar {
			return `r["` + v.Name + `"]`
		}
		return "y[0]"
	})
	assert.Equal(t, `-r["k0"]*y[0] + r["k1"]`, got)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		e    Expr
		want string
	}{
		{
			name: "like terms combine",
			e: Add(
				Negate(Mul(C(1), S("X"), S("X"))),
				Negate(Mul(C(1), S("X"), S("X"))),
				Mul(C(1), S("X"), S("X")),
				Mul(C(1), S("X"), S("X")),
				Mul(C(1), S("X"), S("X")),
				Negate(Mul(C(0.1), S("X"))),
			),
			want: "X*X - 0.1*X",
		},
		{
			name: "cancellation gives zero",
			e:    Add(S("A"), Negate(S("A"))),
			want: "0",
		},
		{
			name: "parameters sort before species",
			e:    Mul(S("B"), S("A"), P("k0")),
			want: "k0*A*B",
		},
		{
			name: "product of sums expands",
			e:    Mul(Add(S("A"), C(1)), Add(S("A"), Negate(C(1)))),
			want: "A*A - 1",
		},
		{
			name: "constants fold",
			e:    Mul(C(2), C(3), S("A")),
			want: "6*A",
		},
		{
			name: "independent terms keep their order",
			e:    Add(Mul(C(1), S("A")), Mul(C(2), S("B"))),
			want: "A + 2*B",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.e).String())
		})
	}
}

func TestDiff(t *testing.T) {
	k, a, b := P("k"), S("A"), S("B")

	t.Run("product rule", func(t *testing.T) {
		e := Negate(Mul(k, a, b))
		assert.Equal(t, "-k*B", Normalize(Diff(e, a)).String())
		assert.Equal(t, "-k*A", Normalize(Diff(e, b)).String())
	})

	t.Run("repeated factor", func(t *testing.T) {
		e := Mul(k, a, a)
		assert.Equal(t, "2*k*A", Normalize(Diff(e, a)).String())
	})

	t.Run("absent variable", func(t *testing.T) {
		assert.True(t, IsZero(Diff(Mul(k, a), S("Z"))))
	})

	t.Run("parameter is not a species", func(t *testing.T) {
		assert.True(t, IsZero(Diff(Mul(P("A"), S("B")), S("A"))))
	})

	t.Run("sum rule", func(t *testing.T) {
		e := Add(Mul(a, b), Negate(Mul(C(3), a)))
		assert.Equal(t, "B - 3", Normalize(Diff(e, a)).String())
	})
}

func TestCompile(t *testing.T) {
	e := Add(Negate(Mul(P("k0"), S("A"), S("B"))), Mul(C(2), S("cos")))
	layout := Layout{
		Species: map[string]int{"A": 0, "B": 1, "cos": 2},
		Params:  map[string]int{"k0": 0},
	}

	f, err := Compile(e, layout)
	require.NoError(t, err)
	assert.InDelta(t, -0.5*2*3+2*4, f([]float64{2, 3, 4}, []float64{0.5}), 1e-12)

	_, err = Compile(S("missing"), layout)
	assert.ErrorIs(t, err, ErrUnbound)
}

func TestVariables(t *testing.T) {
	e := Add(Mul(P("k0"), S("A"), S("A")), Negate(S("B")))
	assert.Equal(t, []Var{P("k0"), S("A"), S("B")}, Variables(e))
}

func TestParse(t *testing.T) {
	resolve := func(name string) (VarKind, bool) {
		switch name {
		case "A", "B", "X", "func":
			return SpeciesVar, true
		case "k0", "k1":
			return ParamVar, true
		}
		return 0, false
	}

	t.Run("reads back formatted expressions", func(t *testing.T) {
		for _, src := range []string{
			"0.1",
			"k0*A*B",
			"A - 2*B",
			"-A + B",
			"-(A + B)",
			"-(-A)",
			"A - (-B)",
			"2*(A + B)",
			"(-2)*A",
			"1e-05",
			"2*X - 3*X*X - 0.1",
			"-k0*func + k1*B",
		} {
			e, err := Parse(src, resolve)
			require.NoError(t, err, src)
			assert.Equal(t, src, e.String())
		}
	})

	t.Run("variable kinds", func(t *testing.T) {
		e, err := Parse("-k0*A", resolve)
		require.NoError(t, err)
		assert.Equal(t, []Var{P("k0"), S("A")}, Variables(e))
	})

	t.Run("evaluates like the original", func(t *testing.T) {
		orig := Add(Negate(Mul(P("k0"), S("A"), S("B"))), Mul(C(2.5), P("k1"), S("X")))
		e, err := Parse(orig.String(), resolve)
		require.NoError(t, err)

		layout := Layout{
			Species: map[string]int{"A": 0, "B": 1, "X": 2},
			Params:  map[string]int{"k0": 0, "k1": 1},
		}
		want, err := Compile(orig, layout)
		require.NoError(t, err)
		got, err := Compile(e, layout)
		require.NoError(t, err)

		y, k := []float64{0.3, 2, 5}, []float64{0.7, 1.5}
		assert.InDelta(t, want(y, k), got(y, k), 1e-15)
	})

	t.Run("errors", func(t *testing.T) {
		for _, src := range []string{"", "A +", "A * * B", "(A + B", "A B", "Y", "2 $ A", "1e+"} {
			_, err := Parse(src, resolve)
			assert.ErrorIs(t, err, ErrSyntax, src)
		}
	})
}
