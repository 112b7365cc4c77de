package domain

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReactionIsReversible(t *testing.T) {
	t.Run("one rate is irreversible", func(t *testing.T) {
		r := NewReaction([]string{"A"}, []string{"B"}, NumericRate(1))
		assert.False(t, r.IsReversible())
	})

	t.Run("two rates are reversible", func(t *testing.T) {
		r := NewReversibleReaction([]string{"A"}, []string{"B"}, NumericRate(1), NumericRate(2))
		assert.True(t, r.IsReversible())
	})
}

func TestReactionSplit(t *testing.T) {
	t.Run("irreversible keeps its rate", func(t *testing.T) {
		r := NewReaction([]string{"A", "A"}, []string{"B"}, NumericRate(0.5))

		legs, err := r.Split(1)
		require.NoError(t, err)
		require.Len(t, legs, 1)
		assert.Equal(t, []string{"A", "A"}, legs[0].Reactants)
		assert.Equal(t, NumericRate(0.5), legs[0].Rates[0])
	})

	t.Run("unresolved rate takes the default", func(t *testing.T) {
		r := NewReaction([]string{"A"}, nil, UnresolvedRate())

		legs, err := r.Split(3)
		require.NoError(t, err)
		assert.Equal(t, NumericRate(3), legs[0].Rates[0])
	})

	t.Run("reversible yields forward then backward leg", func(t *testing.T) {
		r := NewReversibleReaction([]string{"X", "X"}, []string{"X", "X", "X"}, NumericRate(1), UnresolvedRate())

		legs, err := r.Split(1)
		require.NoError(t, err)
		require.Len(t, legs, 2)

		want := []Reaction{
			{Reactants: []string{"X", "X"}, Products: []string{"X", "X", "X"}, Rates: []Rate{NumericRate(1)}},
			{Reactants: []string{"X", "X", "X"}, Products: []string{"X", "X"}, Rates: []Rate{NumericRate(1)}},
		}
		if diff := cmp.Diff(want, legs); diff != "" {
			t.Errorf("split mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("too many rates is rejected", func(t *testing.T) {
		r := Reaction{Reactants: []string{"A"}, Rates: []Rate{NumericRate(1), NumericRate(2), NumericRate(3)}}

		_, err := r.Split(1)
		assert.True(t, errors.Is(err, ErrRateArity))
	})
}

func TestReactionString(t *testing.T) {
	tests := []struct {
		name string
		r    Reaction
		want string
	}{
		{
			name: "multipliers collapse",
			r:    NewReaction([]string{"A", "A", "B"}, []string{"C"}, NumericRate(0.1)),
			want: "2A + B -> C [k = 0.1]",
		},
		{
			name: "degradation without rate",
			r:    NewReaction([]string{"X"}, nil, UnresolvedRate()),
			want: "X ->",
		},
		{
			name: "reversible",
			r:    NewReversibleReaction([]string{"A"}, []string{"C"}, NumericRate(1), NumericRate(2)),
			want: "A <=> C [kf = 1, kr = 2]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.r.String())
		})
	}
}

func TestRate(t *testing.T) {
	assert.False(t, Rate{}.IsResolved())
	assert.Equal(t, "none", UnresolvedRate().String())
	assert.Equal(t, "1e-05", NumericRate(1e-5).String())
	assert.Equal(t, "k3", NamedRate("k3").String())
	assert.Equal(t, NamedRate("k0"), NamedRate("k0").Or(7))
}
