package channel

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// #region constants
const (
	baseSINRPassive = 20.0
	baseSINRActive  = 5.0

	powerStep   = 0.2
	nullingStep = 0.3

	noiseDivisor  = 1000.0
	minNoiseScale = 0.5
	maxNoiseScale = 1.5

	// Levels is the number of values each action component can take.
	Levels = 3
)

var modulationFactor = [Levels]float64{1.0, 0.8, 0.5}

// #endregion constants

// #region simulator
// Simulator maps an action and channel state to link quality.
type Simulator interface {
	Simulate(a Action, st State) (Result, error)
}

// Analytic is the closed-form SINR/BER model. It has no internal state.
type Analytic struct{}

// Simulate validates a and st, then evaluates SINR and BER.
func (Analytic) Simulate(a Action, st State) (Result, error) {
	sinr, err := SINR(a, st)
	if err != nil {
		return Result{}, err
	}
	return Result{SINR: sinr, BER: BER(sinr, a.Modulation)}, nil
}

// #endregion simulator

// #region validate
// Validate rejects any action component outside {0,1,2}.
func Validate(a Action) error {
	if a.Modulation < 0 || int(a.Modulation) >= Levels {
		return fmt.Errorf("%w: modulation %d", ErrInvalidAction, int(a.Modulation))
	}
	if a.Power < 0 || int(a.Power) >= Levels {
		return fmt.Errorf("%w: power %d", ErrInvalidAction, int(a.Power))
	}
	if a.Nulling < 0 || int(a.Nulling) >= Levels {
		return fmt.Errorf("%w: nulling %d", ErrInvalidAction, int(a.Nulling))
	}
	return nil
}

// ActionFromInts decodes the (modulation, power, nulling) wire form.
func ActionFromInts(v []int) (Action, error) {
	if len(v) != 3 {
		return Action{}, fmt.Errorf("%w: got %d", ErrActionArity, len(v))
	}
	a := Action{Modulation: Modulation(v[0]), Power: PowerLevel(v[1]), Nulling: Nulling(v[2])}
	if err := Validate(a); err != nil {
		return Action{}, err
	}
	return a, nil
}

// ParseAction parses "m,p,n" (commas or spaces, optional brackets).
func ParseAction(s string) (Action, error) {
	s = strings.Trim(strings.TrimSpace(s), "[]")
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	vals := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return Action{}, fmt.Errorf("%w: %q is not an integer", ErrInvalidAction, f)
		}
		vals = append(vals, n)
	}
	return ActionFromInts(vals)
}

// AllActions enumerates the 27 valid actions in wire order.
func AllActions() []Action {
	out := make([]Action, 0, Levels*Levels*Levels)
	for m := 0; m < Levels; m++ {
		for p := 0; p < Levels; p++ {
			for n := 0; n < Levels; n++ {
				out = append(out, Action{Modulation(m), PowerLevel(p), Nulling(n)})
			}
		}
	}
	return out
}

// #endregion validate

// #region sinr
// SINR computes the post-nulling signal to interference-plus-noise ratio.
func SINR(a Action, st State) (float64, error) {
	if err := Validate(a); err != nil {
		return 0, err
	}
	if !st.Label.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidLabel, int(st.Label))
	}

	base := baseSINRPassive
	if st.Label == JammerActive {
		base = baseSINRActive
	}
	powerFactor := 1 + powerStep*float64(a.Power)
	nullingFactor := 1 + nullingStep*float64(a.Nulling)

	return base * modulationFactor[a.Modulation] * powerFactor * nullingFactor * NoiseFactor(st.Features), nil
}

// NoiseFactor maps aggregate feature energy into [0.5, 1.5].
func NoiseFactor(features []float64) float64 {
	var sum float64
	for _, f := range features {
		sum += f
	}
	return math.Min(math.Max(sum/noiseDivisor, minNoiseScale), maxNoiseScale)
}

// #endregion sinr

// #region ber
// BER approximates the bit error rate for sinr under modulation m.
func BER(sinr float64, m Modulation) float64 {
	order := float64(m.BitsPerSymbol())
	return 0.5 * math.Exp(-sinr/(order*2))
}

// #endregion ber
