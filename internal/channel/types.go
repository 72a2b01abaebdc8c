package channel

import (
	"errors"
	"fmt"
)

// #region errors
var (
	// ErrInvalidAction is returned when an action field is outside {0,1,2}.
	ErrInvalidAction = errors.New("invalid action")
	// ErrActionArity is returned when an encoded action does not carry exactly 3 values.
	ErrActionArity = errors.New("action must have exactly 3 components")
	// ErrInvalidLabel is returned for a jammer label other than 0 or 1.
	ErrInvalidLabel = errors.New("invalid jammer label")
)

// #endregion errors

// #region modulation
// Modulation selects the constellation used on the link.
type Modulation int

const (
	QPSK Modulation = iota
	QAM16
	QAM64
)

func (m Modulation) String() string {
	switch m {
	case QPSK:
		return "QPSK"
	case QAM16:
		return "16-QAM"
	case QAM64:
		return "64-QAM"
	default:
		return fmt.Sprintf("Modulation(%d)", int(m))
	}
}

// BitsPerSymbol returns the modulation order used by the BER model.
func (m Modulation) BitsPerSymbol() int {
	switch m {
	case QAM16:
		return 4
	case QAM64:
		return 6
	default:
		return 2
	}
}

// #endregion modulation

// #region power
// PowerLevel is the transmit power step.
type PowerLevel int

const (
	PowerLow PowerLevel = iota
	PowerMedium
	PowerHigh
)

func (p PowerLevel) String() string {
	switch p {
	case PowerLow:
		return "low"
	case PowerMedium:
		return "medium"
	case PowerHigh:
		return "high"
	default:
		return fmt.Sprintf("PowerLevel(%d)", int(p))
	}
}

// #endregion power

// #region nulling
// Nulling is the spatial-nulling strength applied by the antenna array.
type Nulling int

const (
	NullingNone Nulling = iota
	NullingPartial
	NullingFull
)

func (n Nulling) String() string {
	switch n {
	case NullingNone:
		return "none"
	case NullingPartial:
		return "partial"
	case NullingFull:
		return "full"
	default:
		return fmt.Sprintf("Nulling(%d)", int(n))
	}
}

// #endregion nulling

// #region jammer-label
// JammerLabel is the dataset's jammer class.
type JammerLabel int

const (
	JammerPassive JammerLabel = 0
	JammerActive  JammerLabel = 1
)

func (l JammerLabel) String() string {
	switch l {
	case JammerPassive:
		return "passive"
	case JammerActive:
		return "active"
	default:
		return fmt.Sprintf("JammerLabel(%d)", int(l))
	}
}

// Valid reports whether l is one of the two known classes.
func (l JammerLabel) Valid() bool {
	return l == JammerPassive || l == JammerActive
}

// #endregion jammer-label

// #region action
// Action is one agent decision: (modulation, power, nulling).
type Action struct {
	Modulation Modulation
	Power      PowerLevel
	Nulling    Nulling
}

// Ints returns the wire encoding of a in (modulation, power, nulling) order.
func (a Action) Ints() [3]int {
	return [3]int{int(a.Modulation), int(a.Power), int(a.Nulling)}
}

func (a Action) String() string {
	return fmt.Sprintf("[%d %d %d]", a.Modulation, a.Power, a.Nulling)
}

// #endregion action

// #region state-result
// State is the channel condition an action is evaluated against.
// Features are the scaled feature vector of the episode's sample.
type State struct {
	Features []float64
	Label    JammerLabel
}

// Result is the link quality produced by a simulator.
type Result struct {
	SINR float64
	BER  float64
}

// #endregion state-result
