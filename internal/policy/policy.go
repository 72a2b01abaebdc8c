package policy

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/antijam/mimo-controller/internal/channel"
)

// #region interface
// Policy chooses an action for an observation.
type Policy interface {
	Name() string
	Act(ctx context.Context, obs []float64) (channel.Action, error)
}

// #endregion interface

// #region fixed
// Fixed always plays the same action.
type Fixed struct {
	Label  string
	Action channel.Action
}

func (f Fixed) Name() string { return f.Label }

func (f Fixed) Act(context.Context, []float64) (channel.Action, error) {
	return f.Action, nil
}

// FixedQPSK is QPSK at medium power without nulling.
func FixedQPSK() Fixed {
	return Fixed{Label: "Fixed QPSK", Action: channel.Action{Modulation: channel.QPSK, Power: channel.PowerMedium}}
}

// Fixed16QAM is 16-QAM at medium power without nulling.
func Fixed16QAM() Fixed {
	return Fixed{Label: "Fixed 16-QAM", Action: channel.Action{Modulation: channel.QAM16, Power: channel.PowerMedium}}
}

// #endregion fixed

// #region random
// Random samples each action component uniformly.
type Random struct {
	rng *rand.Rand
}

// NewRandom seeds a random policy. Zero picks a random seed.
func NewRandom(seed uint64) *Random {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Random{rng: rand.New(rand.NewPCG(seed, seed^0x6a09e667f3bcc909))}
}

func (r *Random) Name() string { return "Random" }

func (r *Random) Act(context.Context, []float64) (channel.Action, error) {
	return channel.Action{
		Modulation: channel.Modulation(r.rng.IntN(channel.Levels)),
		Power:      channel.PowerLevel(r.rng.IntN(channel.Levels)),
		Nulling:    channel.Nulling(r.rng.IntN(channel.Levels)),
	}, nil
}

// #endregion random

// #region agent
// Actor is the trained agent endpoint (codec.CodecClient in production).
type Actor interface {
	Act(ctx context.Context, obs []float64) (channel.Action, error)
}

// Agent delegates to the externally trained policy.
type Agent struct {
	Label string
	Actor Actor
}

func (a Agent) Name() string {
	if a.Label == "" {
		return "PPO Agent"
	}
	return a.Label
}

func (a Agent) Act(ctx context.Context, obs []float64) (channel.Action, error) {
	act, err := a.Actor.Act(ctx, obs)
	if err != nil {
		return channel.Action{}, fmt.Errorf("%s: %w", a.Name(), err)
	}
	return act, nil
}

// #endregion agent

// #region baselines
// Baselines returns the fixed and random comparison policies in report order.
func Baselines(seed uint64) []Policy {
	return []Policy{FixedQPSK(), Fixed16QAM(), NewRandom(seed)}
}

// ByName resolves a CLI policy name. "agent" requires a non-nil actor.
func ByName(name string, seed uint64, actor Actor) (Policy, error) {
	switch name {
	case "fixed-qpsk":
		return FixedQPSK(), nil
	case "fixed-16qam":
		return Fixed16QAM(), nil
	case "random":
		return NewRandom(seed), nil
	case "agent":
		if actor == nil {
			return nil, fmt.Errorf("policy %q needs a sidecar connection", name)
		}
		return Agent{Actor: actor}, nil
	default:
		a, err := channel.ParseAction(name)
		if err != nil {
			return nil, fmt.Errorf("unknown policy %q", name)
		}
		return Fixed{Label: "Manual " + a.String(), Action: a}, nil
	}
}

// #endregion baselines
