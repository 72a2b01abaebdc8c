package rollout

import (
	"fmt"
	"io"
)

// Trace writes one console line per step.
func Trace(w io.Writer) Observer {
	return func(ev StepEvent) error {
		_, err := fmt.Fprintf(w, "Step %d: Action=%s, SINR=%.2f dB, BER=%.4f, Reward=%.2f\n",
			ev.Step, ev.Action, ev.Result.Info.SINR, ev.Result.Info.BER, ev.Result.Reward)
		return err
	}
}
