package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/antijam/mimo-controller/internal/channel"
	"github.com/antijam/mimo-controller/internal/codec"
	"github.com/antijam/mimo-controller/internal/config"
	"github.com/antijam/mimo-controller/internal/dataset"
	"github.com/antijam/mimo-controller/internal/env"
	"github.com/antijam/mimo-controller/internal/policy"
	"github.com/antijam/mimo-controller/internal/scaler"
)

// #region workspace
// workspace is what most commands need: the dataset, its scaler and an
// optional sidecar connection.
type workspace struct {
	data    *dataset.Dataset
	scaler  *scaler.Standard
	sidecar *codec.CodecClient
}

// openWorkspace loads the dataset and scaler. The sidecar is dialled when the
// engine needs it or needSidecar is set.
func openWorkspace(c config.Config, needSidecar bool) (*workspace, error) {
	data, err := dataset.Load(c.Dataset)
	if err != nil {
		return nil, err
	}
	sc, err := scaler.Load(c.Scaler)
	if err != nil {
		return nil, err
	}
	ws := &workspace{data: data, scaler: sc}

	if needSidecar || c.Engine == config.EngineSidecar {
		client, err := codec.NewCodecClient(c.SidecarAddr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to sidecar at %s: %w", c.SidecarAddr, err)
		}
		ws.sidecar = client
	}
	log.Printf("dataset %s: %d samples, %d features | engine: %s", c.Dataset, data.Len(), data.FeatureCount(), c.Engine)
	return ws, nil
}

func (w *workspace) Close() {
	if w.sidecar != nil {
		w.sidecar.Close()
	}
}

// simulator returns the SINR/BER engine selected by the config.
func (w *workspace) simulator(c config.Config) channel.Simulator {
	if c.Engine == config.EngineSidecar {
		return codec.EngineSimulator{Client: w.sidecar, Timeout: c.SidecarTimeout}
	}
	return channel.Analytic{}
}

func (w *workspace) environment(c config.Config) (*env.Environment, error) {
	return env.New(w.data, w.scaler, w.simulator(c), c.Env())
}

// actor returns the sidecar as a policy.Actor, or nil when not connected.
func (w *workspace) actor() policy.Actor {
	if w.sidecar == nil {
		return nil
	}
	return w.sidecar
}

// #endregion workspace

// #region helpers
func resultsPath(c config.Config, name string) (string, error) {
	if err := os.MkdirAll(c.ResultsDir, 0o755); err != nil {
		return "", fmt.Errorf("create results dir: %w", err)
	}
	return filepath.Join(c.ResultsDir, name), nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion helpers
