package codec

import (
	"context"
	"fmt"
	"time"

	"github.com/antijam/mimo-controller/internal/channel"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region service
const sidecarServiceName = "antijam.v1.Sidecar"

// SidecarService is the RPC surface of the Python sidecar that hosts the
// trained classifier, the trained agent and the numerical link engine.
type SidecarService interface {
	Predict(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Act(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Simulate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type sidecarServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewSidecarServiceClient binds the sidecar RPCs to a connection.
func NewSidecarServiceClient(cc grpc.ClientConnInterface) SidecarService {
	return &sidecarServiceClient{cc: cc}
}

func (c *sidecarServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+sidecarServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *sidecarServiceClient) Predict(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Predict", in, opts...)
}

func (c *sidecarServiceClient) Act(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Act", in, opts...)
}

func (c *sidecarServiceClient) Simulate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Simulate", in, opts...)
}

// #endregion service

// #region types
// Prediction is the classifier's verdict on one feature vector.
type Prediction struct {
	Label       channel.JammerLabel
	Probability float64
}

// #endregion types

// #region client-struct
// CodecClient wraps the gRPC connection to the Python sidecar.
type CodecClient struct {
	conn   *grpc.ClientConn
	client SidecarService
}

// #endregion client-struct

// #region constructor
// NewCodecClient connects to the sidecar gRPC server.
func NewCodecClient(addr string) (*CodecClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &CodecClient{
		conn:   conn,
		client: NewSidecarServiceClient(conn),
	}, nil
}

// NewCodecClientWithService creates a CodecClient with an injected service implementation.
// Used for testing without a real gRPC connection.
func NewCodecClientWithService(svc SidecarService) *CodecClient {
	return &CodecClient{client: svc}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *CodecClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region predict
// Predict asks the trained classifier for the jammer class of scaled features.
func (c *CodecClient) Predict(ctx context.Context, features []float64) (Prediction, error) {
	req := &structpb.Struct{Fields: map[string]*structpb.Value{
		"features": FloatList(features),
	}}
	resp, err := c.client.Predict(ctx, req)
	if err != nil {
		return Prediction{}, fmt.Errorf("predict rpc: %w", err)
	}

	lbl, err := Int(resp, "label")
	if err != nil {
		return Prediction{}, fmt.Errorf("predict response: %w", err)
	}
	label := channel.JammerLabel(lbl)
	if !label.Valid() {
		return Prediction{}, fmt.Errorf("predict response: %w: %d", channel.ErrInvalidLabel, lbl)
	}
	// probability is optional; classifiers without predict_proba omit it
	prob, err := Number(resp, "probability")
	if err != nil {
		prob = 1
	}
	return Prediction{Label: label, Probability: prob}, nil
}

// #endregion predict

// #region act
// Act asks the trained agent for a deterministic action on obs. Out-of-range
// actions from the agent are rejected, not clamped.
func (c *CodecClient) Act(ctx context.Context, obs []float64) (channel.Action, error) {
	req := &structpb.Struct{Fields: map[string]*structpb.Value{
		"observation": FloatList(obs),
	}}
	resp, err := c.client.Act(ctx, req)
	if err != nil {
		return channel.Action{}, fmt.Errorf("act rpc: %w", err)
	}

	vals, err := Ints(resp, "action")
	if err != nil {
		return channel.Action{}, fmt.Errorf("act response: %w", err)
	}
	a, err := channel.ActionFromInts(vals)
	if err != nil {
		return channel.Action{}, fmt.Errorf("act response: %w", err)
	}
	return a, nil
}

// #endregion act

// #region simulate
// Simulate runs the numerical link engine for one action.
func (c *CodecClient) Simulate(ctx context.Context, a channel.Action, label channel.JammerLabel) (channel.Result, error) {
	req := &structpb.Struct{Fields: map[string]*structpb.Value{
		"modulation":   structpb.NewNumberValue(float64(a.Modulation)),
		"power":        structpb.NewNumberValue(float64(a.Power)),
		"nulling":      structpb.NewNumberValue(float64(a.Nulling)),
		"jammer_label": structpb.NewNumberValue(float64(label)),
	}}
	resp, err := c.client.Simulate(ctx, req)
	if err != nil {
		return channel.Result{}, fmt.Errorf("simulate rpc: %w", err)
	}

	sinr, err := Number(resp, "sinr")
	if err != nil {
		return channel.Result{}, fmt.Errorf("simulate response: %w", err)
	}
	ber, err := Number(resp, "ber")
	if err != nil {
		return channel.Result{}, fmt.Errorf("simulate response: %w", err)
	}
	if ber < 0 || ber > 1 {
		return channel.Result{}, fmt.Errorf("simulate response: %w: ber %v outside [0,1]", ErrBadMessage, ber)
	}
	return channel.Result{SINR: sinr, BER: ber}, nil
}

// #endregion simulate

// #region engine-simulator
// EngineSimulator adapts the sidecar's numerical engine to channel.Simulator.
type EngineSimulator struct {
	Client  *CodecClient
	Timeout time.Duration
}

// Simulate validates locally, then calls the engine with a bounded deadline.
func (s EngineSimulator) Simulate(a channel.Action, st channel.State) (channel.Result, error) {
	if err := channel.Validate(a); err != nil {
		return channel.Result{}, err
	}
	if !st.Label.Valid() {
		return channel.Result{}, fmt.Errorf("%w: %d", channel.ErrInvalidLabel, int(st.Label))
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.Client.Simulate(ctx, a, st.Label)
}

// #endregion engine-simulator
