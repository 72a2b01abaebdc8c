package envserver

import (
	"context"
	"fmt"
	"time"

	"github.com/antijam/mimo-controller/internal/channel"
	"github.com/antijam/mimo-controller/internal/codec"
	"github.com/antijam/mimo-controller/internal/env"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region client
// Client talks to a remote environment server.
type Client struct {
	conn *grpc.ClientConn
	svc  EnvironmentService
}

// Dial connects to the environment server at addr.
func Dial(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, svc: NewEnvironmentServiceClient(conn)}, nil
}

// NewClient wraps an existing service binding, e.g. over bufconn.
func NewClient(svc EnvironmentService) *Client {
	return &Client{svc: svc}
}

// Close releases the connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// ResetReply is the decoded Reset response.
type ResetReply struct {
	SessionID   string
	Observation env.Observation
	MaxSteps    int
	SampleIndex int
	JammerLabel channel.JammerLabel
}

// Reset starts an episode. An empty sessionID opens a new session.
func (c *Client) Reset(ctx context.Context, sessionID string) (ResetReply, error) {
	return c.reset(ctx, &structpb.Struct{Fields: map[string]*structpb.Value{
		"session_id": structpb.NewStringValue(sessionID),
	}})
}

// ResetTo starts an episode on a specific dataset row.
func (c *Client) ResetTo(ctx context.Context, sessionID string, idx int) (ResetReply, error) {
	return c.reset(ctx, &structpb.Struct{Fields: map[string]*structpb.Value{
		"session_id":   structpb.NewStringValue(sessionID),
		"sample_index": structpb.NewNumberValue(float64(idx)),
	}})
}

func (c *Client) reset(ctx context.Context, req *structpb.Struct) (ResetReply, error) {
	resp, err := c.svc.Reset(ctx, req)
	if err != nil {
		return ResetReply{}, fmt.Errorf("reset: %w", err)
	}
	obs, err := codec.Floats(resp, "observation")
	if err != nil {
		return ResetReply{}, fmt.Errorf("reset: %w", err)
	}
	maxSteps, err := codec.Int(resp, "max_steps")
	if err != nil {
		return ResetReply{}, fmt.Errorf("reset: %w", err)
	}
	idx, err := codec.Int(resp, "sample_index")
	if err != nil {
		return ResetReply{}, fmt.Errorf("reset: %w", err)
	}
	label, err := codec.Int(resp, "jammer_label")
	if err != nil {
		return ResetReply{}, fmt.Errorf("reset: %w", err)
	}
	return ResetReply{
		SessionID:   codec.String(resp, "session_id"),
		Observation: obs,
		MaxSteps:    maxSteps,
		SampleIndex: idx,
		JammerLabel: channel.JammerLabel(label),
	}, nil
}

// Step applies a to the session's episode.
func (c *Client) Step(ctx context.Context, sessionID string, a channel.Action) (env.StepResult, error) {
	ints := a.Ints()
	resp, err := c.svc.Step(ctx, &structpb.Struct{Fields: map[string]*structpb.Value{
		"session_id": structpb.NewStringValue(sessionID),
		"action":     codec.IntList(ints[:]),
	}})
	if err != nil {
		return env.StepResult{}, fmt.Errorf("step: %w", err)
	}

	obs, err := codec.Floats(resp, "observation")
	if err != nil {
		return env.StepResult{}, fmt.Errorf("step: %w", err)
	}
	reward, err := codec.Number(resp, "reward")
	if err != nil {
		return env.StepResult{}, fmt.Errorf("step: %w", err)
	}
	info := resp.GetFields()["info"].GetStructValue()
	sinr, err := codec.Number(info, "sinr")
	if err != nil {
		return env.StepResult{}, fmt.Errorf("step: info: %w", err)
	}
	ber, err := codec.Number(info, "ber")
	if err != nil {
		return env.StepResult{}, fmt.Errorf("step: info: %w", err)
	}
	return env.StepResult{
		Observation: obs,
		Reward:      reward,
		Terminated:  codec.Bool(resp, "terminated"),
		Truncated:   codec.Bool(resp, "truncated"),
		Info:        env.Info{SINR: sinr, BER: ber, Reward: reward},
	}, nil
}

// CloseSession drops a session on the server.
func (c *Client) CloseSession(ctx context.Context, sessionID string) error {
	_, err := c.svc.Close(ctx, &structpb.Struct{Fields: map[string]*structpb.Value{
		"session_id": structpb.NewStringValue(sessionID),
	}})
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

// #endregion client

// #region remote-session
// RemoteSession adapts one server session to the local rollout harness.
type RemoteSession struct {
	Client  *Client
	Timeout time.Duration

	id       string
	maxSteps int
	idx      int
	label    channel.JammerLabel
}

// ID returns the server-assigned session id, empty before the first Reset.
func (r *RemoteSession) ID() string { return r.id }

func (r *RemoteSession) ctx() (context.Context, context.CancelFunc) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}

func (r *RemoteSession) Reset() (env.Observation, error) {
	ctx, cancel := r.ctx()
	defer cancel()
	reply, err := r.Client.Reset(ctx, r.id)
	if err != nil {
		return nil, err
	}
	r.id, r.maxSteps, r.idx, r.label = reply.SessionID, reply.MaxSteps, reply.SampleIndex, reply.JammerLabel
	return reply.Observation, nil
}

func (r *RemoteSession) Step(a channel.Action) (env.StepResult, error) {
	ctx, cancel := r.ctx()
	defer cancel()
	return r.Client.Step(ctx, r.id, a)
}

func (r *RemoteSession) MaxSteps() int                     { return r.maxSteps }
func (r *RemoteSession) SampleIndex() int                  { return r.idx }
func (r *RemoteSession) CurrentLabel() channel.JammerLabel { return r.label }

// Close drops the session on the server. The client stays open.
func (r *RemoteSession) Close() error {
	if r.id == "" {
		return nil
	}
	ctx, cancel := r.ctx()
	defer cancel()
	return r.Client.CloseSession(ctx, r.id)
}

// #endregion remote-session
