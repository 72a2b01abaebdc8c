package envserver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/antijam/mimo-controller/internal/channel"
	"github.com/antijam/mimo-controller/internal/codec"
	"github.com/antijam/mimo-controller/internal/dataset"
	"github.com/antijam/mimo-controller/internal/env"
	"github.com/antijam/mimo-controller/internal/scaler"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

var errUnknownSession = errors.New("unknown session")

// #region factory
// Factory builds the Environment backing a new session.
type Factory func() (*env.Environment, error)

// SharedFactory builds sessions over one dataset and scaler loaded up front.
// With a non-zero cfg.Seed every session gets its own derived seed so runs
// stay reproducible without sessions sharing a sample sequence.
func SharedFactory(data *dataset.Dataset, sc scaler.Scaler, sim channel.Simulator, cfg env.Config) Factory {
	var n atomic.Uint64
	return func() (*env.Environment, error) {
		c := cfg
		if c.Seed != 0 {
			c.Seed += n.Add(1) - 1
		}
		return env.New(data, sc, sim, c)
	}
}

// #endregion factory

// #region server
type session struct {
	mu  sync.Mutex
	env *env.Environment
}

// Server hosts environment sessions for remote trainers. Each session is
// driven by one caller at a time; distinct sessions step in parallel.
type Server struct {
	mu       sync.Mutex
	sessions map[string]*session
	factory  Factory
}

// NewServer creates a server that opens sessions with factory.
func NewServer(factory Factory) *Server {
	return &Server{sessions: make(map[string]*session), factory: factory}
}

// Sessions reports the number of open sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) lookup(id string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errUnknownSession, id)
	}
	return sess, nil
}

// open builds a session without registering it; register publishes it once
// its first reset succeeded.
func (s *Server) open() (*session, error) {
	e, err := s.factory()
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	return &session{env: e}, nil
}

func (s *Server) register(sess *session) string {
	id := uuid.New().String()
	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()
	log.Printf("[envserver] session %s opened", shortID(id))
	return id
}

// #endregion server

// #region rpc
// Reset starts a new episode. An empty session_id opens a new session; an
// optional sample_index pins the episode to one dataset row.
func (s *Server) Reset(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id := codec.String(in, "session_id")
	var (
		sess *session
		err  error
	)
	fresh := id == ""
	if fresh {
		sess, err = s.open()
	} else {
		sess, err = s.lookup(id)
	}
	if err != nil {
		return nil, toStatus(err)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	var obs env.Observation
	if _, pinned := in.GetFields()["sample_index"]; pinned {
		idx, ierr := codec.Int(in, "sample_index")
		if ierr != nil {
			return nil, toStatus(ierr)
		}
		obs, err = sess.env.ResetTo(idx)
	} else {
		obs, err = sess.env.Reset()
	}
	if err != nil {
		return nil, toStatus(err)
	}
	if fresh {
		id = s.register(sess)
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"session_id":   structpb.NewStringValue(id),
		"observation":  codec.FloatList(obs),
		"max_steps":    structpb.NewNumberValue(float64(sess.env.MaxSteps())),
		"sample_index": structpb.NewNumberValue(float64(sess.env.SampleIndex())),
		"jammer_label": structpb.NewNumberValue(float64(sess.env.CurrentLabel())),
	}}, nil
}

// Step applies action[3] to the session's current episode.
func (s *Server) Step(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.lookup(codec.String(in, "session_id"))
	if err != nil {
		return nil, toStatus(err)
	}
	raw, err := codec.Ints(in, "action")
	if err != nil {
		return nil, toStatus(err)
	}
	a, err := channel.ActionFromInts(raw)
	if err != nil {
		return nil, toStatus(err)
	}

	sess.mu.Lock()
	res, err := sess.env.Step(a)
	sess.mu.Unlock()
	if err != nil {
		return nil, toStatus(err)
	}

	info := &structpb.Struct{Fields: map[string]*structpb.Value{
		"sinr":   structpb.NewNumberValue(res.Info.SINR),
		"ber":    structpb.NewNumberValue(res.Info.BER),
		"reward": structpb.NewNumberValue(res.Info.Reward),
	}}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"observation": codec.FloatList(res.Observation),
		"reward":      structpb.NewNumberValue(res.Reward),
		"terminated":  structpb.NewBoolValue(res.Terminated),
		"truncated":   structpb.NewBoolValue(res.Truncated),
		"info":        structpb.NewStructValue(info),
	}}, nil
}

// Close drops a session.
func (s *Server) Close(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id := codec.String(in, "session_id")
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return nil, toStatus(fmt.Errorf("%w: %q", errUnknownSession, id))
	}
	log.Printf("[envserver] session %s closed", shortID(id))
	return &structpb.Struct{}, nil
}

// #endregion rpc

// #region errors
func toStatus(err error) error {
	switch {
	case errors.Is(err, errUnknownSession):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, env.ErrNotReset):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, channel.ErrInvalidAction),
		errors.Is(err, channel.ErrActionArity),
		errors.Is(err, codec.ErrBadMessage),
		errors.Is(err, env.ErrSampleIndex):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion errors
