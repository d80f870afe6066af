package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/PoalNinh/poscore/internal/remote"
)

// RemoteCall records one request seen by the stub.
type RemoteCall struct {
	Entity  string
	Op      remote.Op
	Payload remote.Payload
}

// RemoteStub is a scripted in-memory remote store. Tests preload Find
// responses per entity and inject failures per (entity, op); every call
// is recorded for assertion.
type RemoteStub struct {
	mu       sync.Mutex
	findRows map[string]json.RawMessage
	failures map[string]error
	calls    []RemoteCall
}

// NewRemoteStub creates an empty stub.
func NewRemoteStub() *RemoteStub {
	return &RemoteStub{
		findRows: make(map[string]json.RawMessage),
		failures: make(map[string]error),
	}
}

// SetFindRows scripts the rows returned by Find for an entity. v is
// marshaled to JSON.
func (s *RemoteStub) SetFindRows(entity string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("RemoteStub.SetFindRows: %v", err))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findRows[entity] = raw
}

// FailWith makes every (entity, op) request return err until cleared
// with a nil err.
func (s *RemoteStub) FailWith(entity string, op remote.Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := entity + "/" + string(op)
	if err == nil {
		delete(s.failures, key)
		return
	}
	s.failures[key] = err
}

// Request implements remote.Requester.
func (s *RemoteStub) Request(_ context.Context, entity string, op remote.Op, p remote.Payload) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, RemoteCall{Entity: entity, Op: op, Payload: p})

	if err := s.failures[entity+"/"+string(op)]; err != nil {
		return nil, err
	}

	if op == remote.OpFind {
		if rows, ok := s.findRows[entity]; ok {
			return rows, nil
		}
		return json.RawMessage("[]"), nil
	}
	return json.RawMessage("{}"), nil
}

// Calls returns a copy of every recorded request.
func (s *RemoteStub) Calls() []RemoteCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RemoteCall, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallCount returns the number of requests for an (entity, op) pair.
func (s *RemoteStub) CallCount(entity string, op remote.Op) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Entity == entity && c.Op == op {
			n++
		}
	}
	return n
}

// Reset clears recorded calls (scripted rows and failures remain).
func (s *RemoteStub) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}
