package calendar

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/looplab/fsm"

	"github.com/bensuskins/command-center/internal/signal"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

const (
	eventBegin      = "begin"
	eventConnect    = "connect"
	eventFail       = "fail"
	eventDisconnect = "disconnect"
)

// connection tracks the OAuth handshake. Restoring a saved token skips
// straight from disconnected to connected.
type connection struct {
	mutex   sync.Mutex
	machine *fsm.FSM
	state   *signal.Value[State]
}

func newConnection() *connection {
	return &connection{
		machine: fsm.NewFSM(
			string(StateDisconnected),
			fsm.Events{
				{Name: eventBegin, Src: []string{string(StateDisconnected)}, Dst: string(StateConnecting)},
				{Name: eventConnect, Src: []string{string(StateDisconnected), string(StateConnecting)}, Dst: string(StateConnected)},
				{Name: eventFail, Src: []string{string(StateConnecting)}, Dst: string(StateDisconnected)},
				{Name: eventDisconnect, Src: []string{string(StateConnecting), string(StateConnected)}, Dst: string(StateDisconnected)},
			},
			fsm.Callbacks{},
		),
		state: signal.New(StateDisconnected),
	}
}

func (conn *connection) current() State {
	conn.mutex.Lock()
	defer conn.mutex.Unlock()
	return State(conn.machine.Current())
}

// trigger fires event unless the machine is already in its destination.
func (conn *connection) trigger(ctx context.Context, event string) error {
	conn.mutex.Lock()
	err := conn.machine.Event(ctx, event)
	current := State(conn.machine.Current())
	conn.mutex.Unlock()

	var noTransition fsm.NoTransitionError
	if err != nil && !errors.As(err, &noTransition) {
		return fmt.Errorf("calendar %s from %s: %w", event, current, err)
	}
	if conn.state.Get() != current {
		conn.state.Set(current)
	}
	return nil
}
