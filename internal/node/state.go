// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines State, the closed set of categories every workflow node
// is counted under.
//
// Why a closed enumeration?
//
// The scheduler reports node status as free-form tokens. Folding those tokens
// into a fixed, ordered set of states gives every consumer (the aggregator,
// the terminal detector, the table renderer) the same vocabulary and makes a
// new scheduler token show up as a classification error instead of a node
// that silently disappears from the counts.
package node

import "fmt"

// State is the category a workflow node is counted under in one poll cycle.
type State int

const (
	// Unready indicates the node is waiting on its parents.
	Unready State = iota
	// Ready indicates the node may be submitted but has not been yet.
	Ready
	// Idle indicates the node's job is queued but not running.
	Idle
	// Running indicates the node's job, or one of its scripts, is running.
	Running
	// Held indicates the node's job is held or suspended.
	Held
	// Failed indicates the node has finished unsuccessfully.
	Failed
	// Done indicates the node has finished successfully.
	Done
)

// NumStates is the number of distinct node states.
const NumStates = int(Done) + 1

// States lists every state in table column order.
var States = [NumStates]State{Unready, Ready, Idle, Running, Held, Failed, Done}

var stateNames = [NumStates]string{"unready", "ready", "idle", "running", "held", "failed", "done"}

// String returns the lowercase token used in output headers, logs and JSON.
func (s State) String() string {
	if !s.Valid() {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Valid reports whether s is one of the declared states.
func (s State) Valid() bool {
	return s >= Unready && s <= Done
}

// InProgress reports whether a node in this state may still change. A
// workflow whose nodes are all outside these states has finished.
func (s State) InProgress() bool {
	switch s {
	case Unready, Ready, Idle, Running, Held:
		return true
	default:
		return false
	}
}

// ParseState converts a lowercase state token back into a State.
func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if n == name {
			return State(i), nil
		}
	}
	return 0, fmt.Errorf("unknown node state %q", name)
}
