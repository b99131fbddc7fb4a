package history

import (
	"github.com/ritzau/notegraph/pkg/model"
)

// DefaultCapacity is the number of snapshots kept on each stack
const DefaultCapacity = 50

// Manager keeps bounded undo and redo stacks of full graph snapshots.
// It exclusively owns both stacks; every snapshot is a deep copy.
// Manager is not safe for concurrent use; its owner serialises access.
type Manager struct {
	capacity int
	undo     []model.Graph
	redo     []model.Graph
}

// NewManager creates a manager keeping at most capacity snapshots per stack.
// Capacities below one are raised to one.
func NewManager(capacity int) *Manager {
	if capacity < 1 {
		capacity = 1
	}
	return &Manager{capacity: capacity}
}

// Record snapshots current before a local edit. It clears redo history, since a new
// action invalidates it, and evicts the oldest snapshot when over capacity.
func (m *Manager) Record(current model.Graph) {
	m.undo = push(m.undo, current.Clone(), m.capacity)
	m.redo = nil
}

// Undo pops the latest snapshot and moves current onto the redo stack.
// It reports false and leaves both stacks untouched when there is nothing to undo.
func (m *Manager) Undo(current model.Graph) (model.Graph, bool) {
	if len(m.undo) == 0 {
		return nil, false
	}
	var snap model.Graph
	m.undo, snap = pop(m.undo)
	m.redo = push(m.redo, current.Clone(), m.capacity)
	return snap, true
}

// Redo is the mirror of Undo.
func (m *Manager) Redo(current model.Graph) (model.Graph, bool) {
	if len(m.redo) == 0 {
		return nil, false
	}
	var snap model.Graph
	m.redo, snap = pop(m.redo)
	m.undo = push(m.undo, current.Clone(), m.capacity)
	return snap, true
}

// Depth returns the sizes of the undo and redo stacks.
func (m *Manager) Depth() (undo, redo int) {
	return len(m.undo), len(m.redo)
}

// Reset drops all history.
func (m *Manager) Reset() {
	m.undo = nil
	m.redo = nil
}

func push(stack []model.Graph, g model.Graph, capacity int) []model.Graph {
	stack = append(stack, g)
	if over := len(stack) - capacity; over > 0 {
		// Drop the oldest entries; copy so the backing array doesn't grow forever
		stack = append([]model.Graph(nil), stack[over:]...)
	}
	return stack
}

func pop(stack []model.Graph) ([]model.Graph, model.Graph) {
	last := len(stack) - 1
	g := stack[last]
	stack[last] = nil
	return stack[:last], g
}
