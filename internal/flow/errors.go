package flow

import (
	"errors"
	"fmt"
)

var (
	ErrMissingName   = errors.New("flow name is required")
	ErrInvalidNodeID = errors.New("invalid node ID")
	ErrDuplicateNode = errors.New("duplicate node ID")
	ErrNodeNotFound  = errors.New("node not found")
	ErrDanglingEdge  = errors.New("edge references a missing node")
)

// NodeError ties an error to a node.
type NodeError struct {
	NodeID string
	Err    error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %v", e.NodeID, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

// EdgeError ties an error to an edge.
type EdgeError struct {
	EdgeID string
	Err    error
}

func (e *EdgeError) Error() string {
	return fmt.Sprintf("edge %s: %v", e.EdgeID, e.Err)
}

func (e *EdgeError) Unwrap() error { return e.Err }
