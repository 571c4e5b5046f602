package netbridge

import (
	"testing"
)

func TestNewConvertNode(t *testing.T) {
	node := NewConvertNode("test-node", "127.0.0.1", 5555)
	if node == nil {
		t.Fatal("NewConvertNode returned nil")
	}

	if node.nodeID != "test-node" {
		t.Errorf("Expected nodeID 'test-node', got %s", node.nodeID)
	}

	if node.address != "tcp://127.0.0.1:5555" {
		t.Errorf("Expected address 'tcp://127.0.0.1:5555', got %s", node.address)
	}

	if node.IsRunning() {
		t.Error("New node should not be running")
	}
}

func TestConvertNodeStats(t *testing.T) {
	node := NewConvertNode("stats-node", "127.0.0.1", 5556)

	stats := node.GetStats()
	if stats.NodeID != "stats-node" {
		t.Errorf("Expected node ID 'stats-node', got %s", stats.NodeID)
	}
	if stats.Requests != 0 || stats.Failures != 0 {
		t.Errorf("Fresh node should have zero counters: %+v", stats)
	}
	if stats.IsRunning {
		t.Error("Fresh node should not report running")
	}
}

func TestConvertNodeStopWhenNotRunning(t *testing.T) {
	node := NewConvertNode("idle-node", "127.0.0.1", 5557)

	// Stop on a node that never started must not panic
	node.Stop()

	if node.IsRunning() {
		t.Error("Node should not be running")
	}
}

func TestConvertNodeProcessRejectsBadEnvelope(t *testing.T) {
	node := NewConvertNode("proc-node", "127.0.0.1", 5558)

	reply := node.process([]byte("not json"))
	if reply.Status != "error" {
		t.Errorf("Expected error reply, got %+v", reply)
	}

	stats := node.GetStats()
	if stats.Requests != 1 || stats.Failures != 1 {
		t.Errorf("Expected 1 request and 1 failure, got %+v", stats)
	}
}
