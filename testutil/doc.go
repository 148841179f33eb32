// Package testutil wires harness components into Go tests.
//
// A TestComponent is a component.Component that can also be reset between
// test cases. For a server handle, reset means an in-place restart: the
// listener is torn down and rebound on the same port.
//
//	func TestReconnect(t *testing.T) {
//	    srv := newServer()
//	    h := testutil.T(t)
//	    h.Setup(srv)         // stopped automatically by t.Cleanup
//	    h.Reset(srv)         // restart, fails the test on timeout
//	}
//
// Manager groups several components with StartAll, ResetAll and StopAll.
package testutil
