package ports_test

import (
	"testing"

	mocks "github.com/target/casgate/internal/mocks/auth"
	"github.com/target/casgate/internal/ports"
)

// This test only verifies that our mocks conform to the ports at compile time.
func TestMocksImplementPorts(t *testing.T) {
	t.Helper()

	var _ ports.CASClient = (*mocks.MockCASClient)(nil)
	var _ ports.SessionStore = (*mocks.MemorySessionStore)(nil)
	var _ ports.CapabilityMapper = (*mocks.StaticCapabilityMapper)(nil)
	var _ ports.RetryMarkers = (*mocks.MemoryMarkers)(nil)
}
