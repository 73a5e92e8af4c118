package ports_test

import (
	"testing"

	"github.com/target/sessionauth/internal/mocks"
	mockauth "github.com/target/sessionauth/internal/mocks/auth"
	"github.com/target/sessionauth/internal/ports"
)

// This test only verifies that our mocks conform to the ports at compile time.
func TestMocksImplementPorts(t *testing.T) {
	t.Helper()

	var _ ports.UserStore = (*mockauth.MemoryUserStore)(nil)
	var _ ports.UserStore = (*mocks.MockUserStore)(nil)
	var _ ports.SessionRepository = (*mocks.MockSessionRepository)(nil)
	var _ ports.SessionStore = (*mocks.MockSessionStore)(nil)
	var _ ports.SessionRepository = (*mockauth.MemorySessionRepository)(nil)
}
