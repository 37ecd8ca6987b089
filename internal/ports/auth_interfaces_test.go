package ports_test

import (
	"testing"

	mocks "github.com/vaultline/session-engine/internal/mocks"
	authmocks "github.com/vaultline/session-engine/internal/mocks/auth"
	"github.com/vaultline/session-engine/internal/ports"
)

// This test only verifies that our mocks conform to the ports at compile time.
func TestMocksImplementPorts(t *testing.T) {
	t.Helper()

	var _ ports.CredentialStore = (*authmocks.MemoryCredentialStore)(nil)
	var _ ports.IdentityStore = (*authmocks.MemoryIdentityStore)(nil)
	var _ ports.DeviceSigner = (*authmocks.StaticSigner)(nil)
	var _ ports.ViewInvalidator = (*authmocks.RecordingInvalidator)(nil)

	var _ ports.Transport = (*mocks.MockTransport)(nil)
	var _ ports.ViewInvalidator = (*mocks.MockViewInvalidator)(nil)
	var _ ports.BiometricVerifier = (*mocks.MockBiometricVerifier)(nil)
	var _ ports.CredentialStore = (*mocks.MockCredentialStore)(nil)
}
