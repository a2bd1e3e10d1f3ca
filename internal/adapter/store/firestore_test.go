package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// Runs against the Firestore emulator (gcloud emulators firestore start).
func TestFirestoreStore(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	s, err := NewFirestoreStore(context.Background(), "cirkle-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	runStoreSuite(t, s)
}
