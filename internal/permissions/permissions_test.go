//go:build !darwin

package permissions

import (
	"testing"

	"go.uber.org/zap"
)

func TestEnsureScreenRecordingElsewhere(t *testing.T) {
	if err := EnsureScreenRecording(zap.NewNop()); err != nil {
		t.Errorf("EnsureScreenRecording = %v, want nil", err)
	}
}
