package activity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want Status
	}{
		{"presente", StatusPresent},
		{"PRESENTE", StatusPresent},
		{" Presente ", StatusPresent},
		{"atraso", StatusLate},
		{"Atraso", StatusLate},
		{"falta", StatusAbsent},
		{"FALTA", StatusAbsent},
		{"ausente", StatusAbsent},
		{"Ausente", StatusAbsent},
		{"", StatusAbsent},
		{"   ", StatusAbsent},
		{"compareceu", StatusAbsent},
		{"n/a", StatusAbsent},
	}
	for _, tt := range tests {
		t.Run("raw="+tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeStatus(tt.raw))
		})
	}
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusPresent.Valid())
	assert.True(t, StatusLate.Valid())
	assert.True(t, StatusAbsent.Valid())
	assert.False(t, Status("compareceu").Valid())
	assert.False(t, Status("").Valid())
}

func TestApprovalFromFlag(t *testing.T) {
	assert.Equal(t, ApprovalPending, ApprovalFromFlag(nil))
	assert.Equal(t, ApprovalApproved, ApprovalFromFlag(boolPtr(true)))
	assert.Equal(t, ApprovalRejected, ApprovalFromFlag(boolPtr(false)))
}
