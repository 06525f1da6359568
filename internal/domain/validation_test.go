package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestValidator_RegisterStudyRequest(t *testing.T) {
	v, err := NewRequestValidator()
	require.NoError(t, err)

	valid := RegisterStudyRequest{
		Name:      "Jane Doe",
		Age:       45,
		Gender:    "F",
		Modality:  ModalityCT,
		StudyType: "Head w/o Contrast",
		Priority:  PriorityRoutine,
	}
	assert.NoError(t, v.Struct(valid))

	tests := []struct {
		name   string
		mutate func(r *RegisterStudyRequest)
	}{
		{"missing name", func(r *RegisterStudyRequest) { r.Name = "" }},
		{"negative age", func(r *RegisterStudyRequest) { r.Age = -3 }},
		{"unknown modality", func(r *RegisterStudyRequest) { r.Modality = "PET" }},
		{"unknown priority", func(r *RegisterStudyRequest) { r.Priority = "Urgent" }},
		{"alias is not canonical", func(r *RegisterStudyRequest) { r.Priority = "Stat" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			assert.Error(t, v.Struct(req))
		})
	}
}
