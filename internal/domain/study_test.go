package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnumerationsHaveBadges(t *testing.T) {
	for _, s := range AllStatuses() {
		assert.True(t, s.Valid(), "status %q", s)
		assert.NotEmpty(t, s.Badge(), "status %q has no badge", s)
	}
	for _, p := range AllPriorities() {
		assert.True(t, p.Valid(), "priority %q", p)
		assert.NotEmpty(t, p.Badge(), "priority %q has no badge", p)
	}
	for _, m := range AllModalities() {
		assert.True(t, m.Valid(), "modality %q", m)
		assert.NotEmpty(t, m.Badge(), "modality %q has no badge", m)
	}

	assert.False(t, Status("Archived").Valid())
	assert.False(t, Priority("Urgent").Valid())
	assert.False(t, Modality("PET").Valid())
}

func TestEnumUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    PatientStudy
		wantErr bool
	}{
		{
			name:  "canonical values",
			input: `{"status":"In-Room","priority":"Stat/Sick","modality":"X-Ray"}`,
			want:  PatientStudy{Status: StatusInRoom, Priority: PriorityStat, Modality: ModalityXRay},
		},
		{
			name:  "aliases",
			input: `{"status":"Reporting","priority":"Stat","modality":"Ultrasound"}`,
			want:  PatientStudy{Status: StatusReporting, Priority: PriorityStat, Modality: ModalityUltrasound},
		},
		{name: "unknown status", input: `{"status":"Archived"}`, wantErr: true},
		{name: "unknown priority", input: `{"priority":"ASAP"}`, wantErr: true},
		{name: "unknown modality", input: `{"modality":"PET"}`, wantErr: true},
		{name: "wrong type", input: `{"status":3}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got PatientStudy
			err := json.Unmarshal([]byte(tt.input), &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeStudyPatch(t *testing.T) {
	patch, err := DecodeStudyPatch(strings.NewReader(`{"status":"Dispatched","technologistFlag":""}`))
	require.NoError(t, err)
	require.NotNil(t, patch.Status)
	assert.Equal(t, StatusDispatched, *patch.Status)
	require.NotNil(t, patch.TechnologistFlag)
	assert.Equal(t, "", *patch.TechnologistFlag)
	assert.Nil(t, patch.RadiologistNote)
	assert.False(t, patch.IsEmpty())

	for _, doc := range []string{
		`{"priority":"Stat"}`,
		`{"id":"P-1"}`,
		`{"arrivalTime":"10:00"}`,
		`{"colour":"red"}`,
		`{"status":"Archived"}`,
		`not json`,
	} {
		_, err := DecodeStudyPatchBytes([]byte(doc))
		assert.Error(t, err, doc)
	}

	empty, err := DecodeStudyPatchBytes([]byte(`{}`))
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())
}

func TestStudyPatchApply(t *testing.T) {
	original := PatientStudy{
		ID:               "P-1001",
		Name:             "Alice Smith",
		Age:              34,
		Gender:           "F",
		Modality:         ModalityMRI,
		StudyType:        "Brain w/ Contrast",
		Status:           StatusRegistered,
		Priority:         PriorityContrast,
		ArrivalTime:      "08:15",
		TechnologistFlag: "Need Lateral View",
	}

	status := StatusReporting
	note := "Reviewed, no acute findings"
	cleared := ""
	got := StudyPatch{Status: &status, RadiologistNote: &note, TechnologistFlag: &cleared}.Apply(original)

	want := original
	want.Status = StatusReporting
	want.RadiologistNote = note
	want.TechnologistFlag = ""
	assert.Equal(t, want, got)
	assert.Equal(t, StatusRegistered, original.Status, "apply must not modify its argument")
}

func TestComputeStats(t *testing.T) {
	studies := []PatientStudy{
		{ID: "P-1", Status: StatusRegistered, Priority: PriorityStat},
		{ID: "P-2", Status: StatusRegistered, Priority: PriorityRoutine},
		{ID: "P-3", Status: StatusInRoom, Priority: PriorityStat},
		{ID: "P-4", Status: StatusDispatched, Priority: PriorityFasting},
	}

	stats := ComputeStats(studies)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 3, stats.Live)
	assert.Equal(t, 2, stats.Urgent)
	assert.Equal(t, 2, stats.Queue)
	assert.Equal(t, 0, stats.ByStatus[StatusReporting])
	assert.Equal(t, 1, stats.ByPriority[PriorityFasting])
	assert.Len(t, stats.ByStatus, len(AllStatuses()))
	assert.Len(t, stats.ByPriority, len(AllPriorities()))
}

func TestDecodeStudies(t *testing.T) {
	studies, err := DecodeStudies([]byte(`[{"id":"P-1","status":"Registered","priority":"Routine","modality":"CT"}]`))
	require.NoError(t, err)
	require.Len(t, studies, 1)
	assert.Equal(t, "P-1", studies[0].ID)

	empty, err := DecodeStudies([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, empty)

	for _, doc := range []string{`{`, `null`, `{"id":"P-1"}`, `[{"status":"Lost"}]`} {
		_, err := DecodeStudies([]byte(doc))
		assert.True(t, errors.Is(err, ErrInvalidSnapshot), doc)
	}
}

func TestParseReportAnalysis(t *testing.T) {
	full := `{"clinicalHistory":"CKD stage 3","labCorrelations":"Creatinine 1.8","keyFindings":"3.4cm right renal mass","followUpSuggestions":"Urology referral"}`

	analysis, err := ParseReportAnalysis(full)
	require.NoError(t, err)
	assert.Equal(t, &ReportAnalysis{
		ClinicalHistory:     "CKD stage 3",
		LabCorrelations:     "Creatinine 1.8",
		KeyFindings:         "3.4cm right renal mass",
		FollowUpSuggestions: "Urology referral",
	}, analysis)

	tests := []struct {
		name string
		body string
	}{
		{"missing field", `{"clinicalHistory":"a","labCorrelations":"b","keyFindings":"c"}`},
		{"non-string field", `{"clinicalHistory":"a","labCorrelations":"b","keyFindings":"c","followUpSuggestions":4}`},
		{"null field", `{"clinicalHistory":null,"labCorrelations":"b","keyFindings":"c","followUpSuggestions":"d"}`},
		{"object field", `{"clinicalHistory":"a","labCorrelations":{"text":"b"},"keyFindings":"c","followUpSuggestions":"d"}`},
		{"not json", `The report shows a renal mass.`},
		{"array", `["a","b","c","d"]`},
		{"empty", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReportAnalysis(tt.body)
			assert.Error(t, err)
			assert.Nil(t, got)
		})
	}
}
