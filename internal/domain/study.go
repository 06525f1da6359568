package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Status is the workflow state of a study. Transitions between states are
// advisory: any member may be set from any other member.
type Status string

const (
	StatusRegistered Status = "Registered"
	StatusInRoom     Status = "In-Room"
	StatusReporting  Status = "Reporting"
	StatusDispatched Status = "Dispatched"
)

// AllStatuses returns every workflow state in nominal order.
func AllStatuses() []Status {
	return []Status{StatusRegistered, StatusInRoom, StatusReporting, StatusDispatched}
}

// Valid reports whether s is a member of the status enumeration.
func (s Status) Valid() bool {
	return s.Badge() != ""
}

// Badge returns the worklist style token for the status.
func (s Status) Badge() string {
	switch s {
	case StatusRegistered:
		return "slate"
	case StatusInRoom:
		return "blue"
	case StatusReporting:
		return "amber"
	case StatusDispatched:
		return "emerald"
	}
	return ""
}

// UnmarshalJSON rejects values outside the enumeration.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v := Status(raw)
	if !v.Valid() {
		return NewValidationError("status", "unknown status", raw)
	}
	*s = v
	return nil
}

// Priority is the triage classification assigned at registration.
type Priority string

const (
	PriorityRoutine  Priority = "Routine"
	PriorityFasting  Priority = "Fasting"
	PriorityContrast Priority = "Contrast"
	PriorityStat     Priority = "Stat/Sick"
)

// AllPriorities returns every priority from least to most urgent.
func AllPriorities() []Priority {
	return []Priority{PriorityRoutine, PriorityFasting, PriorityContrast, PriorityStat}
}

func (p Priority) Valid() bool {
	return p.Badge() != ""
}

// Badge returns the worklist style token for the priority.
func (p Priority) Badge() string {
	switch p {
	case PriorityRoutine:
		return "gray"
	case PriorityFasting:
		return "orange"
	case PriorityContrast:
		return "purple"
	case PriorityStat:
		return "red"
	}
	return ""
}

// UnmarshalJSON accepts "Stat" as shorthand for "Stat/Sick".
func (p *Priority) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v := Priority(raw)
	if raw == "Stat" {
		v = PriorityStat
	}
	if !v.Valid() {
		return NewValidationError("priority", "unknown priority", raw)
	}
	*p = v
	return nil
}

// Modality is the imaging technique of a study.
type Modality string

const (
	ModalityCT         Modality = "CT"
	ModalityMRI        Modality = "MRI"
	ModalityXRay       Modality = "X-Ray"
	ModalityUltrasound Modality = "US"
)

func AllModalities() []Modality {
	return []Modality{ModalityCT, ModalityMRI, ModalityXRay, ModalityUltrasound}
}

func (m Modality) Valid() bool {
	return m.Badge() != ""
}

// Badge returns the worklist style token for the modality.
func (m Modality) Badge() string {
	switch m {
	case ModalityCT:
		return "indigo"
	case ModalityMRI:
		return "violet"
	case ModalityXRay:
		return "sky"
	case ModalityUltrasound:
		return "teal"
	}
	return ""
}

// UnmarshalJSON accepts "Ultrasound" as the long form of "US".
func (m *Modality) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v := Modality(raw)
	if raw == "Ultrasound" {
		v = ModalityUltrasound
	}
	if !v.Valid() {
		return NewValidationError("modality", "unknown modality", raw)
	}
	*m = v
	return nil
}

// PatientStudy is one row in the triage worklist.
type PatientStudy struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Age              int      `json:"age"`
	Gender           string   `json:"gender"`
	Modality         Modality `json:"modality"`
	StudyType        string   `json:"studyType"`
	Status           Status   `json:"status"`
	Priority         Priority `json:"priority"`
	ArrivalTime      string   `json:"arrivalTime"`
	TechnologistFlag string   `json:"technologistFlag,omitempty"`
	RadiologistNote  string   `json:"radiologistNote,omitempty"`
	ClinicalHistory  string   `json:"clinicalHistory,omitempty"`
}

// StudyPatch carries the mutable fields of a study. Nil fields are left
// untouched; an empty string clears an optional text field.
type StudyPatch struct {
	Name             *string   `json:"name,omitempty"`
	Age              *int      `json:"age,omitempty"`
	Gender           *string   `json:"gender,omitempty"`
	Modality         *Modality `json:"modality,omitempty"`
	StudyType        *string   `json:"studyType,omitempty"`
	Status           *Status   `json:"status,omitempty"`
	TechnologistFlag *string   `json:"technologistFlag,omitempty"`
	RadiologistNote  *string   `json:"radiologistNote,omitempty"`
	ClinicalHistory  *string   `json:"clinicalHistory,omitempty"`
}

// DecodeStudyPatch decodes a patch document, rejecting fields that are not
// patchable (including id, priority and arrivalTime).
func DecodeStudyPatch(r io.Reader) (StudyPatch, error) {
	var patch StudyPatch
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		return StudyPatch{}, fmt.Errorf("invalid study patch: %w", err)
	}
	return patch, nil
}

// DecodeStudyPatchBytes is DecodeStudyPatch over a byte slice.
func DecodeStudyPatchBytes(data []byte) (StudyPatch, error) {
	return DecodeStudyPatch(bytes.NewReader(data))
}

// IsEmpty reports whether the patch changes nothing.
func (p StudyPatch) IsEmpty() bool {
	return p == StudyPatch{}
}

// Apply returns a copy of study with the patch merged in.
func (p StudyPatch) Apply(study PatientStudy) PatientStudy {
	if p.Name != nil {
		study.Name = *p.Name
	}
	if p.Age != nil {
		study.Age = *p.Age
	}
	if p.Gender != nil {
		study.Gender = *p.Gender
	}
	if p.Modality != nil {
		study.Modality = *p.Modality
	}
	if p.StudyType != nil {
		study.StudyType = *p.StudyType
	}
	if p.Status != nil {
		study.Status = *p.Status
	}
	if p.TechnologistFlag != nil {
		study.TechnologistFlag = *p.TechnologistFlag
	}
	if p.RadiologistNote != nil {
		study.RadiologistNote = *p.RadiologistNote
	}
	if p.ClinicalHistory != nil {
		study.ClinicalHistory = *p.ClinicalHistory
	}
	return study
}

// RegisterStudyRequest holds the fields staff supply when registering a
// patient. The system assigns id, status and arrival time.
type RegisterStudyRequest struct {
	Name      string   `json:"name" binding:"required"`
	Age       int      `json:"age" binding:"gte=0,lte=150"`
	Gender    string   `json:"gender" binding:"required"`
	Modality  Modality `json:"modality" binding:"required,enum"`
	StudyType string   `json:"studyType" binding:"required"`
	Priority  Priority `json:"priority" binding:"required,enum"`
}

// StudyStats is the dashboard read view over the worklist.
type StudyStats struct {
	Total      int              `json:"total"`
	Live       int              `json:"live"`
	Urgent     int              `json:"urgent"`
	Queue      int              `json:"queue"`
	ByStatus   map[Status]int   `json:"byStatus"`
	ByPriority map[Priority]int `json:"byPriority"`
}

// ComputeStats derives dashboard counters from a list of studies.
func ComputeStats(studies []PatientStudy) StudyStats {
	stats := StudyStats{
		Total:      len(studies),
		ByStatus:   make(map[Status]int, len(AllStatuses())),
		ByPriority: make(map[Priority]int, len(AllPriorities())),
	}
	for _, s := range AllStatuses() {
		stats.ByStatus[s] = 0
	}
	for _, p := range AllPriorities() {
		stats.ByPriority[p] = 0
	}

	for _, study := range studies {
		stats.ByStatus[study.Status]++
		stats.ByPriority[study.Priority]++
		if study.Status != StatusDispatched {
			stats.Live++
		}
		if study.Status == StatusRegistered {
			stats.Queue++
		}
		if study.Priority == PriorityStat {
			stats.Urgent++
		}
	}
	return stats
}

// DecodeStudies parses a serialized worklist snapshot.
func DecodeStudies(data []byte) ([]PatientStudy, error) {
	var studies []PatientStudy
	if err := json.Unmarshal(data, &studies); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if studies == nil {
		return nil, fmt.Errorf("%w: not a study list", ErrInvalidSnapshot)
	}
	return studies, nil
}
