package service

import "github.com/radflow-triage-server/internal/domain"

// SeedStudies returns the example worklist used when no snapshot exists.
func SeedStudies() []domain.PatientStudy {
	return []domain.PatientStudy{
		{
			ID:          "P-1042",
			Name:        "Margaret Chen",
			Age:         67,
			Gender:      "F",
			Modality:    domain.ModalityCT,
			StudyType:   "Chest/Abdomen/Pelvis w/ Contrast",
			Status:      domain.StatusInRoom,
			Priority:    domain.PriorityContrast,
			ArrivalTime: "08:05",
		},
		{
			ID:               "P-2317",
			Name:             "David Okafor",
			Age:              45,
			Gender:           "M",
			Modality:         domain.ModalityXRay,
			StudyType:        "Lumbar Spine 2 Views",
			Status:           domain.StatusRegistered,
			Priority:         domain.PriorityRoutine,
			ArrivalTime:      "08:20",
			TechnologistFlag: "Additional Views Needed",
		},
		{
			ID:          "P-3590",
			Name:        "Sofia Alvarez",
			Age:         29,
			Gender:      "F",
			Modality:    domain.ModalityUltrasound,
			StudyType:   "Abdomen Complete",
			Status:      domain.StatusRegistered,
			Priority:    domain.PriorityFasting,
			ArrivalTime: "08:35",
		},
		{
			ID:          "P-4876",
			Name:        "Robert Blake",
			Age:         72,
			Gender:      "M",
			Modality:    domain.ModalityCT,
			StudyType:   "Head w/o Contrast",
			Status:      domain.StatusReporting,
			Priority:    domain.PriorityStat,
			ArrivalTime: "08:41",
		},
		{
			ID:              "P-5123",
			Name:            "Aisha Rahman",
			Age:             54,
			Gender:          "F",
			Modality:        domain.ModalityMRI,
			StudyType:       "Brain w/ and w/o Contrast",
			Status:          domain.StatusDispatched,
			Priority:        domain.PriorityRoutine,
			ArrivalTime:     "07:50",
			RadiologistNote: "No acute intracranial abnormality.",
		},
	}
}
