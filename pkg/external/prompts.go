package external

import (
	"fmt"

	"github.com/radflow-triage-server/internal/domain"
)

const analysisSystemInstruction = "You are an assistant to an experienced radiologist. " +
	"Analyze the unstructured radiology report you are given and extract the key clinical insights in structured form. " +
	"Use professional medical terminology, and keep lab correlations and clinical history strictly separate from the key findings."

const explanationSystemInstruction = "You are a patient coordinator at a high-end medical imaging center."

var analysisFieldDescriptions = map[string]string{
	"clinicalHistory":     "Relevant patient medical history mentioned in the report",
	"labCorrelations":     "Any lab values or bloodwork correlations mentioned",
	"keyFindings":         "The core imaging findings and diagnosis",
	"followUpSuggestions": "Recommended next steps or further studies",
}

func analysisSchema() *ResponseSchema {
	schema := &ResponseSchema{}
	for _, name := range domain.ReportAnalysisFields {
		schema.Properties = append(schema.Properties, SchemaProperty{
			Name:        name,
			Description: analysisFieldDescriptions[name],
		})
	}
	return schema
}

func explanationPrompt(patientName, reason string) string {
	return fmt.Sprintf(
		"Write a short, empathetic explanation for a waiting patient named %s. "+
			"Another patient is being seen first for this reason: %s. "+
			"Tone: compassionate, professional and reassuring. Keep it under 60 words.",
		patientName, reason,
	)
}
