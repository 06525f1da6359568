package service

// SampleReport is an example unstructured report for trying the analyzer.
const SampleReport = `CT ABDOMEN AND PELVIS WITH CONTRAST

CLINICAL INDICATION: 58-year-old male with chronic kidney disease stage 3 and intermittent gross hematuria. History of hypertension and type 2 diabetes.

LABS: Creatinine 1.9 mg/dL (baseline 1.6). eGFR 38. Hemoglobin 11.2 g/dL. Urinalysis positive for blood.

FINDINGS: There is a 3.4 cm heterogeneously enhancing solid mass arising from the lower pole of the right kidney, without extension into the renal vein or IVC. The left kidney demonstrates mild cortical thinning consistent with chronic disease. No hydronephrosis. No retroperitoneal lymphadenopathy. Liver, spleen and pancreas are unremarkable.

IMPRESSION: 3.4 cm enhancing right renal mass, suspicious for renal cell carcinoma. Background changes of chronic kidney disease.

RECOMMENDATION: Urology referral. Consider renal mass protocol MRI given reduced renal function.`

// DelayReasons returns the common explanations offered for a changed
// scanning order.
func DelayReasons() []string {
	return []string{
		"An emergency trauma case (Stat) has just arrived and needs an immediate scan.",
		"Another patient has just completed a required fasting period.",
		"Contrast preparation time varies between patients for safety reasons.",
		"Equipment calibration is in progress to ensure accurate images.",
	}
}
