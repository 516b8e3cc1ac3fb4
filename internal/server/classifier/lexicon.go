package classifier

import (
	"sort"
	"strings"
)

// Lexicon is an immutable set of lowercase keywords. Build it once and share
// it; there is no mutation API.
type Lexicon struct {
	terms []string
}

// NewLexicon lowercases, trims and deduplicates terms. Empty entries are
// dropped. Terms are kept in a stable order so match lists are reproducible.
func NewLexicon(terms []string) *Lexicon {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = normalize(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return &Lexicon{terms: out}
}

// Len returns the number of distinct terms.
func (l *Lexicon) Len() int { return len(l.terms) }

// Terms returns a copy of the terms.
func (l *Lexicon) Terms() []string {
	out := make([]string, len(l.terms))
	copy(out, l.terms)
	return out
}

// Contains reports whether term (after normalization) is in the lexicon.
func (l *Lexicon) Contains(term string) bool {
	term = normalize(term)
	i := sort.SearchStrings(l.terms, term)
	return i < len(l.terms) && l.terms[i] == term
}

var defaultLexicon = NewLexicon(medicalTerms)

// DefaultLexicon returns the built-in medical lexicon.
func DefaultLexicon() *Lexicon { return defaultLexicon }

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// medicalTerms spans professional titles, tests, conditions, medications,
// procedures and general health vocabulary. Short entries such as "dr", "ent"
// and "flu" match inside unrelated words; that is accepted.
var medicalTerms = []string{
	// general
	"prescription", "doctor", "physician", "surgeon", "nurse", "hospital", "clinic", "patient", "medical", "diagnosis", "treatment",
	"therapy", "medication", "meds", "medications", "clinical", "hospitalization", "health", "healthcare", "medical report", "treatment plan",
	"medical history", "outpatient", "inpatient", "referral", "consultation", "consulting", "check-up", "vaccination", "screening",
	"routine", "discharge", "medical certificate", "lab test", "test result", "test report", "health condition", "medical condition",

	// professionals
	"dr", "dr.", "cardiologist", "neurologist", "orthopedist", "dermatologist", "pediatrician",
	"gynecologist", "radiologist", "pathologist", "oncologist", "urologist", "dentist", "psychiatrist", "optometrist", "therapist",
	"chiropractor", "podiatrist", "ENT", "audiologist", "speech therapist", "clinical psychologist", "nurse practitioner",

	// diagnostics
	"blood test", "cbc", "lipid profile", "glucose test", "blood sugar", "esr", "thyroid function test", "liver function test", "kidney function test",
	"urine test", "stool test", "sputum test", "biopsy", "ct scan", "mri", "ultrasound", "ecg", "x-ray", "mammogram", "pet scan", "pcr",
	"ultrasound scan", "endoscopy", "colonoscopy", "serum test", "hba1c", "prostate test", "glucose monitoring", "cholesterol level",
	"clinical examination", "blood pressure", "body temperature", "pulse rate", "oxygen saturation", "imaging", "microbiology", "cytology",
	"histopathology", "electrocardiogram", "electromyography", "biochemical tests",

	// conditions
	"diabetes", "hypertension", "heart disease", "stroke", "cancer", "breast cancer", "prostate cancer", "liver cancer", "lung cancer", "colon cancer",
	"tuberculosis", "asthma", "arthritis", "migraine", "chronic pain", "back pain", "osteoporosis", "rheumatoid arthritis", "autoimmune disease",
	"alzheimers", "parkinsons", "dementia", "chronic obstructive pulmonary disease", "kidney failure", "renal disease", "hepatitis", "HIV", "AIDS",
	"covid-19", "covid", "flu", "influenza", "cold", "virus", "infection", "pneumonia", "sepsis", "malaria", "syphilis",
	"hepatitis B", "hepatitis C", "cholera", "dengue", "diabetic retinopathy", "cirrhosis", "hepatitis A", "gout", "bipolar disorder", "depression",
	"anxiety", "mental health", "psychiatric disorders", "schizophrenia", "bipolar", "depressive disorder", "psychosis", "post-traumatic stress disorder",

	// medications and treatments
	"painkiller", "analgesic", "antibiotic", "antiviral", "antifungal", "pain relief", "insulin", "glucagon", "antidepressant", "antihypertensive",
	"beta blocker", "antibiotics", "steroids", "chemo", "chemotherapy", "radiotherapy", "immunization", "antihistamine",
	"medication list", "pill", "tablet", "capsule", "syrup", "ointment", "cream", "inhaler", "nasal spray", "intravenous", "vaccine",
	"immunotherapy", "dialysis", "blood transfusion", "surgical procedure", "organ transplant", "anesthesia", "surgical removal", "anticoagulants",
	"aspirin", "penicillin", "metformin", "ibuprofen", "paracetamol", "morphine", "antipsychotic", "anticonvulsant", "statin",

	// procedures
	"surgery", "operation", "cataract surgery", "appendectomy", "heart surgery", "spinal surgery", "knee replacement", "hip replacement",
	"bypass surgery", "cesarean section", "plastic surgery", "cosmetic surgery", "laparoscopy", "stitch", "surgical incision", "bone marrow biopsy",
	"endoscopic procedure", "bronchoscopy", "arthroscopy", "mammoplasty", "bariatric surgery",

	// health
	"obesity", "weight loss", "weight management", "nutrition", "diet", "exercise", "rehabilitation", "chronic condition", "wellness", "physical therapy",
	"rehab", "fitness", "strengthening", "mobility", "cardiopulmonary", "diabetes management", "hypertension management", "post-surgery care",
	"pain management", "blood pressure control", "mental health care", "nursing care", "home care", "dietician", "nutritionist", "pediatric care",
	"geriatric care", "senior care",

	// other
	"medical imaging", "laboratory", "pharmacy", "medicines", "healthcare provider", "emergency room", "urgent care", "clinical trial",
	"drug interaction", "medical advice", "symptom", "diagnostic test", "prescription refill", "patient care", "care plan", "medical insurance",
	"health insurance", "health check", "preventive care", "clinical notes", "follow-up", "medical documentation", "health records",
	"treatment record", "patient history", "sick leave", "medical leave", "physical examination",
}
