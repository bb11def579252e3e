package model

import "fmt"

// ViolenceType is the classifier's categorical verdict for a text.
// Values are ordered by severity; a higher value is more severe.
type ViolenceType int

const (
	ViolenceNone           ViolenceType = iota // No violent or hateful content
	ViolenceDescriptive                        // Narrative mention of violence
	ViolenceSelfDirected                       // Violence aimed at the author ("kill myself")
	ViolenceHateSpeech                         // Dehumanizing language without a violent verb
	ViolenceCallToViolence                     // Violence aimed at others
)

var violenceTypeNames = [...]string{
	ViolenceNone:           "none",
	ViolenceDescriptive:    "descriptive",
	ViolenceSelfDirected:   "self_directed",
	ViolenceHateSpeech:     "hate_speech",
	ViolenceCallToViolence: "call_to_violence",
}

// ViolenceTypes lists every type from least to most severe.
func ViolenceTypes() []ViolenceType {
	return []ViolenceType{
		ViolenceNone,
		ViolenceDescriptive,
		ViolenceSelfDirected,
		ViolenceHateSpeech,
		ViolenceCallToViolence,
	}
}

func (t ViolenceType) String() string {
	if t < ViolenceNone || int(t) >= len(violenceTypeNames) {
		return fmt.Sprintf("ViolenceType(%d)", int(t))
	}
	return violenceTypeNames[t]
}

// Rank returns the position of t in the severity order.
func (t ViolenceType) Rank() int {
	return int(t)
}

// MoreSevereThan reports whether t ranks strictly above other.
func (t ViolenceType) MoreSevereThan(other ViolenceType) bool {
	return t.Rank() > other.Rank()
}

// ParseViolenceType converts a snake_case name back into a ViolenceType.
func ParseViolenceType(s string) (ViolenceType, error) {
	for i, name := range violenceTypeNames {
		if name == s {
			return ViolenceType(i), nil
		}
	}
	return ViolenceNone, fmt.Errorf("unknown violence type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t ViolenceType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ViolenceType) UnmarshalText(text []byte) error {
	parsed, err := ParseViolenceType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ClassificationResult is the outcome of classifying one text
type ClassificationResult struct {
	ViolenceType ViolenceType `json:"violence_type"`
	Details      string       `json:"details"`      // Human-readable rationale, not machine-parsed
	HasViolence  bool         `json:"has_violence"` // ViolenceType != none
}

// RiskVerdict is the outcome of scoring one text
type RiskVerdict struct {
	RiskScore       float64      `json:"risk_score"` // In [0, 1]
	ViolenceType    ViolenceType `json:"violence_type"`
	ViolentHits     int          `json:"violent_hits"`
	HateHitsStrong  int          `json:"hate_hits_strong"`
	HateHitsGeneric int          `json:"hate_hits_generic"`
	AllCapsWords    int          `json:"all_caps_words"`
	Exclamations    int          `json:"exclamations"`
	Explanation     string       `json:"explanation"`
}
