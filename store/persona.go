package store

// Persona is a structured character description steering one simulated chat participant.
// Personas are immutable once created; regeneration replaces the whole record.
type Persona struct {
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	Age               int              `json:"age"`
	Education         Education        `json:"education"`
	FamilyBackground  FamilyBackground `json:"familyBackground"`
	Career            Career           `json:"career"`
	Philosophy        Philosophy       `json:"philosophy"`
	Hobbies           []string         `json:"hobbies"`
	Catchphrases      []string         `json:"catchphrases"`
	PersonalityTraits []string         `json:"personalityTraits"`
}

type Education struct {
	School      string `json:"school"`
	Major       string `json:"major"`
	Degree      string `json:"degree"`
	StudyAbroad string `json:"studyAbroad,omitempty"`
}

type FamilyBackground struct {
	FatherOccupation string `json:"fatherOccupation"`
	MotherOccupation string `json:"motherOccupation"`
	FamilyStatus     string `json:"familyStatus"`
	PropertyCount    int    `json:"propertyCount"`
	CarBrand         string `json:"carBrand"`
}

type Career struct {
	Title        string `json:"title"`
	Company      string `json:"company"`
	Industry     string `json:"industry"`
	AnnualIncome string `json:"annualIncome"`
	Subordinates int    `json:"subordinates"`
}

type Philosophy struct {
	LifeMotto     string `json:"lifeMotto"`
	SuccessSecret string `json:"successSecret"`
	Worldview     string `json:"worldview"`
}

// PersonaSlot names one of the two persona positions.
type PersonaSlot string

const (
	PersonaSlotA PersonaSlot = "A"
	PersonaSlotB PersonaSlot = "B"
)

// PersonaPair holds both personas. Either may be nil before the first generation.
type PersonaPair struct {
	A *Persona `json:"personaA,omitempty"`
	B *Persona `json:"personaB,omitempty"`
}

// Complete reports whether both personas are present.
func (p *PersonaPair) Complete() bool {
	return p != nil && p.A != nil && p.B != nil
}
