// Package dossier provides the patient record a session is about and
// renders it into the context block handed to the generation service.
package dossier

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed dossier.yaml
var demoDossier []byte

type Diagnosis struct {
	Date      string `yaml:"date"`
	Diagnosis string `yaml:"diagnosis"`
	Treatment string `yaml:"treatment"`
	Status    string `yaml:"status"`
}

type Allergy struct {
	Substance string `yaml:"substance"`
	Reaction  string `yaml:"reaction"`
	Severity  string `yaml:"severity"`
}

type Medication struct {
	Name      string `yaml:"name"`
	Dose      string `yaml:"dose"`
	Frequency string `yaml:"frequency"`
	Reason    string `yaml:"reason"`
}

type Check struct {
	Date   string `yaml:"date"`
	Kind   string `yaml:"kind"`
	Result string `yaml:"result"`
	Action string `yaml:"action"`
}

type Social struct {
	Living   string `yaml:"living"`
	Mobility string `yaml:"mobility"`
	CareNeed string `yaml:"care_need"`
	Support  string `yaml:"support"`
	Devices  string `yaml:"devices"`
}

type Preferences struct {
	Language   string `yaml:"language"`
	Religion   string `yaml:"religion"`
	CareWishes string `yaml:"care_wishes"`
}

type Dossier struct {
	PatientID   string       `yaml:"patient_id"`
	Name        string       `yaml:"name"`
	BirthDate   string       `yaml:"birth_date"`
	Sex         string       `yaml:"sex"`
	Address     string       `yaml:"address"`
	Phone       string       `yaml:"phone"`
	GP          string       `yaml:"gp"`
	GPPhone     string       `yaml:"gp_phone"`
	History     []Diagnosis  `yaml:"history"`
	Allergies   []Allergy    `yaml:"allergies"`
	Medication  []Medication `yaml:"medication"`
	Checks      []Check      `yaml:"checks"`
	RiskFactors []string     `yaml:"risk_factors"`
	Social      Social       `yaml:"social"`
	Preferences Preferences  `yaml:"preferences"`
}

func Demo() *Dossier {
	d, err := Parse(demoDossier)
	if err != nil {
		panic(fmt.Sprintf("embedded dossier: %v", err))
	}
	return d
}

// Load reads a dossier from path, or returns the demo dossier when path
// is empty.
func Load(path string) (*Dossier, error) {
	if path == "" {
		return Demo(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dossier: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Dossier, error) {
	var d Dossier
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse dossier: %w", err)
	}
	if d.PatientID == "" {
		return nil, fmt.Errorf("dossier has no patient_id")
	}
	return &d, nil
}

// Active returns the diagnoses still marked active.
func (d *Dossier) Active() []Diagnosis {
	var out []Diagnosis
	for _, h := range d.History {
		if strings.EqualFold(h.Status, "actief") || strings.EqualFold(h.Status, "active") {
			out = append(out, h)
		}
	}
	return out
}

var contextTemplate = template.Must(template.New("context").Parse(`
PATIËNT DOSSIER: {{.Name}} (ID: {{.PatientID}})
Geboortedatum: {{.BirthDate}}

ACTIEVE AANDOENINGEN:
{{- range .Active}}
- {{.Diagnosis}} (sinds {{.Date}}): {{.Treatment}}
{{- end}}

ACTUELE MEDICATIE:
{{- range .Medication}}
- {{.Name}} {{.Dose}} {{.Frequency}} ({{.Reason}})
{{- end}}

ALLERGIEËN:
{{- range .Allergies}}
- {{.Substance}}: {{.Reaction}} ({{.Severity}})
{{- end}}

RECENTE CONTROLES:
{{- range .Checks}}
- {{.Date}}: {{.Kind}} - {{.Result}}
{{- end}}

BELANGRIJKE RISICOFACTOREN:
{{- range .RiskFactors}}
- {{.}}
{{- end}}

SOCIALE SITUATIE:
- {{.Social.Living}}
- Mobiliteit: {{.Social.Mobility}}
- Ondersteuning: {{.Social.Support}}

VOORKEUREN:
- Taal: {{.Preferences.Language}}
- Wensen medische zorg: {{.Preferences.CareWishes}}
`))

// ContextString renders the triage context block. It is computed once per
// session when the conversation buffer is built.
func (d *Dossier) ContextString() string {
	var sb strings.Builder
	if err := contextTemplate.Execute(&sb, d); err != nil {
		return fmt.Sprintf("PATIËNT DOSSIER: %s (ID: %s)\n", d.Name, d.PatientID)
	}
	return sb.String()
}
