package dossier

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemoContextString(t *testing.T) {
	d := Demo()
	ctx := d.ContextString()

	assert.Contains(t, ctx, "PATIËNT DOSSIER: Karel Groenendijk (ID: P123456)")
	assert.Contains(t, ctx, "- COPD (sinds 2018-03-10): Salbutamol inhalator, gebruik bij benauwdheid")
	assert.Contains(t, ctx, "- Metformine 1000mg 2x daags (Type 2 Diabetes)")
	assert.Contains(t, ctx, "- Penicilline: Anafylactische shock (Hoog)")
	assert.Contains(t, ctx, "- 2024-01-15: Bloeddruk controle - 145/85 mmHg")
	assert.Contains(t, ctx, "- Wensen medische zorg: Geen reanimatie bij terminale situatie")
}

func TestActiveSkipsResolvedDiagnoses(t *testing.T) {
	d := &Dossier{
		PatientID: "P1",
		History: []Diagnosis{
			{Diagnosis: "Griep", Status: "Genezen"},
			{Diagnosis: "Astma", Status: "Actief"},
		},
	}
	active := d.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "Astma", active[0].Diagnosis)
	assert.False(t, strings.Contains(d.ContextString(), "Griep"))
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "d.yaml")
	require.NoError(t, os.WriteFile(path, []byte("patient_id: P9\nname: Test Persoon\n"), 0o644))

	d, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Test Persoon", d.Name)

	_, err = Parse([]byte("name: nobody\n"))
	assert.ErrorContains(t, err, "patient_id")
}
