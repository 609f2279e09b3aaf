package symptomrx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCombine(t *testing.T) {
	tests := []struct {
		name     string
		rec      Record
		sentinel string
		want     string
	}{
		{
			name: "all present",
			rec:  Record{Symptoms: []Cell{Present("Fever"), Present("HEADACHE"), Present("Chills")}},
			want: "fever headache chills",
		},
		{
			name: "all absent",
			rec:  Record{Symptoms: []Cell{{}, {}, {}}},
			want: "null null null",
		},
		{
			name: "blank counts as absent",
			rec:  Record{Symptoms: []Cell{Present("Cough"), Present("   "), {}}},
			want: "cough null null",
		},
		{
			name:     "custom sentinel",
			rec:      Record{Symptoms: []Cell{{}, Present("Rash")}},
			sentinel: "none",
			want:     "none rash",
		},
		{
			name: "unicode case folding",
			rec:  Record{Symptoms: []Cell{Present("ÉRUPTION"), Present("Übelkeit")}},
			want: "éruption übelkeit",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Combine(tt.rec, tt.sentinel)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Combine(tt.rec, tt.sentinel))
		})
	}
}

func TestCombineKeepsOneGroupPerSlot(t *testing.T) {
	rec := Record{Symptoms: []Cell{{}, {}, {}}}
	assert.Len(t, strings.Split(Combine(rec, ""), " "), 3)
}

func TestCombineAllPreservesOrder(t *testing.T) {
	records := []Record{
		{Symptoms: []Cell{Present("a1")}},
		{Symptoms: []Cell{Present("b2")}},
		{Symptoms: []Cell{{}}},
	}
	assert.Equal(t, []string{"a1", "b2", "null"}, CombineAll(records, DefaultSentinel))
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "ABC 123", NormalizeText("  ＡＢＣ　１２３\x00 "))
	assert.Equal(t, "", NormalizeText("\t \n"))
}
