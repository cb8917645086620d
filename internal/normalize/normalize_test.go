package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reson-group/lead-radar/internal/config"
	"github.com/reson-group/lead-radar/internal/model"
)

func newNormalizer() *Normalizer {
	return New(config.TagsConfig{
		Vocabulary:      config.DefaultTagVocabulary(),
		FieldbusImplies: []string{"PROFINET", "EtherNet_IP"},
		MotionImplies:   []string{"TwinCAT", "TIA", "Studio5000"},
	})
}

func TestNormalize_Malformed(t *testing.T) {
	n := newNormalizer()

	for _, name := range []string{"", " ", "x", "  "} {
		_, err := n.Normalize(model.RawRecord{Name: name, Source: "ethercat"})
		require.ErrorIs(t, err, ErrMalformed, "name %q", name)
	}
}

func TestNormalize_SourceSeeds(t *testing.T) {
	n := newNormalizer()

	rec, err := n.Normalize(model.RawRecord{Name: "Acme Drives", Source: "beckhoff"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"EtherCAT", "TwinCAT"}, rec.Tags)
	assert.Equal(t, model.SegmentOEM, rec.Segment)

	rec, err = n.Normalize(model.RawRecord{Name: "Acme Cells", Source: "ur"})
	require.NoError(t, err)
	assert.Equal(t, []string{"UR"}, rec.Tags)
	assert.Equal(t, model.SegmentIntegrator, rec.Segment)
}

func TestNormalize_FreeTextExtraction(t *testing.T) {
	n := newNormalizer()

	rec, err := n.Normalize(model.RawRecord{
		Name:    "Nordic Motion ApS",
		Country: "Denmark",
		Website: "www.nordicmotion.dk/",
		FreeText: "PROFINET commissioning and TwinCAT 3 engineering. " +
			"Reach us at Sales@NordicMotion.dk or +45 12 34 56 78.",
		Source: "profinet",
	})
	require.NoError(t, err)

	assert.Equal(t, "Nordic Motion ApS", rec.Company)
	assert.Equal(t, "https://www.nordicmotion.dk", rec.Website)
	assert.Equal(t, "DK", rec.Country)
	assert.Equal(t, []string{"sales@nordicmotion.dk"}, rec.Emails)
	require.Len(t, rec.Phones, 1)
	assert.Contains(t, rec.Tags, "PROFINET")
	assert.Contains(t, rec.Tags, "TwinCAT")
}

func TestNormalize_MetaOverrides(t *testing.T) {
	n := newNormalizer()

	rec, err := n.Normalize(model.RawRecord{
		Name:   "Acme",
		Source: "ethercat",
		Meta:   map[string]string{"segment": "SI", "contact_name": "  Jane  Doe "},
	})
	require.NoError(t, err)
	assert.Equal(t, model.SegmentIntegrator, rec.Segment)
	assert.Equal(t, "Jane Doe", rec.ContactName)
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "a b", CleanText("  a   b\n"))
	assert.Equal(t, "", CleanText("   "))
}

func TestExtractEmails(t *testing.T) {
	got := ExtractEmails("Write INFO@Acme.COM or info@acme.com. Backup: ops [at] acme [dot] de")
	assert.Equal(t, []string{"info@acme.com", "ops@acme.de"}, got)

	assert.Nil(t, ExtractEmails(""))
	assert.Nil(t, ExtractEmails("no addresses here"))
}

func TestExtractPhones(t *testing.T) {
	got := ExtractPhones("Call +49 89 123456-78 or +49 (89) 123456 78. Office code 1234.")
	require.Len(t, got, 1, "same digit sequence must dedupe")

	// Bare national numbers are too ambiguous to harvest.
	assert.Nil(t, ExtractPhones("phone: 089 123456"))
}

func TestInferCountry(t *testing.T) {
	cases := []struct {
		name   string
		raw    model.RawRecord
		emails []string
		want   string
	}{
		{"explicit code", model.RawRecord{Country: "dk"}, nil, "DK"},
		{"explicit name", model.RawRecord{Country: "Germany"}, nil, "DE"},
		{"unresolvable kept", model.RawRecord{Country: "Atlantis"}, nil, "Atlantis"},
		{"locale meta", model.RawRecord{Meta: map[string]string{"locale": "sv_SE"}}, nil, "SE"},
		{"website cctld", model.RawRecord{Website: "https://www.acme.at/about"}, nil, "AT"},
		{"uk maps to GB", model.RawRecord{Website: "https://acme.co.uk"}, nil, "GB"},
		{"generic tld ignored", model.RawRecord{Website: "https://acme.com"}, nil, ""},
		{"email tld fallback", model.RawRecord{}, []string{"info@acme.nl"}, "NL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, InferCountry(tc.raw, tc.emails))
		})
	}
}

func TestTagMatcher_WordBoundaries(t *testing.T) {
	m := NewTagMatcher(config.TagsConfig{Vocabulary: config.DefaultTagVocabulary()})

	// "eip" must only match as a standalone word, never inside other words.
	assert.Empty(t, m.Match("please see the receipt for details"))
	assert.Equal(t, []string{"EtherNet_IP"}, m.Match("EIP and CIP device profiles"))
}

func TestTagMatcher_ImpliedTags(t *testing.T) {
	m := NewTagMatcher(config.TagsConfig{
		Vocabulary:      config.DefaultTagVocabulary(),
		FieldbusImplies: []string{"PROFINET", "EtherNet_IP"},
		MotionImplies:   []string{"TwinCAT"},
	})

	got := m.Match("industrial ethernet connectivity for machine builders")
	assert.ElementsMatch(t, []string{"PROFINET", "EtherNet_IP"}, got)

	got = m.Match("PLC programming and motion control retrofits")
	assert.Equal(t, []string{"TwinCAT"}, got)
}

func TestTagMatcher_Deterministic(t *testing.T) {
	m := NewTagMatcher(config.TagsConfig{Vocabulary: config.DefaultTagVocabulary()})
	text := "EtherCAT, PROFINET and TwinCAT in one cabinet"

	first := m.Match(text)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, m.Match(text))
	}
}
