package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reson-group/lead-radar/internal/normalize"
)

func TestKey_DomainWinsOverName(t *testing.T) {
	a := &normalize.Record{Company: "Acme Robotics GmbH", Website: "https://www.acme.de/about", Country: "DE"}
	b := &normalize.Record{Company: "ACME", Website: "http://acme.de", Country: "de"}

	assert.Equal(t, Key(a), Key(b), "same domain and country must key identically")
	assert.Len(t, Key(a), 16)
}

func TestKey_EmailDomainFallback(t *testing.T) {
	a := &normalize.Record{Company: "Acme", Emails: []string{"info@acme.de"}, Country: "DE"}
	b := &normalize.Record{Company: "Totally Different Name", Website: "https://acme.de", Country: "DE"}

	assert.Equal(t, Key(a), Key(b))
}

func TestKey_NameNormalization(t *testing.T) {
	a := &normalize.Record{Company: "Nordic Motion ApS", Country: "DK"}
	b := &normalize.Record{Company: "nordic   motion", Country: "dk"}

	assert.Equal(t, Key(a), Key(b), "legal suffix and case must not split identities")
}

func TestKey_CountrySeparates(t *testing.T) {
	a := &normalize.Record{Company: "Acme", Country: "DE"}
	b := &normalize.Record{Company: "Acme", Country: "AT"}

	assert.NotEqual(t, Key(a), Key(b))
}

func TestKey_PortAndWWWStripped(t *testing.T) {
	a := &normalize.Record{Website: "https://www.acme.se:8443/x", Company: "A B", Country: "SE"}
	b := &normalize.Record{Website: "https://acme.se", Company: "Other", Country: "SE"}

	assert.Equal(t, Key(a), Key(b))
}

func TestFallbackKey_NeverEmpty(t *testing.T) {
	assert.Len(t, FallbackKey("", ""), 16)
	assert.Len(t, FallbackKey("??", "DK"), 16)
	assert.NotEqual(t, FallbackKey("a", "DK"), FallbackKey("b", "DK"))
}

func TestNormalizeCompany(t *testing.T) {
	cases := map[string]string{
		"ACME GmbH":           "acme",
		"Acme GmbH & Co. KG":  "acme",
		"Nordic Motion ApS":   "nordic motion",
		"Machines Ltd.":       "machines",
		"Vision  Systems A/S": "vision systems",
		"Plain Name":          "plain name",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeCompany(in), in)
	}
}
