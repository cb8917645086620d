package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reson-group/lead-radar/internal/model"
)

func sampleLeads() []model.Lead {
	seen := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	return []model.Lead{
		{
			IdentityKey: "d:cold",
			Company:     "Cold Co",
			Country:     "FI",
			Score:       12,
			Band:        model.BandCold,
			FirstSeenAt: seen,
			LastSeenAt:  seen,
		},
		{
			IdentityKey: "d:hot",
			Company:     "Hot Robotics",
			Country:     "DK",
			Segment:     model.SegmentIntegrator,
			Emails:      []string{"sales@hot.example.com"},
			Tags:        []string{"EtherCAT", "UR"},
			Sources:     []string{"ethercat"},
			Score:       85,
			Band:        model.BandHot,
			Confidence:  21.4,
			Reason:      "stack: EtherCAT, UR",
			FirstSeenAt: seen,
			LastSeenAt:  seen,
		},
		{
			IdentityKey: "d:warm",
			Company:     "Warm Systems",
			Country:     "DE",
			Tags:        []string{"PROFINET"},
			Score:       50,
			Band:        model.BandWarm,
			FirstSeenAt: seen,
			LastSeenAt:  seen,
		},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"csv":      FormatCSV,
		"CSV":      FormatCSV,
		"jsonl":    FormatJSONL,
		"ndjson":   FormatJSONL,
		"markdown": FormatMarkdown,
		"md":       FormatMarkdown,
		"xlsx":     FormatXLSX,
	} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseFormat("pdf")
	require.Error(t, err)
}

func TestSortLeads_BandThenScore(t *testing.T) {
	leads := sampleLeads()
	SortLeads(leads)

	assert.Equal(t, "Hot Robotics", leads[0].Company)
	assert.Equal(t, "Warm Systems", leads[1].Company)
	assert.Equal(t, "Cold Co", leads[2].Company)
}

func TestExport_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, sampleLeads(), FormatCSV))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4) // header + 3 leads

	header := records[0]
	assert.Equal(t, "company", header[0])

	hot := records[1]
	assert.Equal(t, "Hot Robotics", hot[0])
	assert.Equal(t, "DK", hot[1])
	assert.Equal(t, "85", hot[3])
	assert.Equal(t, "HOT", hot[4])
	assert.Equal(t, "EtherCAT; UR", hot[6])
}

func TestExport_JSONL(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, sampleLeads(), FormatJSONL))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	var first model.Lead
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "Hot Robotics", first.Company)
	assert.Equal(t, model.BandHot, first.Band)
	assert.Equal(t, []string{"EtherCAT", "UR"}, first.Tags)
}

func TestExport_Markdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, sampleLeads(), FormatMarkdown))
	out := buf.String()

	assert.Contains(t, out, "## HOT (1)")
	assert.Contains(t, out, "## WARM (1)")
	assert.Contains(t, out, "## COLD (1)")
	assert.Contains(t, out, "Hot Robotics")
	assert.Contains(t, out, "sales@hot.example.com")

	// Hot section comes before warm.
	assert.Less(t, strings.Index(out, "## HOT"), strings.Index(out, "## WARM"))
}

func TestExport_XLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, sampleLeads(), FormatXLSX))
	// XLSX is a zip container; just check it is non-trivial and well-formed
	// enough to carry the magic bytes.
	require.Greater(t, buf.Len(), 100)
	assert.Equal(t, "PK", buf.String()[:2])
}

func TestExport_DoesNotMutateInput(t *testing.T) {
	leads := sampleLeads()
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, leads, FormatJSONL))

	assert.Equal(t, "Cold Co", leads[0].Company)
}

func TestExport_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := Export(&buf, sampleLeads(), Format("pdf"))
	require.Error(t, err)
}
