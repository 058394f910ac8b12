package report

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/fedviz/internal/record"
	"github.com/harrison/fedviz/internal/settings"
	"github.com/harrison/fedviz/internal/table"
)

func sampleTable() *table.Table {
	t := table.NewLabelTable("Summary Stats", "Variable", []string{"Pellets", "Meals"})
	t.MustAddColumn("FED001", []float64{12, 3})
	t.MustAddColumn("Average", []float64{12.5, math.NaN()})
	return t
}

func TestReport_Markdown(t *testing.T) {
	r := New("Run", time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC))
	r.AddText("Notes", "two cages\n")
	r.AddTable("Statistics", sampleTable())

	md, err := r.Markdown()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(md, "# Run\n\n_Generated 2024-01-02 09:00:00_\n\n"))
	assert.Contains(t, md, "## Notes\n\ntwo cages\n\n")
	assert.Contains(t, md, "## Statistics\n\n| Variable | FED001 | Average |\n")
	assert.Contains(t, md, "| Pellets | 12.000 | 12.500 |\n")
	assert.Contains(t, md, "| Meals | 3.000 |  |\n")
	assert.NotContains(t, md, "### Summary Stats", "heading replaces the table name")
}

func TestReport_HTML(t *testing.T) {
	r := New("Cage <A>", time.Time{})
	r.Precision = 0
	r.AddTable("", sampleTable())

	out, err := r.HTML()
	require.NoError(t, err)
	doc := string(out)

	assert.Contains(t, doc, "<title>Cage &lt;A&gt;</title>")
	assert.Contains(t, doc, "<h3>Summary Stats</h3>")
	assert.Contains(t, doc, "<table>")
	assert.Contains(t, doc, "<th>Variable</th>")
	assert.Contains(t, doc, "<td>12</td>")
	assert.NotContains(t, doc, "_Generated")
}

func TestReport_Write(t *testing.T) {
	r := New("T", time.Time{})
	r.AddText("", "plain")

	var md, page bytes.Buffer
	require.NoError(t, r.Write(&md, false))
	require.NoError(t, r.Write(&page, true))
	assert.Equal(t, "# T\n\nplain\n\n", md.String())
	assert.Contains(t, page.String(), "<p>plain</p>")
}

func TestSummary(t *testing.T) {
	rec, err := record.LoadReader("FED_01.csv", strings.NewReader(
		"MM:DD:YYYY hh:mm:ss,Pellet_Count\n01/02/2024 07:00:00,0\n01/02/2024 08:00:00,1\n"))
	require.NoError(t, err)
	rec.SetGroups(record.NewMembership("ctrl"))

	s := settings.Default()
	r := Summary([]*record.Record{rec}, sampleTable(), s, time.Time{})
	md, err := r.Markdown()
	require.NoError(t, err)

	assert.Contains(t, md, `- **FED\_01.csv**: 2 events`)
	assert.Contains(t, md, "2024-01-02 07:00:00 to 2024-01-02 08:00:00, groups ctrl")
	assert.Contains(t, md, "- Lights on 07:00, off 19:00")
	assert.Contains(t, md, "at least 1 pellets, at most 1 minutes apart")
	assert.NotContains(t, md, "Date filter")
}
