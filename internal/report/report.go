// Package report renders network data for the terminal.
package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/efebarandurmaz/socialgraph/internal/analysis"
	"github.com/efebarandurmaz/socialgraph/internal/recommend"
	"github.com/efebarandurmaz/socialgraph/internal/social"
)

// Renderer turns results into styled strings.
type Renderer struct {
	styles *Styles
}

// New returns a renderer with the default styles.
func New() *Renderer {
	return &Renderer{styles: DefaultStyles()}
}

func (r *Renderer) table(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorBorder))).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return r.styles.Header
			}
			return r.styles.Cell
		})
}

func (r *Renderer) field(label, value string) string {
	return r.styles.Label.Render(label) + r.styles.Value.Render(value)
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ", ")
}

// Persons renders a list of persons as a table.
func (r *Renderer) Persons(persons []social.Person) string {
	if len(persons) == 0 {
		return r.styles.Muted.Render("no persons")
	}
	t := r.table("ID", "Name", "Age", "Email", "Interests", "Friends")
	for _, p := range persons {
		t.Row(strconv.Itoa(p.ID), p.Name, strconv.Itoa(p.Age), p.Email,
			strings.Join(p.Interests, ", "), strconv.Itoa(len(p.Friends)))
	}
	return t.String()
}

// Person renders one person in detail.
func (r *Renderer) Person(p social.Person) string {
	lines := []string{
		r.styles.Title.Render(fmt.Sprintf("%s (#%d)", p.Name, p.ID)),
		r.field("Age", strconv.Itoa(p.Age)),
		r.field("Email", p.Email),
		r.field("Interests", r.styles.Tag.Render(strings.Join(p.Interests, ", "))),
		r.field("Friends", joinInts(p.Friends)),
	}
	return r.styles.Border.Render(strings.Join(lines, "\n"))
}

// Connections renders every friendship and what its ends share.
func (r *Renderer) Connections(conns []social.Connection) string {
	if len(conns) == 0 {
		return r.styles.Muted.Render("no connections")
	}
	t := r.table("From", "To", "Common interests")
	for _, c := range conns {
		t.Row(fmt.Sprintf("%s (#%d)", c.From.Name, c.From.ID),
			fmt.Sprintf("%s (#%d)", c.To.Name, c.To.ID),
			strings.Join(c.CommonInterests, ", "))
	}
	return t.String()
}

// Stats renders whole-network statistics.
func (r *Renderer) Stats(st analysis.Stats) string {
	connected := r.styles.Warning.Render("no")
	if st.Connected {
		connected = r.styles.Success.Render("yes")
	}
	lines := []string{
		r.styles.Title.Render("Network statistics"),
		r.field("Persons", strconv.Itoa(st.Persons)),
		r.field("Connections", strconv.Itoa(st.Connections)),
		r.field("Density", fmt.Sprintf("%.4f", st.Density)),
		r.field("Average degree", fmt.Sprintf("%.2f", st.AverageDegree)),
		r.field("Components", strconv.Itoa(st.Components)),
		r.styles.Label.Render("Connected") + connected,
	}
	return r.styles.Border.Render(strings.Join(lines, "\n"))
}

// Rankings renders one centrality top list.
func (r *Renderer) Rankings(title string, rs []analysis.Ranking) string {
	head := r.styles.Title.Render(title)
	if len(rs) == 0 {
		return head + "\n" + r.styles.Muted.Render("not available for this network")
	}
	t := r.table("#", "ID", "Name", "Centrality")
	for i, rk := range rs {
		t.Row(strconv.Itoa(i+1), strconv.Itoa(rk.PersonID), rk.Name, fmt.Sprintf("%.4f", rk.Centrality))
	}
	return head + "\n" + t.String()
}

// Centrality renders both rankings.
func (r *Renderer) Centrality(rep analysis.CentralityReport) string {
	return r.Rankings("Degree centrality", rep.Degree) + "\n\n" +
		r.Rankings("Closeness centrality", rep.Closeness)
}

// Communities renders each community with its members.
func (r *Renderer) Communities(groups [][]social.Person) string {
	if len(groups) == 0 {
		return r.styles.Muted.Render("no communities")
	}
	t := r.table("Community", "Size", "Members")
	for i, members := range groups {
		names := make([]string, len(members))
		for j, p := range members {
			names[j] = p.Name
		}
		t.Row(strconv.Itoa(i+1), strconv.Itoa(len(members)), strings.Join(names, ", "))
	}
	return t.String()
}

// Recommendations renders ranked suggestions and the compatibility summary.
func (r *Renderer) Recommendations(subject social.Person, recs []recommend.Recommendation, sum recommend.Summary) string {
	var b strings.Builder
	b.WriteString(r.styles.Title.Render(fmt.Sprintf("Recommendations for %s", subject.Name)))
	b.WriteString("\n")
	if len(recs) == 0 {
		b.WriteString(r.styles.Muted.Render("no compatible persons found"))
	} else {
		t := r.table("ID", "Name", "Common interests", "Score", "Match")
		for _, rec := range recs {
			t.Row(strconv.Itoa(rec.PersonID), rec.Name, strings.Join(rec.CommonInterests, ", "),
				fmt.Sprintf("%.1f", rec.Score),
				CompatibilityStyle(rec.Compatibility).Render(fmt.Sprintf("%d%%", rec.Compatibility)))
		}
		b.WriteString(t.String())
	}
	b.WriteString("\n")
	b.WriteString(r.styles.Muted.Render(fmt.Sprintf("%d of %d candidates share an interest (%.1f%%)",
		sum.CompatibleCandidates, sum.TotalCandidates, sum.CompatiblePercent)))
	return b.String()
}

// PersonAnalysis renders the per-person summary.
func (r *Renderer) PersonAnalysis(pa analysis.PersonAnalysis) string {
	lines := []string{
		r.styles.Title.Render(fmt.Sprintf("Analysis of %s (#%d)", pa.Person.Name, pa.Person.ID)),
		r.field("Degree", strconv.Itoa(pa.Degree)),
		r.field("Neighbors", strconv.Itoa(pa.NeighborCount)),
		r.field("Centrality", fmt.Sprintf("%.4f", pa.LocalCentrality)),
	}

	interests := make([]string, 0, len(pa.InterestConnections))
	for in := range pa.InterestConnections {
		interests = append(interests, in)
	}
	sort.Slice(interests, func(i, j int) bool {
		ci, cj := pa.InterestConnections[interests[i]], pa.InterestConnections[interests[j]]
		if ci != cj {
			return ci > cj
		}
		return interests[i] < interests[j]
	})
	for _, in := range interests {
		lines = append(lines, r.field("  "+in, fmt.Sprintf("%d friend(s)", pa.InterestConnections[in])))
	}
	return r.styles.Border.Render(strings.Join(lines, "\n"))
}
