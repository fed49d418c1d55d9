// Package report renders the outcome of a consolidation run for humans.
package report

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/jeandeaual/go-locale"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/divVerent/staffmerger/internal/processor"
	"github.com/divVerent/staffmerger/internal/score"
)

var supported = []language.Tag{language.English, language.German}

var matcher = language.NewMatcher(supported)

func init() {
	for key, msg := range map[string]string{
		"Staff %d, measures %d-%d":   "Notenzeile %d, Takte %d-%d",
		"Layer":                      "Ebene",
		"State":                      "Zustand",
		"Sources":                    "Quellen",
		"Base":                       "Basis",
		"Entries":                    "Einträge",
		"unassigned":                 "nicht zugewiesen",
		"single source":              "eine Quelle",
		"multi source":               "mehrere Quellen",
		"validated":                  "geprüft",
		"merged":                     "zusammengeführt",
		"rejected":                   "abgelehnt",
		"cleared":                    "geleert",
		"Layer %d rejected: %v":      "Ebene %d abgelehnt: %v",
		"Cleared source layers: %s":  "Geleerte Quellebenen: %s",
		"Scratch staff %d was used.": "Hilfszeile %d wurde verwendet.",
	} {
		if err := message.SetString(language.German, key, msg); err != nil {
			panic(err)
		}
	}
}

// Language picks the report language: override if set, otherwise the
// first supported user locale, falling back to English.
func Language(override string) language.Tag {
	var wanted []language.Tag
	if override != "" {
		tag, err := language.Parse(override)
		if err != nil {
			log.Printf("Invalid report language %q - ignoring: %v.", override, err)
		} else {
			wanted = append(wanted, tag)
		}
	}
	if len(wanted) == 0 {
		locs, err := locale.GetLocales()
		if err != nil {
			log.Printf("Could not detect locales - working without: %v.", err)
		}
		for _, loc := range locs {
			tag, err := language.Parse(loc)
			if err != nil {
				continue
			}
			wanted = append(wanted, tag)
		}
	}
	_, i, _ := matcher.Match(wanted...)
	return supported[i]
}

func stateText(p *message.Printer, s processor.SlotState) string {
	switch s {
	case processor.Unassigned:
		return p.Sprintf("unassigned")
	case processor.SingleSource:
		return p.Sprintf("single source")
	case processor.MultiSource:
		return p.Sprintf("multi source")
	case processor.Validated:
		return p.Sprintf("validated")
	case processor.Merged:
		return p.Sprintf("merged")
	case processor.Rejected:
		return p.Sprintf("rejected")
	case processor.Cleared:
		return p.Sprintf("cleared")
	}
	return s.String()
}

func location(l score.Location) string {
	return fmt.Sprintf("%d/%d", l.Staff, l.Slot)
}

type styles struct {
	title, header, cell lipgloss.Style
	state               map[processor.SlotState]lipgloss.Style
	errors              lipgloss.Style
}

func newStyles(plain bool) styles {
	if plain {
		return styles{state: map[processor.SlotState]lipgloss.Style{}}
	}
	return styles{
		title:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")),
		header: lipgloss.NewStyle().Bold(true).Underline(true),
		state: map[processor.SlotState]lipgloss.Style{
			processor.Merged:   lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD75F")),
			processor.Rejected: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
			processor.Cleared:  lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		},
		errors: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
	}
}

// Render writes a table of the per-layer outcome of r.
func Render(w io.Writer, r *processor.Report, cfg processor.ReportConfig) error {
	p := message.NewPrinter(Language(cfg.Language))
	st := newStyles(cfg.Plain)

	var rows [][]string
	for _, s := range r.Slots {
		var sources []string
		for _, a := range s.Sources {
			sources = append(sources, location(a.Source()))
		}
		base := "-"
		if s.Base >= 0 {
			base = location(s.Sources[s.Base].Source())
		}
		rows = append(rows, []string{
			p.Sprintf("%d", s.Slot),
			stateText(p, s.State),
			strings.Join(sources, ", "),
			base,
			p.Sprintf("%d", s.Entries),
		})
	}
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderColumn(false).
		BorderLeft(false).
		BorderRight(false).
		BorderTop(false).
		BorderBottom(false).
		Headers(p.Sprintf("Layer"), p.Sprintf("State"), p.Sprintf("Sources"), p.Sprintf("Base"), p.Sprintf("Entries")).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := st.cell
			switch {
			case row == table.HeaderRow:
				style = st.header
			case col == 1:
				if s, found := st.state[r.Slots[row].State]; found {
					style = s
				}
			}
			return style.PaddingRight(2)
		})

	var lines []string
	lines = append(lines, st.title.Render(p.Sprintf("Staff %d, measures %d-%d", r.DestinationStaff, r.Measures.Start, r.Measures.End)))
	lines = append(lines, tbl.Render())
	for _, s := range r.Slots {
		if s.Err != nil {
			lines = append(lines, st.errors.Render(p.Sprintf("Layer %d rejected: %v", s.Slot, s.Err)))
		}
	}
	if len(r.ClearedSources) > 0 {
		var locs []string
		for _, l := range r.ClearedSources {
			locs = append(locs, location(l))
		}
		lines = append(lines, p.Sprintf("Cleared source layers: %s", strings.Join(locs, ", ")))
	}
	if r.ScratchStaff != 0 {
		lines = append(lines, p.Sprintf("Scratch staff %d was used.", r.ScratchStaff))
	}
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}
