package forecast

import (
	"strings"

	"billcast/internal/contextual"
	"billcast/internal/domain"
	"billcast/internal/risk"
)

// ExtractAuthorship builds the attributed authorship breakdown: the
// primary author (with party/state parsed from its display string) merged
// with rapporteur entries, deduplicated by name.
func ExtractAuthorship(rec domain.BillRecord) []domain.Author {
	var authors []domain.Author
	seen := map[string]bool{}

	if name := strings.TrimSpace(rec.Author); name != "" {
		a := domain.Author{Name: name, Type: risk.AuthorType(name)}
		if party, state, ok := contextual.ExtractPartyState(name); ok {
			a.Party = party
			a.State = state
			a.Name = strings.TrimSpace(strings.SplitN(name, "(", 2)[0])
		}
		authors = append(authors, a)
		seen[strings.ToUpper(a.Name)] = true
	}

	for _, r := range rec.Rapporteurs {
		key := strings.ToUpper(strings.TrimSpace(r.Name))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		authors = append(authors, domain.Author{
			Name:      r.Name,
			Type:      "rapporteur",
			Party:     r.Party,
			State:     r.State,
			Committee: r.Committee,
		})
	}
	return authors
}
