package stage

import (
	"strings"

	"billcast/internal/domain"
)

// Stage is one procedural phase a bill moves through, with the typical
// dwell time observed for that phase.
type Stage struct {
	Name      string
	MinMonths float64
	MaxMonths float64
}

// Midpoint returns the middle of the stage's typical duration range.
func (s Stage) Midpoint() float64 {
	return (s.MinMonths + s.MaxMonths) / 2
}

var (
	Initial    = Stage{Name: "Initial", MinMonths: 1, MaxMonths: 3}
	Committees = Stage{Name: "Committees", MinMonths: 3, MaxMonths: 8}
	Justice    = Stage{Name: "Justice (CCJ)", MinMonths: 2, MaxMonths: 5}
	Rapporteur = Stage{Name: "Rapporteur", MinMonths: 1, MaxMonths: 3}
	Plenary    = Stage{Name: "Plenary", MinMonths: 1, MaxMonths: 4}
	Revision   = Stage{Name: "Revision", MinMonths: 2, MaxMonths: 5}
	Sanction   = Stage{Name: "Sanction", MinMonths: 0.5, MaxMonths: 1}
)

// Path names.
const (
	PathNormal     = "Normal"
	PathUrgent     = "Urgent"
	PathSimplified = "Simplified"
)

var paths = map[string][]Stage{
	PathNormal:     {Initial, Committees, Justice, Plenary, Revision, Sanction},
	PathUrgent:     {Initial, Rapporteur, Justice, Plenary, Sanction},
	PathSimplified: {Initial, Committees, Plenary, Sanction},
}

// Path returns the ordered stages of a named processing path. Unknown
// names fall back to the normal path.
func Path(name string) []Stage {
	if p, ok := paths[name]; ok {
		return p
	}
	return paths[PathNormal]
}

// Ordered keyword table, scanned in pipeline order. First match wins.
var stageKeywords = []struct {
	stage    Stage
	keywords []string
}{
	{Initial, []string{"APRESENTAÇÃO", "RECEBIDO", "PROTOCOLADO", "AUTUADO", "DISTRIBUÍDO"}},
	{Committees, []string{"COMISSÃO", "CAE", "CAS", "CE", "CI", "DESIGNADO RELATOR"}},
	{Justice, []string{"CCJ", "COMISSÃO DE CONSTITUIÇÃO E JUSTIÇA", "CONSTITUCIONALIDADE"}},
	{Rapporteur, []string{"RELATOR", "DESIGNADO", "DEVOLVIDO PELO RELATOR"}},
	{Plenary, []string{"PLENÁRIO", "ORDEM DO DIA", "DISCUSSÃO", "VOTAÇÃO"}},
	{Revision, []string{"CÂMARA", "REMESSA", "REVISÃO", "ENVIADO"}},
	{Sanction, []string{"SANÇÃO", "VETO", "PROMULGAÇÃO", "ENVIADO PARA SANÇÃO"}},
}

func matchStage(text string) (Stage, bool) {
	upper := strings.ToUpper(text)
	for _, entry := range stageKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(upper, kw) {
				return entry.stage, true
			}
		}
	}
	return Stage{}, false
}

// Identify locates the bill's current stage from its status text, falling
// back to the most recent event's text and location. Defaults to Initial.
func Identify(rec domain.BillRecord) Stage {
	if s, ok := matchStage(rec.Status.Text); ok {
		return s
	}
	if len(rec.Events) > 0 {
		newest := rec.Events[0]
		if s, ok := matchStage(newest.Text + " " + newest.Location); ok {
			return s
		}
	}
	return Initial
}

// Remaining returns the stages from the current one (inclusive) to the end
// of the path. When the current stage is not on the path it is prepended.
func Remaining(current Stage, pathName string) []Stage {
	p := Path(pathName)
	for i, s := range p {
		if s.Name == current.Name {
			out := make([]Stage, len(p)-i)
			copy(out, p[i:])
			return out
		}
	}
	out := make([]Stage, 0, len(p)+1)
	out = append(out, current)
	out = append(out, p...)
	return out
}

// After returns up to n stages strictly after the current one on the path.
func After(current Stage, pathName string, n int) []Stage {
	p := Path(pathName)
	for i, s := range p {
		if s.Name == current.Name {
			rest := p[i+1:]
			if len(rest) > n {
				rest = rest[:n]
			}
			out := make([]Stage, len(rest))
			copy(out, rest)
			return out
		}
	}
	// Off-path stage: everything on the path is still ahead.
	rest := p
	if len(rest) > n {
		rest = rest[:n]
	}
	out := make([]Stage, len(rest))
	copy(out, rest)
	return out
}
