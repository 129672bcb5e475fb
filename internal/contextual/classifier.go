package contextual

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"billcast/internal/domain"
	"billcast/internal/risk"
)

var urgencyKeywords = []string{
	"URGENTE", "URGÊNCIA", "PRIORIDADE", "EMERGENCIAL", "IMEDIATO",
	"REGIME DE URGÊNCIA", "TRAMITAÇÃO URGENTE", "SOLICITAÇÃO DE URGÊNCIA",
}

var controversyKeywords = []string{
	"POLÊMICO", "CONTROVERSO", "DIVERGENTE", "DEBATE", "DISCUSSÃO ACALORADA",
	"OPINIÕES DIVIDIDAS", "RESISTÊNCIA", "OPOSIÇÃO", "MANIFESTAÇÃO CONTRÁRIA",
	"EMBATE", "CONFLITO", "DISCORDÂNCIA",
}

var rejectionKeywords = []string{"REJEITAD", "VOTO CONTRÁRIO", "PARECER CONTRÁRIO"}

type sectorGroup struct {
	name     string
	keywords []string
	advisory string
}

// Ordered by priority; the first matching group wins.
var sectorGroups = []sectorGroup{
	{
		name: "betting and gaming",
		keywords: []string{
			"APOSTAS", "JOGOS DE AZAR", "JOGO ONLINE", "CASSINO", "BINGO",
			"LOTERIA", "JOGO RESPONSÁVEL", "QUOTA FIXA", "REGULAMENTAÇÃO DE JOGOS",
		},
		advisory: "Direct impact on the betting and gaming sector. Operators should review licensing, responsible-gaming and fixed-odds obligations; approval may change tax treatment and compliance deadlines for the vertical.",
	},
	{
		name: "payments",
		keywords: []string{
			"PAGAMENTO", "PIX", "CARTÃO DE CRÉDITO", "BANCO CENTRAL",
			"MEIOS DE PAGAMENTO", "ARRANJO DE PAGAMENTO", "PAGAMENTO INSTANTÂNEO",
		},
		advisory: "Direct impact on the payments sector. Payment institutions and arrangements should assess effects on settlement rules, instant-payment flows and Central Bank oversight requirements.",
	},
	{
		name: "digital assets",
		keywords: []string{
			"CRIPTOMOEDA", "BITCOIN", "BLOCKCHAIN", "TOKEN", "NFT",
			"STABLECOIN", "ATIVOS VIRTUAIS", "ATIVOS DIGITAIS",
		},
		advisory: "Direct impact on the digital-assets sector. Exchanges and custodians should track the custody, registration and anti-fraud provisions; approval may redefine the regulated perimeter for virtual assets.",
	},
	{
		name: "broad regulatory",
		keywords: []string{
			"TRIBUT", "IMPOSTO", "REGULAMENT", "TECNOLOGIA",
			"INTERNET", "DIGITAL", "FINANCEIR", "BANCO",
		},
		advisory: "Broad tax, technology or financial-regulation impact. Companies in the affected verticals should monitor the bill for compliance-cost and tax-burden changes.",
	},
}

func matchAny(text string, keywords []string) bool {
	upper := strings.ToUpper(text)
	for _, kw := range keywords {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}

func countMatches(text string, keywords []string) int {
	upper := strings.ToUpper(text)
	n := 0
	for _, kw := range keywords {
		if strings.Contains(upper, kw) {
			n++
		}
	}
	return n
}

var partyStatePattern = regexp.MustCompile(`\((.*?)\)`)

// ExtractPartyState pulls "PARTY/STATE" out of an author display string
// like "Senador Fulano de Tal (MDB/SP)".
func ExtractPartyState(author string) (party, state string, ok bool) {
	m := partyStatePattern.FindStringSubmatch(author)
	if m == nil {
		return "", "", false
	}
	parts := strings.SplitN(m[1], "/", 2)
	party = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		state = strings.TrimSpace(parts[1])
	}
	return party, state, party != ""
}

// Classifier derives the qualitative read of a bill: urgency and
// controversy tiers plus the political and sector narratives.
type Classifier struct {
	Now func() time.Time
}

func (c Classifier) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Classify runs the rule-based contextual analysis.
func (c Classifier) Classify(rec domain.BillRecord, status domain.BillStatus, events []domain.ProceduralEvent) domain.ContextualAnalysis {
	return domain.ContextualAnalysis{
		Urgency:          c.urgencyTier(rec, status, events),
		Controversy:      c.controversyTier(rec, events),
		PoliticalContext: c.politicalNarrative(rec, status),
		SectorImpact:     SectorNarrative(rec),
	}
}

func (c Classifier) urgencyTier(rec domain.BillRecord, status domain.BillStatus, events []domain.ProceduralEvent) string {
	score := 0
	if matchAny(status.Text, urgencyKeywords) {
		score += 3
	}
	limit := len(events)
	if limit > 5 {
		limit = 5
	}
	for _, ev := range events[:limit] {
		if matchAny(ev.Text, urgencyKeywords) {
			score += 2
			break
		}
	}
	if matchAny(rec.Title, urgencyKeywords) {
		score++
	}
	switch {
	case score >= 3:
		return domain.TierHigh
	case score >= 1:
		return domain.TierMedium
	}
	return domain.TierLow
}

func (c Classifier) controversyTier(rec domain.BillRecord, events []domain.ProceduralEvent) string {
	score := 0
	if matchAny(rec.Title, controversyKeywords) {
		score += 2
	}
	rejections := 0
	contradictions := 0
	for _, ev := range events {
		score += countMatches(ev.Text, controversyKeywords)
		if matchAny(ev.Text, rejectionKeywords) || matchAny(ev.Status, rejectionKeywords) {
			rejections++
		}
		text := strings.ToUpper(ev.Text)
		st := strings.ToUpper(ev.Status)
		if (strings.Contains(text, "APROVA") && strings.Contains(st, "REJEITA")) ||
			(strings.Contains(text, "REJEITA") && strings.Contains(st, "APROVA")) {
			contradictions++
		}
	}
	if rejections > 3 {
		rejections = 3
	}
	score += rejections
	contradictionScore := 2 * contradictions
	if contradictionScore > 3 {
		contradictionScore = 3
	}
	score += contradictionScore
	switch {
	case score >= 4:
		return domain.TierHigh
	case score >= 2:
		return domain.TierMedium
	}
	return domain.TierLow
}

func (c Classifier) politicalNarrative(rec domain.BillRecord, status domain.BillStatus) string {
	var parts []string

	author := strings.TrimSpace(rec.Author)
	switch risk.AuthorType(author) {
	case "executive":
		parts = append(parts, "Authored by the executive branch, which usually secures government priority on the agenda")
	case "institutional":
		parts = append(parts, fmt.Sprintf("Institutional authorship (%s), signalling prior internal consensus", author))
	case "parliamentary":
		if party, state, ok := ExtractPartyState(author); ok {
			if state != "" {
				parts = append(parts, fmt.Sprintf("Parliamentary initiative by %s (%s, %s)", strings.TrimSpace(partyStatePattern.ReplaceAllString(author, "")), party, state))
			} else {
				parts = append(parts, fmt.Sprintf("Parliamentary initiative by %s (%s)", strings.TrimSpace(partyStatePattern.ReplaceAllString(author, "")), party))
			}
		} else {
			parts = append(parts, fmt.Sprintf("Parliamentary initiative by %s", author))
		}
	default:
		if author != "" {
			parts = append(parts, fmt.Sprintf("Authored by %s", author))
		}
	}

	switch n := len(rec.Rapporteurs); {
	case n == 1:
		r := rec.Rapporteurs[0]
		if r.Committee != "" {
			parts = append(parts, fmt.Sprintf("Rapporteur %s at %s", r.Name, r.Committee))
		} else {
			parts = append(parts, fmt.Sprintf("Rapporteur %s assigned", r.Name))
		}
	case n > 1:
		names := make([]string, 0, n)
		for _, r := range rec.Rapporteurs {
			names = append(names, r.Name)
		}
		parts = append(parts, fmt.Sprintf("%d rapporteurs across committees (%s)", n, strings.Join(names, ", ")))
	default:
		parts = append(parts, "No rapporteur assigned yet")
	}

	if loc := strings.TrimSpace(status.Location); loc != "" && risk.IsHighPowerLocation(loc) {
		parts = append(parts, fmt.Sprintf("Currently at %s, a high-influence forum", loc))
	}

	if presented, err := risk.ParseDate(rec.PresentedAt); err == nil {
		days := int(c.now().Sub(presented).Hours() / 24)
		switch {
		case days < 30:
			parts = append(parts, "Recently presented; political positioning is still forming")
		case days < 180:
			parts = append(parts, "In its first months of tramitation")
		case days < 365:
			parts = append(parts, "Under discussion for most of a legislative year")
		default:
			years := days / 365
			parts = append(parts, fmt.Sprintf("In tramitation for %d year(s); long-running bills depend on renewed political sponsorship", years))
		}
	}

	return strings.Join(parts, ". ") + "."
}

// SectorNarrative matches title and keywords against the sector groups in
// priority order.
func SectorNarrative(rec domain.BillRecord) string {
	text := rec.Title + " " + rec.Keywords
	for _, g := range sectorGroups {
		if matchAny(text, g.keywords) {
			return g.advisory
		}
	}
	return "Sector impact not automatically identified; manual review of the bill text is recommended."
}
