package prompt

import (
	"fmt"
	"strings"
)

// Candidate attribute keys posted by the wizard.
const (
	FieldRoleTarget      = "roleTarget"
	FieldIndustry        = "industry"
	FieldStrengths       = "strengths"
	FieldTone            = "tone"
	FieldColor           = "color"
	FieldFullName        = "fullName"
	FieldEmail           = "email"
	FieldPhone           = "phone"
	FieldCity            = "city"
	FieldLinkedIn        = "linkedin"
	FieldPortfolio       = "portfolio"
	FieldExperienceLevel = "experienceLevel"
	FieldJobType         = "jobType"
	FieldLanguages       = "languages"
)

// FieldNames lists every key a submission carries.
var FieldNames = []string{
	FieldRoleTarget,
	FieldIndustry,
	FieldStrengths,
	FieldTone,
	FieldColor,
	FieldFullName,
	FieldEmail,
	FieldPhone,
	FieldCity,
	FieldLinkedIn,
	FieldPortfolio,
	FieldExperienceLevel,
	FieldJobType,
	FieldLanguages,
}

// Fields maps every name of FieldNames to its free-text value.
type Fields map[string]string

// NewFields reads each known key through get; absent keys become "".
func NewFields(get func(key string) string) Fields {
	f := make(Fields, len(FieldNames))
	for _, name := range FieldNames {
		f[name] = get(name)
	}
	return f
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// BuildPreamble derives the wizard preamble from the fields, for clients that
// post no promptBase. Blank lines are dropped.
func BuildPreamble(f Fields) string {
	var linkedin, portfolio string
	if f[FieldLinkedIn] != "" {
		linkedin = "LinkedIn: " + f[FieldLinkedIn]
	}
	if f[FieldPortfolio] != "" {
		portfolio = "Portfolio: " + f[FieldPortfolio]
	}

	lines := []string{
		"RÔLE: Tu es un expert RH, coach carrière et designer de CV.",
		"OBJECTIF: Créer un CV complet, clair et structuré en **Markdown**, adapté à un profil francophone.",
		fmt.Sprintf("STYLE: %s, palette %s.", f[FieldTone], f[FieldColor]),
		fmt.Sprintf("CANDIDAT: %s (%s)", f[FieldFullName], f[FieldCity]),
		fmt.Sprintf("CONTACT: %s – %s", f[FieldEmail], f[FieldPhone]),
		linkedin,
		portfolio,
		"NIVEAU D’EXPÉRIENCE: " + orDefault(f[FieldExperienceLevel], "non précisé"),
		"TYPE DE POSTE: " + orDefault(f[FieldJobType], "non précisé"),
		"LANGUES: " + orDefault(f[FieldLanguages], "non précisées"),
		fmt.Sprintf("POSTE VISÉ: %s – Domaine: %s", f[FieldRoleTarget], f[FieldIndustry]),
		"FORCES / RÉALISATIONS: " + f[FieldStrengths],
		"MISE EN FORME DEMANDÉE:",
		"# NOM PRÉNOM",
		"**Poste visé** · Ville · email · tel · linkedin",
		"## Résumé (2–4 lignes maximum)",
		"## Compétences (Hard / Soft / Langues)",
		"## Expériences (3–6 bullet points avec résultats chiffrés)",
		"## Formation",
		"## Projets ou Réalisations marquantes",
	}

	kept := lines[:0]
	for _, l := range lines {
		if l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}
