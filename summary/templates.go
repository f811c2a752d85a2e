package summary

import "text/template"

type prompt struct {
	system string
	user   *template.Template
}

var prompts = map[Kind]prompt{
	KindReport: {
		system: `Je bent een ervaren medisch verslaggever die een professioneel ECD-verslag opstelt volgens de SOAP-methode.
Focus op objectiviteit, feitelijke nauwkeurigheid en gebruik medische terminologie waar gepast.
Zorg dat het verslag direct bruikbaar is voor zowel ECD-rapportage als overdracht naar wijkverpleging.`,
		user: template.Must(template.New("report").Parse(
			`Maak een professioneel ECD-verslag op basis van dit gesprek:

{{.}}

Formatteer het verslag als volgt:

PATIËNTINFORMATIE
[Basis patiëntgegevens en relevante medische informatie]

REDEN VAN CONTACT
[Aanleiding voor het gesprek]

SUBJECTIEF
[Klachten en symptomen zoals beschreven door de patiënt]

OBJECTIEF
[Waarnemingen en bevindingen]

ASSESSMENT
[Beoordeling en diagnose]

PLAN
[Behandelplan en vervolgstappen. Gebruik informatie benoemd in het gesprek]`)),
	},

	KindFollowup: {
		system: `Je bent een ervaren zorgverlener die een professioneel overdrachtsbericht opstelt voor de opvolging (bijv. thuiszorg).
Het bericht moet:
- Professioneel en zakelijk zijn
- Alle relevante medische en zorginformatie bevatten
- Duidelijke instructies voor de opvolging bevatten
- Concrete afspraken en vervolgstappen vermelden
- Direct bruikbaar zijn voor de zorgverleners die de opvolging doen

Gebruik professionele medische terminologie waar gepast, maar zorg dat het bericht duidelijk en volledig is.`,
		user: template.Must(template.New("followup").Parse(
			`Maak een overdrachtsbericht voor de opvolging op basis van dit gesprek:

{{.}}

Formatteer het bericht EXACT als volgt:

Geachte collega,

SAMENVATTING
[Korte, duidelijke samenvatting van het gesprek en de belangrijkste medische/zorgpunten]

AFSPRAKEN
[Lijst van gemaakte afspraken en overeenkomsten, inclusief data en tijden. ALLEEN ALS DEZE BENOEMD ZIJN IN HET GESPREK]

INSTRUCTIES
[Specifieke zorginstructies en aandachtspunten voor de opvolging]

MEDICATIE
[Actuele medicatie-overzicht, inclusief dosering, frequentie en eventuele wijzigingen]

VOLGENDE STAPPEN
[Concrete vervolgstappen en afspraken voor de opvolging. ALLEEN ALS DEZE BENOEMD ZIJN IN HET GESPREK]

Met vriendelijke groet,
[Naam zorgverlener]`)),
	},

	KindDossier: {
		system: "Je bent een medisch assistent die ECD samenvattingen maakt.",
		user: template.Must(template.New("ecd").Parse(
			`Maak een korte, professionele ECD samenvatting van dit patiëntendossier.
Gebruik medische terminologie en focus op de belangrijkste punten.
Formatteer de samenvatting in het volgende formaat, waarbij je een emoji MOET gebruiken voor elk kopje:

SAMENVATTING:
[Korte samenvatting van de belangrijkste medische situatie]

ACTIEVE PROBLEMEN:
- [Lijst van actieve problemen]

MEDICATIE:
- [Lijst van actuele medicatie]

BELANGRIJKE AANDACHTSPUNTEN:
- [Lijst van belangrijke aandachtspunten]

Patiëntendossier:
{{.}}`)),
	},
}
