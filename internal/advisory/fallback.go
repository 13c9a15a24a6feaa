package advisory

import (
	"context"
	"strings"
)

// FallbackAnalyzer answers from a small built-in table of well-documented
// herb/drug interactions. Unknown pairs get a severity of "none" with a
// see-a-professional recommendation rather than an error, so the advisory
// surface stays usable without an upstream provider.
type FallbackAnalyzer struct {
	table map[string]verdictPayload
}

// NewFallbackAnalyzer builds the analyzer with its default table.
func NewFallbackAnalyzer() *FallbackAnalyzer {
	return &FallbackAnalyzer{table: builtinInteractions()}
}

// AnalyzeInteraction never fails; it consults the table and falls back to a
// generic advisory for pairs it does not know.
func (a *FallbackAnalyzer) AnalyzeInteraction(_ context.Context, herbName, drugName string) (*Report, error) {
	report := &Report{
		HerbName: herbName,
		DrugName: drugName,
		Provider: "fallback",
	}

	if verdict, ok := a.table[pairKey(herbName, drugName)]; ok {
		report.Severity = verdict.Severity
		report.Mechanism = verdict.Mechanism
		report.Recommendation = verdict.Recommendation
		return report, nil
	}

	report.Severity = SeverityNone
	report.Mechanism = "No documented interaction in the built-in reference table."
	report.Recommendation = "No known interaction found. Consult a pharmacist or physician before combining herbal remedies with prescription medication."
	return report, nil
}

func pairKey(herbName, drugName string) string {
	return strings.ToLower(strings.TrimSpace(herbName)) + "|" + strings.ToLower(strings.TrimSpace(drugName))
}

func builtinInteractions() map[string]verdictPayload {
	return map[string]verdictPayload{
		pairKey("St. John's Wort", "Warfarin"): {
			Severity:       SeverityHigh,
			Mechanism:      "Induces CYP3A4 and CYP2C9, accelerating warfarin clearance and lowering INR.",
			Recommendation: "Avoid the combination. If already taken together, monitor INR closely and consult a physician.",
		},
		pairKey("St. John's Wort", "Sertraline"): {
			Severity:       SeverityHigh,
			Mechanism:      "Additive serotonergic activity raises the risk of serotonin syndrome.",
			Recommendation: "Do not combine. Seek medical advice before stopping either.",
		},
		pairKey("Ginkgo", "Aspirin"): {
			Severity:       SeverityModerate,
			Mechanism:      "Ginkgo inhibits platelet-activating factor, compounding aspirin's antiplatelet effect.",
			Recommendation: "Watch for unusual bruising or bleeding; discuss continued use with a clinician.",
		},
		pairKey("Ginger", "Warfarin"): {
			Severity:       SeverityModerate,
			Mechanism:      "Ginger inhibits thromboxane synthetase and may potentiate anticoagulation.",
			Recommendation: "Limit ginger intake and monitor INR more frequently.",
		},
		pairKey("Garlic", "Warfarin"): {
			Severity:       SeverityModerate,
			Mechanism:      "Garlic's antiplatelet constituents add to warfarin's anticoagulant effect.",
			Recommendation: "Avoid concentrated garlic supplements; culinary amounts are usually tolerated.",
		},
		pairKey("Licorice", "Digoxin"): {
			Severity:       SeverityHigh,
			Mechanism:      "Glycyrrhizin-induced potassium loss increases digoxin toxicity risk.",
			Recommendation: "Avoid licorice root products while on digoxin; report palpitations immediately.",
		},
		pairKey("Kava", "Alprazolam"): {
			Severity:       SeverityHigh,
			Mechanism:      "Additive CNS depression via GABA-ergic activity.",
			Recommendation: "Do not combine; excessive sedation and respiratory depression are possible.",
		},
		pairKey("Echinacea", "Methotrexate"): {
			Severity:       SeverityLow,
			Mechanism:      "Possible hepatic enzyme modulation; clinical significance is low.",
			Recommendation: "Mention concurrent use to the prescribing physician at the next visit.",
		},
	}
}
