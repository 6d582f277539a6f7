package usecase

import (
	"fmt"
	"sort"
	"strings"

	"github.com/labelpadega/backend/internal/domain"
)

const (
	maxContextMessages = 6
	maxContextChars    = 300
)

// productContext renders ingredients, nutriments and grades as prompt context
func productContext(d domain.ProductDetails) string {
	var b strings.Builder
	if d.HasIngredients() {
		fmt.Fprintf(&b, "Ingredients: %s\n\n", d.Ingredients)
	}

	if len(d.Nutriments) > 0 {
		keys := make([]string, 0, len(d.Nutriments))
		for k := range d.Nutriments {
			if strings.HasSuffix(k, "_100g") || strings.HasSuffix(k, "_serving") || strings.HasSuffix(k, "_unit") {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)

		wroteHeader := false
		for _, k := range keys {
			v, ok := d.NutrimentNumber(k)
			if !ok {
				continue
			}
			if !wroteHeader {
				b.WriteString("Nutritional Information:\n")
				wroteHeader = true
			}
			fmt.Fprintf(&b, "- %s: %g\n", k, v)
		}
	} else if len(d.NutrientsDisplay) > 0 {
		names := make([]string, 0, len(d.NutrientsDisplay))
		for name := range d.NutrientsDisplay {
			names = append(names, name)
		}
		sort.Strings(names)

		b.WriteString("Nutritional Information:\n")
		for _, name := range names {
			n := d.NutrientsDisplay[name]
			fmt.Fprintf(&b, "- %s: %g %s\n", name, n.Value, n.Unit)
		}
	}

	if d.NutritionGrade != "" {
		fmt.Fprintf(&b, "\nNutri-Score: %s\n", strings.ToUpper(d.NutritionGrade))
	}
	if d.NovaGroup != "" && d.NovaGroup != domain.Unknown {
		fmt.Fprintf(&b, "NOVA Group (food processing): %s\n", d.NovaGroup)
	}
	if len(d.AdditivesTags) > 0 {
		fmt.Fprintf(&b, "\nAdditives: %s\n", strings.Join(d.AdditivesTags, ", "))
	}
	return b.String()
}

func healthPrompt(p domain.ProductRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the health aspects of product '%s' from brand '%s' in category '%s'.\n\n",
		p.ProductName, p.BrandName, p.Category)
	b.WriteString(productContext(p.Details))
	b.WriteString("\nPlease provide:\n")
	b.WriteString("1. The top 5 health factors about this product (good or concerning)\n")
	b.WriteString("2. A rating on a scale of 1-10 based on health considerations (10 is healthiest), written as 'Rating: X/10'\n")
	b.WriteString("3. A detailed explanation of the rating\n")
	b.WriteString("4. Potential concerns for specific groups (children, elderly, pregnant women, people with health conditions)\n")
	b.WriteString("5. Healthier alternatives if the product has nutrition concerns\n\n")
	b.WriteString("Also state your best numeric estimate for: calories per serving, sugar (g), saturated fat (g), ")
	b.WriteString("sodium (mg), protein (g), fiber (g) and additive count, one per line as 'Name: value'.\n\n")
	b.WriteString("Format your response with clear headings and bullet points.")
	return b.String()
}

func environmentalPrompt(p domain.ProductRecord) string {
	d := p.Details
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the environmental impact of product '%s' from brand '%s'.\n\n", p.ProductName, p.BrandName)
	fmt.Fprintf(&b, "Product packaging: %s\n", orPlaceholder(d.Packaging, domain.NotSpecified))
	fmt.Fprintf(&b, "Ecoscore grade: %s\n", orPlaceholder(d.EcoscoreGrade, domain.Unknown))
	fmt.Fprintf(&b, "Manufacturing places: %s\n", orPlaceholder(d.ManufacturingPlaces, domain.NotSpecified))
	fmt.Fprintf(&b, "Origin: %s\n\n", orPlaceholder(p.Origin, domain.Unknown))
	b.WriteString("Please provide:\n")
	b.WriteString("1. A rating of the environmental impact on a scale of 1-10 (10 is most environmentally friendly), written as 'Rating: X/10'\n")
	b.WriteString("2. An analysis of packaging sustainability\n")
	b.WriteString("3. The likely carbon footprint from manufacturing and transportation\n")
	b.WriteString("4. More sustainable alternatives if applicable\n")
	b.WriteString("Format your response with clear headings and bullet points.")
	return b.String()
}

func allergenPrompt(p domain.ProductRecord, userAllergies []string) string {
	listed := "None listed"
	if len(p.Allergens) > 0 {
		listed = strings.Join(p.Allergens, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the allergen risks for product '%s' from brand '%s'.\n\n", p.ProductName, p.BrandName)
	fmt.Fprintf(&b, "Listed allergens: %s\n", listed)
	fmt.Fprintf(&b, "Ingredients: %s\n", orPlaceholder(p.Details.Ingredients, domain.NotAvailable))
	if len(userAllergies) > 0 {
		fmt.Fprintf(&b, "The consumer is allergic to: %s\n", strings.Join(userAllergies, ", "))
	}
	b.WriteString("\nPlease provide:\n")
	b.WriteString("1. Explicit allergens in the product\n")
	b.WriteString("2. Potential hidden allergens based on ingredients\n")
	b.WriteString("3. Cross-contamination risks common with this type of product\n")
	b.WriteString("4. Recommendations for consumers with specific allergies or sensitivities\n")
	b.WriteString("Format your response with clear headings and bullet points.")
	return b.String()
}

func recipesPrompt(p domain.ProductRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate three healthier homemade alternatives or recipes related to '%s' in the category '%s'.\n\n",
		p.ProductName, p.Category)
	fmt.Fprintf(&b, "Original ingredients: %s\n\n", orPlaceholder(p.Details.Ingredients, domain.NotAvailable))
	b.WriteString("For each alternative, please provide:\n")
	b.WriteString("1. A name for the healthier alternative\n")
	b.WriteString("2. A list of wholesome ingredients\n")
	b.WriteString("3. Brief preparation instructions\n")
	b.WriteString("4. Health benefits compared to the original product\n")
	b.WriteString("Format your response with clear headings and numbered recipes.")
	return b.String()
}

func certificationPrompt(p domain.ProductRecord, certification string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "As a food safety expert, analyze the compliance of product '%s' from brand '%s' with %s standards.\n\n",
		p.ProductName, p.BrandName, certification)
	if p.Details.HasIngredients() {
		fmt.Fprintf(&b, "Product ingredients: %s\n\n", p.Details.Ingredients)
	}
	if p.Details.Labels != "" {
		fmt.Fprintf(&b, "Product labels: %s\n\n", p.Details.Labels)
	}
	b.WriteString("Consider:\n")
	fmt.Fprintf(&b, "1. Whether the product likely meets %s requirements\n", certification)
	b.WriteString("2. Common compliance issues with similar products\n")
	fmt.Fprintf(&b, "3. What consumers should know about %s certification\n", certification)
	fmt.Fprintf(&b, "4. Recommendations for consumers concerned about %s compliance\n\n", certification)
	b.WriteString("Provide a detailed assessment with bullet points. Be honest about limitations in your analysis.")
	return b.String()
}

const medicineExtractionPrompt = `You are an OCR system for medical packaging. Extract ALL text from this medicine package or label.

Format your response as:
**Brand Name:** [name]
**Generic Name:** [active ingredient]
**Strength:** [dose]
**Form:** [tablet/capsule/syrup/injection]
**Mfg Date:** [date]
**Exp Date:** [date]
**Batch:** [number]
**Manufacturer:** [company]
**Additional Info:** [warnings, storage]

Write "Not visible" for any field you cannot read. If the image quality is poor, name the issue (blur, glare, angle).`

func profileContext(p domain.MedicineProfile) string {
	var b strings.Builder
	b.WriteString("USER PROFILE:\n")
	if p.Age > 0 {
		fmt.Fprintf(&b, "- Age: %d\n", p.Age)
	} else {
		b.WriteString("- Age: Adult\n")
	}
	fmt.Fprintf(&b, "- Medical Conditions: %s\n", joinOrNone(p.Conditions))
	fmt.Fprintf(&b, "- Known Allergies: %s\n", joinOrNone(p.Allergies))
	fmt.Fprintf(&b, "- Current Medications: %s\n", joinOrNone(p.CurrentMedications))
	if p.Pregnant {
		b.WriteString("- Pregnant: yes\n")
	}
	return b.String()
}

func medicinePrompt(text string, profile domain.MedicineProfile, depth string) string {
	var b strings.Builder
	b.WriteString("You are a medical education assistant. Analyze this medicine and explain it for a non-medical reader.\n\n")
	fmt.Fprintf(&b, "MEDICINE INFORMATION:\n%s\n\n", text)
	b.WriteString(profileContext(profile))
	b.WriteString("\nGUIDELINES:\n")
	b.WriteString("- Provide accurate, evidence-based information in simple language\n")
	b.WriteString("- Highlight safety concerns relevant to the user profile\n")
	b.WriteString("- DO NOT provide personal medical advice, prescriptions or dosages\n\n")

	if depth == domain.MedicineShort {
		b.WriteString("Keep the answer under about 400 words with these sections:\n")
		b.WriteString("## MEDICINE IDENTIFICATION (Brand Name:, Generic Name:, Drug Class:, Form & Strength:)\n")
		b.WriteString("## WHAT IT DOES\n")
		b.WriteString("## KEY SAFETY INFO (common side effects, serious warning signs, who should avoid)\n")
		b.WriteString("## FOR YOUR PROFILE\n")
		b.WriteString("## QUICK TIPS\n")
	} else {
		b.WriteString("Use these sections:\n")
		b.WriteString("## MEDICINE IDENTIFICATION (Brand Name:, Generic Name:, Drug Class:, Form:, Strength:, Expiry Date:)\n")
		b.WriteString("## WHAT IS THIS MEDICINE?\n")
		b.WriteString("## COMMON USES\n")
		b.WriteString("## COMMON SIDE EFFECTS\n")
		b.WriteString("## WHEN TO SEEK IMMEDIATE HELP\n")
		b.WriteString("## WHO SHOULD AVOID THIS MEDICINE (including pregnancy, breastfeeding, children, elderly)\n")
		b.WriteString("## PERSONALIZED SAFETY NOTES\n")
		b.WriteString("## SAFETY RISK ASSESSMENT with the reasoning behind it\n")
		b.WriteString("## IMPORTANT USAGE NOTES (storage, timing, drug interactions, lifestyle, missed dose)\n")
	}
	b.WriteString("\nState the risk as 'Risk Level:' followed by exactly one of: GENERALLY SAFE | USE WITH CAUTION | REQUIRES MONITORING.\n")
	b.WriteString("End with a one-line educational disclaimer.")
	return b.String()
}

func translationPrompt(text, language string) string {
	return fmt.Sprintf(`Translate the following medicine educational explanation into %s.

Keep the meaning accurate and keep headings where possible.
DO NOT add extra medical advice.

Text to translate:
%s`, language, text)
}

func labelPrompt(profile domain.UserProfile) string {
	var b strings.Builder
	b.WriteString("Analyze this food label image and answer with one JSON object in a ```json fenced block. ")
	b.WriteString("Numbers should carry units. Use this structure:\n\n")
	b.WriteString("```json\n")
	b.WriteString(`{
  "name": "Food Name",
  "nutrition": {
    "calories": "X kcal",
    "protein": "X g",
    "carbs": "X g",
    "sugars": "X g",
    "fats": {"total": "X g", "saturated": "X g", "trans": "X g"},
    "fiber": "X g",
    "sodium": "X mg"
  },
  "ingredients": ["main ingredients"],
  "additives": ["additives or E-numbers"],
  "allergens": ["potential allergens"],
  "servingSize": "X g",
  "processingLevel": "Unprocessed | Minimally processed | Processed | Highly processed",
  "nutritionalScore": "A to E",
  "dietaryCompliance": {"generalAssessment": "overall assessment"},
  "allergyRisks": {"crossContamination": "possible risks"},
  "healthImpact": {"overallImpact": "Very Beneficial | Beneficial | Neutral | Concerning | Harmful"},
  "warnings": ["important warnings"],
  "recommendations": ["personalized recommendations"]
}`)
	b.WriteString("\n```\n\n")
	if len(profile.DietaryPreferences) > 0 {
		fmt.Fprintf(&b, "Add one key per diet to dietaryCompliance for: %s.\n", strings.Join(profile.DietaryPreferences, ", "))
	}
	if len(profile.Allergies) > 0 {
		fmt.Fprintf(&b, "Add one key per allergy to allergyRisks for: %s.\n", strings.Join(profile.Allergies, ", "))
	}
	if profile.HealthGoal != "" {
		fmt.Fprintf(&b, "Add a healthImpact key for the goal: %s.\n", profile.HealthGoal)
	}
	b.WriteString("Give your best estimate where exact values are not visible and say so. Prefer accuracy over completeness.")
	return b.String()
}

const foodImagePrompt = `Analyze this food image and provide:
1. Food identification
2. Estimated calories
3. Macronutrient breakdown (proteins, carbs, fats)
4. Nutritional benefits
5. Considerations for special diets`

func nutritionSystemPrompt(profile domain.UserProfile) string {
	var b strings.Builder
	b.WriteString("You are NutriChat, a nutrition advisor with expertise in dietary science and balanced nutrition, ")
	b.WriteString("diets and eating patterns, food ingredients and allergens, and nutritional needs for health goals.\n")
	b.WriteString("Give accurate, personalized, evidence-based nutrition advice and stay within nutrition. ")
	b.WriteString("You do not provide medical diagnoses or emergency instructions.\n")

	if len(profile.DietaryPreferences) > 0 || len(profile.Allergies) > 0 || profile.HealthGoal != "" {
		b.WriteString("\nUser Preferences:")
		if len(profile.DietaryPreferences) > 0 {
			fmt.Fprintf(&b, "\n- Dietary: %s", strings.Join(profile.DietaryPreferences, ", "))
		}
		if len(profile.Allergies) > 0 {
			fmt.Fprintf(&b, "\n- Allergies: %s", strings.Join(profile.Allergies, ", "))
		}
		if profile.HealthGoal != "" {
			fmt.Fprintf(&b, "\n- Health Goal: %s", profile.HealthGoal)
		}
		b.WriteString("\n")
	}
	writeLanguage(&b, profile.Language)
	return b.String()
}

func medicineSystemPrompt(profile domain.UserProfile, last *domain.MedicineAnalysis) string {
	var b strings.Builder
	b.WriteString("You are a friendly medical education chatbot. Give clear, accurate educational information about medicines and health topics.\n\n")
	b.WriteString(profileContext(profile.Medicine))
	b.WriteString("\nDO: explain in simple language, use bullet points when helpful, encourage consulting healthcare professionals.\n")
	b.WriteString("DO NOT: give personal medical advice or diagnoses, recommend medicines or dosages, create treatment plans.\n")
	b.WriteString("Answer in 2-4 short paragraphs and end with a one-line safety reminder.\n")
	if last != nil && last.Success {
		b.WriteString("\nThe user scanned a medicine with this label:\n")
		b.WriteString(orPlaceholder(last.SourceText, "[no source text stored]"))
		b.WriteString("\n\nYour educational analysis of it was:\n")
		b.WriteString(last.Text)
		b.WriteString("\nFollow-up questions are about the same medicine unless the user says otherwise. ")
		b.WriteString("Answer from this context without personal medical advice or dosages.\n")
	}
	writeLanguage(&b, profile.Language)
	return b.String()
}

func productSystemPrompt(profile domain.UserProfile, product *domain.ProductRecord, analysis *domain.AnalysisResult) string {
	var b strings.Builder
	b.WriteString(nutritionSystemPrompt(profile))
	if product != nil {
		fmt.Fprintf(&b, "\nThe user is asking about the product '%s' from brand '%s' (category %s).\n",
			product.ProductName, product.BrandName, product.Category)
		b.WriteString(productContext(product.Details))
	}
	if analysis != nil && analysis.Success {
		fmt.Fprintf(&b, "\nEarlier %s of this product:\n%s\n", strings.ReplaceAll(analysis.Kind, "_", " "), analysis.FullText)
	}
	return b.String()
}

func writeLanguage(b *strings.Builder, language string) {
	if language != "" && !strings.EqualFold(language, "English") {
		fmt.Fprintf(b, "\nAnswer in %s.\n", language)
	}
}

// contextWindow returns the last maxContextMessages turns with each content cut to
// maxContextChars runes
func contextWindow(history []domain.ChatMessage) []domain.ChatMessage {
	start := len(history) - maxContextMessages
	if start < 0 {
		start = 0
	}
	out := make([]domain.ChatMessage, 0, len(history)-start)
	for _, m := range history[start:] {
		m.Content = truncateRunes(m.Content, maxContextChars)
		out = append(out, m)
	}
	return out
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func orPlaceholder(s, placeholder string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}

func joinOrNone(items []string) string {
	var kept []string
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" && !strings.EqualFold(it, "none") {
			kept = append(kept, it)
		}
	}
	if len(kept) == 0 {
		return "None reported"
	}
	return strings.Join(kept, ", ")
}
