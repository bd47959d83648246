package poller

import (
	"bytes"
	"strings"
	"testing"
)

func TestEmailTemplateWithMealHint(t *testing.T) {
	params := &emailParams{
		Name:        "Amoxicillin",
		Dose:        "500mg",
		When:        "before",
		MealPhrase:  "before your meal",
		ConfirmLink: "https://dosepilot.example.com/confirm-dose?medId=m1",
	}

	content := &bytes.Buffer{}
	if err := emailPlainTemplate.Execute(content, params); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	body := content.String()
	if !strings.Contains(body, "It's time to take Amoxicillin, 500mg.") {
		t.Errorf("Body is missing the reminder line:\n%s", body)
	}
	if !strings.Contains(body, "Take it before your meal.") {
		t.Errorf("Body is missing the meal hint:\n%s", body)
	}
	if !strings.Contains(body, params.ConfirmLink) {
		t.Errorf("Body is missing the confirmation link:\n%s", body)
	}
}

func TestEmailTemplateWithoutMealHint(t *testing.T) {
	params := &emailParams{
		Name:        "Amoxicillin",
		Dose:        "500mg",
		ConfirmLink: "https://dosepilot.example.com/confirm-dose?medId=m1",
	}

	content := &bytes.Buffer{}
	if err := emailPlainTemplate.Execute(content, params); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if strings.Contains(content.String(), "Take it") {
		t.Errorf("Body has a meal hint for a medication with none:\n%s", content.String())
	}
}
