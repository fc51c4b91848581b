package catalog

import (
	"testing"

	"github.com/justiceautomation/legalops/resilience"
)

func TestDefault_LookupBothLanguages(t *testing.T) {
	c := Default()

	en := c.Lookup(resilience.KindTimeout, "en")
	if en.Title != "Request timed out" {
		t.Errorf("en Title = %q", en.Title)
	}

	es := c.Lookup(resilience.KindTimeout, "es")
	if es.Title != "Tiempo de espera agotado" {
		t.Errorf("es Title = %q", es.Title)
	}
}

func TestDefault_CoversEveryKind(t *testing.T) {
	c := Default()
	kinds := []resilience.Kind{
		resilience.KindUnknown,
		resilience.KindTransientNetwork,
		resilience.KindTimeout,
		resilience.KindCircuitOpen,
		resilience.KindCapacityExceeded,
		resilience.KindValidation,
		resilience.KindInternal,
	}

	for _, kind := range kinds {
		for _, lang := range []string{"en", "es"} {
			msg := c.Lookup(kind, lang)
			if msg.Title == "" || msg.Message == "" || msg.Action == "" {
				t.Errorf("Lookup(%v, %s) has empty text: %+v", kind, lang, msg)
			}
		}
	}
}

func TestLookup_UnknownLanguageFallsBackToEnglish(t *testing.T) {
	c := Default()

	msg := c.Lookup(resilience.KindCircuitOpen, "fr")
	if msg.Title != "Service temporarily unavailable" {
		t.Errorf("Title = %q, want the English entry", msg.Title)
	}
}

func TestLookup_UnknownKindFallsBackToGeneric(t *testing.T) {
	c := Default()

	msg := c.Lookup(resilience.Kind(99), "es")
	if msg.Title != "Algo salió mal" {
		t.Errorf("Title = %q, want the Spanish generic entry", msg.Title)
	}
}

func TestLookup_EmptyCatalogHardcodedGeneric(t *testing.T) {
	c := New()

	msg := c.Lookup(resilience.KindTimeout, "en")
	if msg.Title != "Something went wrong" {
		t.Errorf("Title = %q, want the built-in generic message", msg.Title)
	}
}

func TestRegister_Overrides(t *testing.T) {
	c := Default()
	c.Register(resilience.KindTimeout, "en", resilience.UserMessage{
		Title:   "Still working",
		Message: "Your filing is taking longer than usual.",
		Action:  "Check back in a minute.",
	})

	if got := c.Lookup(resilience.KindTimeout, "en").Title; got != "Still working" {
		t.Errorf("Title = %q, want the override", got)
	}
	// Other languages are untouched.
	if got := c.Lookup(resilience.KindTimeout, "es").Title; got != "Tiempo de espera agotado" {
		t.Errorf("es Title = %q, want the original", got)
	}
}
