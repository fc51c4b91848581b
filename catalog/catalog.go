package catalog

import (
	"sync"

	"github.com/justiceautomation/legalops/resilience"
)

// DefaultLanguage is the locale used when a requested one has no entry.
const DefaultLanguage = "en"

// Catalog maps (error kind, language tag) to user-facing text.
type Catalog struct {
	mu      sync.RWMutex
	entries map[resilience.Kind]map[string]resilience.UserMessage
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{
		entries: make(map[resilience.Kind]map[string]resilience.UserMessage),
	}
}

// Register adds or replaces the text for a kind and language.
func (c *Catalog) Register(kind resilience.Kind, lang string, msg resilience.UserMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	byLang, ok := c.entries[kind]
	if !ok {
		byLang = make(map[string]resilience.UserMessage)
		c.entries[kind] = byLang
	}
	byLang[lang] = msg
}

// Lookup resolves the text for a kind in the requested language, falling
// back to the default language and then to a generic message. It is used
// only to decorate errors for end users, never for control decisions.
func (c *Catalog) Lookup(kind resilience.Kind, lang string) resilience.UserMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if byLang, ok := c.entries[kind]; ok {
		if msg, ok := byLang[lang]; ok {
			return msg
		}
		if msg, ok := byLang[DefaultLanguage]; ok {
			return msg
		}
	}

	if byLang, ok := c.entries[resilience.KindUnknown]; ok {
		if msg, ok := byLang[lang]; ok {
			return msg
		}
		if msg, ok := byLang[DefaultLanguage]; ok {
			return msg
		}
	}

	return resilience.UserMessage{
		Title:   "Something went wrong",
		Message: "The service is temporarily unavailable.",
		Action:  "Please try again in a few minutes.",
	}
}

// Default returns a catalog pre-populated with English and Spanish text
// for every error kind.
func Default() *Catalog {
	c := New()

	c.Register(resilience.KindTransientNetwork, "en", resilience.UserMessage{
		Title:   "Connection problem",
		Message: "We could not reach one of our services.",
		Action:  "Please try again in a moment.",
	})
	c.Register(resilience.KindTransientNetwork, "es", resilience.UserMessage{
		Title:   "Problema de conexión",
		Message: "No pudimos conectar con uno de nuestros servicios.",
		Action:  "Inténtelo de nuevo en un momento.",
	})

	c.Register(resilience.KindTimeout, "en", resilience.UserMessage{
		Title:   "Request timed out",
		Message: "The operation took longer than expected.",
		Action:  "Please try again; shorter documents process faster.",
	})
	c.Register(resilience.KindTimeout, "es", resilience.UserMessage{
		Title:   "Tiempo de espera agotado",
		Message: "La operación tardó más de lo esperado.",
		Action:  "Inténtelo de nuevo; los documentos cortos se procesan más rápido.",
	})

	c.Register(resilience.KindCircuitOpen, "en", resilience.UserMessage{
		Title:   "Service temporarily unavailable",
		Message: "This service is recovering from repeated failures.",
		Action:  "Please wait a minute before retrying.",
	})
	c.Register(resilience.KindCircuitOpen, "es", resilience.UserMessage{
		Title:   "Servicio temporalmente no disponible",
		Message: "Este servicio se está recuperando de fallos repetidos.",
		Action:  "Espere un minuto antes de reintentar.",
	})

	c.Register(resilience.KindCapacityExceeded, "en", resilience.UserMessage{
		Title:   "System busy",
		Message: "Too many operations are in progress.",
		Action:  "Please try again shortly.",
	})
	c.Register(resilience.KindCapacityExceeded, "es", resilience.UserMessage{
		Title:   "Sistema ocupado",
		Message: "Hay demasiadas operaciones en curso.",
		Action:  "Inténtelo de nuevo en breve.",
	})

	c.Register(resilience.KindValidation, "en", resilience.UserMessage{
		Title:   "Invalid request",
		Message: "The request could not be processed as submitted.",
		Action:  "Please review the input and try again.",
	})
	c.Register(resilience.KindValidation, "es", resilience.UserMessage{
		Title:   "Solicitud no válida",
		Message: "La solicitud no pudo procesarse tal como se envió.",
		Action:  "Revise los datos e inténtelo de nuevo.",
	})

	c.Register(resilience.KindInternal, "en", resilience.UserMessage{
		Title:   "Internal error",
		Message: "An unexpected error occurred on our side.",
		Action:  "Our team has been notified; please try again later.",
	})
	c.Register(resilience.KindInternal, "es", resilience.UserMessage{
		Title:   "Error interno",
		Message: "Se produjo un error inesperado de nuestro lado.",
		Action:  "Nuestro equipo ha sido notificado; inténtelo más tarde.",
	})

	c.Register(resilience.KindUnknown, "en", resilience.UserMessage{
		Title:   "Something went wrong",
		Message: "The service is temporarily unavailable.",
		Action:  "Please try again in a few minutes.",
	})
	c.Register(resilience.KindUnknown, "es", resilience.UserMessage{
		Title:   "Algo salió mal",
		Message: "El servicio no está disponible temporalmente.",
		Action:  "Inténtelo de nuevo en unos minutos.",
	})

	return c
}
