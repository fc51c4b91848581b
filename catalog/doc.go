// Package catalog resolves localized user-facing text for resilience
// errors. Lookups key on (error kind, language tag) and fall back to
// English. The catalog only decorates errors crossing the system
// boundary; it never participates in control decisions.
package catalog
