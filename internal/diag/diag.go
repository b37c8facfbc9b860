// Package diag collects the non-fatal diagnostics of a single conversion.
package diag

import (
	"fmt"
	"log/slog"
)

type Kind string

const (
	// KindInput covers loader notes about the document itself.
	KindInput Kind = "input"
	// KindReference is recorded when a $ref cannot be resolved.
	KindReference Kind = "reference"
	// KindDepth is recorded when a branch is truncated at the depth limit.
	KindDepth Kind = "depth"
)

type Warning struct {
	Kind    Kind
	Subject string
	Message string
}

func (w Warning) String() string {
	if w.Subject == "" {
		return fmt.Sprintf("%s: %s", w.Kind, w.Message)
	}
	return fmt.Sprintf("%s: %s: %s", w.Kind, w.Subject, w.Message)
}

// Collector is owned by one conversion and is not safe for concurrent use.
type Collector struct {
	logger   *slog.Logger
	warnings []Warning
}

// NewCollector returns a collector that also logs every warning. A nil
// logger discards log output.
func NewCollector(logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Collector{logger: logger}
}

func (c *Collector) Add(kind Kind, subject, format string, args ...any) {
	w := Warning{Kind: kind, Subject: subject, Message: fmt.Sprintf(format, args...)}
	c.warnings = append(c.warnings, w)
	c.logger.Warn(w.Message, "kind", string(kind), "subject", subject)
}

func (c *Collector) Warnings() []Warning {
	return c.warnings
}

func (c *Collector) Count() int {
	return len(c.warnings)
}

// CountKind returns the number of warnings of one kind.
func (c *Collector) CountKind(kind Kind) int {
	n := 0
	for _, w := range c.warnings {
		if w.Kind == kind {
			n++
		}
	}
	return n
}
