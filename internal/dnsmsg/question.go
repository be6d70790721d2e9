package dnsmsg

import (
	"fmt"
	"strings"

	"github.com/nsserver/kdns/internal/dnswire"
)

// Question is a single entry in the question section.
type Question struct {
	Name  string
	Type  RecordType
	Class RecordClass
}

// Marshal writes the question at the buffer's cursor.
func (q Question) Marshal(b *dnswire.Buffer) error {
	if err := b.WriteName(q.Name); err != nil {
		return fmt.Errorf("marshaling question name: %w", err)
	}
	if err := b.WriteU16(uint16(q.Type)); err != nil {
		return fmt.Errorf("marshaling question type: %w", err)
	}
	if err := b.WriteU16(uint16(q.Class)); err != nil {
		return fmt.Errorf("marshaling question class: %w", err)
	}
	return nil
}

// ParseQuestion reads a question from the buffer's cursor.
func ParseQuestion(b *dnswire.Buffer) (Question, error) {
	name, err := b.ReadName()
	if err != nil {
		return Question{}, fmt.Errorf("parsing question name: %w: %w", ErrDNSError, err)
	}
	typ, err := b.ReadU16()
	if err != nil {
		return Question{}, fmt.Errorf("parsing question type: %w: %w", ErrDNSError, err)
	}
	class, err := b.ReadU16()
	if err != nil {
		return Question{}, fmt.Errorf("parsing question class: %w: %w", ErrDNSError, err)
	}
	return Question{Name: strings.ToLower(name), Type: RecordType(typ), Class: RecordClass(class)}, nil
}
