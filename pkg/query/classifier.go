// Package query provides the statement lifecycle: parsing, binding,
// execution and fetching.
package query

import (
	"strings"

	"github.com/blastrain/vitess-sqlparser/sqlparser"
)

// StatementType represents the category of a SQL statement.
type StatementType string

// Statement types.
const (
	StatementTypeSelect  StatementType = "SELECT"
	StatementTypeInsert  StatementType = "INSERT"
	StatementTypeUpdate  StatementType = "UPDATE"
	StatementTypeDelete  StatementType = "DELETE"
	StatementTypeMerge   StatementType = "MERGE"
	StatementTypeCreate  StatementType = "CREATE"
	StatementTypeDrop    StatementType = "DROP"
	StatementTypeAlter   StatementType = "ALTER"
	StatementTypeBegin   StatementType = "BEGIN"
	StatementTypeDeclare StatementType = "DECLARE"
	StatementTypeCall    StatementType = "CALL"
	StatementTypeUnknown StatementType = "UNKNOWN"
)

// IsQuery reports whether statements of this type return rows.
func (t StatementType) IsQuery() bool { return t == StatementTypeSelect }

// IsDML reports whether t modifies rows.
func (t StatementType) IsDML() bool {
	switch t {
	case StatementTypeInsert, StatementTypeUpdate, StatementTypeDelete, StatementTypeMerge:
		return true
	}
	return false
}

// IsDDL reports whether t changes the schema.
func (t StatementType) IsDDL() bool {
	switch t {
	case StatementTypeCreate, StatementTypeDrop, StatementTypeAlter:
		return true
	}
	return false
}

// IsBlock reports whether t is an anonymous PL/SQL block or a call.
func (t StatementType) IsBlock() bool {
	switch t {
	case StatementTypeBegin, StatementTypeDeclare, StatementTypeCall:
		return true
	}
	return false
}

// Classifier provides SQL statement classification functionality.
type Classifier struct{}

// NewClassifier creates a new SQL classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// ClassifyResult contains the classification result of a SQL statement.
type ClassifyResult struct {
	Type    StatementType
	IsQuery bool
	IsDDL   bool
	IsDML   bool
	IsBlock bool
	// Parsed is set when the statement was recognized by the SQL parser
	// rather than by its leading keyword.
	Parsed bool
}

// Classify analyzes a SQL statement and returns its classification.
func (c *Classifier) Classify(sql string) ClassifyResult {
	t, parsed := c.parse(sql)
	if !parsed {
		t = c.byKeyword(sql)
	}
	return ClassifyResult{
		Type:    t,
		IsQuery: t.IsQuery(),
		IsDDL:   t.IsDDL(),
		IsDML:   t.IsDML(),
		IsBlock: t.IsBlock(),
		Parsed:  parsed,
	}
}

// parse classifies by AST. The parser speaks a MySQL grammar, so vendor
// syntax and PL/SQL blocks fall through to byKeyword.
func (c *Classifier) parse(sql string) (StatementType, bool) {
	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return StatementTypeUnknown, false
	}
	switch stmt.(type) {
	case *sqlparser.Select, *sqlparser.Union, *sqlparser.ParenSelect:
		return StatementTypeSelect, true
	case *sqlparser.Insert:
		return StatementTypeInsert, true
	case *sqlparser.Update:
		return StatementTypeUpdate, true
	case *sqlparser.Delete:
		return StatementTypeDelete, true
	}
	return StatementTypeUnknown, false
}

func (c *Classifier) byKeyword(sql string) StatementType {
	switch firstKeyword(sql) {
	case "SELECT", "WITH", "SHOW", "DESCRIBE", "DESC", "EXPLAIN", "VALUES":
		return StatementTypeSelect
	case "INSERT":
		return StatementTypeInsert
	case "UPDATE":
		return StatementTypeUpdate
	case "DELETE":
		return StatementTypeDelete
	case "MERGE":
		return StatementTypeMerge
	case "CREATE":
		return StatementTypeCreate
	case "DROP", "TRUNCATE":
		return StatementTypeDrop
	case "ALTER", "RENAME", "COMMENT", "GRANT", "REVOKE":
		return StatementTypeAlter
	case "BEGIN":
		return StatementTypeBegin
	case "DECLARE":
		return StatementTypeDeclare
	case "CALL", "EXEC", "EXECUTE":
		return StatementTypeCall
	}
	return StatementTypeUnknown
}

// firstKeyword returns the first upper-cased word after leading comments,
// whitespace and opening parentheses.
func firstKeyword(sql string) string {
	s := sql
	for {
		s = strings.TrimLeft(s, " \t\r\n(")
		switch {
		case strings.HasPrefix(s, "--"):
			if i := strings.IndexByte(s, '\n'); i >= 0 {
				s = s[i+1:]
				continue
			}
			return ""
		case strings.HasPrefix(s, "/*"):
			if i := strings.Index(s, "*/"); i >= 0 {
				s = s[i+2:]
				continue
			}
			return ""
		}
		break
	}
	end := strings.IndexFunc(s, func(r rune) bool {
		return !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
	})
	if end < 0 {
		end = len(s)
	}
	return strings.ToUpper(s[:end])
}

// DefaultClassifier is the default SQL classifier instance.
var DefaultClassifier = NewClassifier()

// ClassifySQL is a convenience function using the default classifier.
func ClassifySQL(sql string) ClassifyResult {
	return DefaultClassifier.Classify(sql)
}

// IsQuery is a convenience function to check if SQL is a query.
func IsQuery(sql string) bool {
	return DefaultClassifier.Classify(sql).IsQuery
}
