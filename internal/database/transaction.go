package database

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// TxBuilder assembles statements into one BEGIN/COMMIT block. Each statement's
// variables are renamed with a per-statement prefix so statements written
// independently cannot clobber each other's bindings:
//
//	tb := NewTxBuilder()
//	tb.Add("LET $taken = (SELECT count() FROM registration WHERE house_key = $house)", vars1)
//	tb.Add("IF $taken >= $quota { THROW \"quota\" }", vars2)
//	ExecuteTransaction(ctx, db, tb)
//
// Variables bound with LET inside the block are not renamed; they are shared
// by every later statement. The whole block is sent in a single request, so a
// THROW in any statement cancels all of them.
type TxBuilder struct {
	statements []string
	vars       map[string]interface{}
}

// NewTxBuilder creates an empty transaction builder
func NewTxBuilder() *TxBuilder {
	return &TxBuilder{vars: make(map[string]interface{})}
}

// Add appends a statement and returns the mapping from its variable names to the bound names
func (tb *TxBuilder) Add(query string, vars map[string]interface{}) map[string]string {
	n := len(tb.statements) + 1

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	mapping := make(map[string]string, len(vars))
	for _, name := range names {
		bound := fmt.Sprintf("s%d_%s", n, name)
		query = variablePattern(name).ReplaceAllLiteralString(query, "$"+bound)
		tb.vars[bound] = vars[name]
		mapping[name] = bound
	}

	tb.statements = append(tb.statements, query)
	return mapping
}

// AddRaw appends a statement without variable substitution
func (tb *TxBuilder) AddRaw(query string) {
	tb.statements = append(tb.statements, query)
}

// Len returns the number of statements added
func (tb *TxBuilder) Len() int {
	return len(tb.statements)
}

// Build returns the transaction block and its merged variables
func (tb *TxBuilder) Build() (string, map[string]interface{}) {
	if len(tb.statements) == 0 {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("BEGIN TRANSACTION;\n")
	for _, stmt := range tb.statements {
		sb.WriteString(strings.TrimSpace(stmt))
		if !strings.HasSuffix(strings.TrimSpace(stmt), ";") {
			sb.WriteString(";")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("COMMIT TRANSACTION;")

	return sb.String(), tb.vars
}

// ExecuteTransaction sends the built block and returns one result per statement
func ExecuteTransaction(ctx context.Context, db Database, tb *TxBuilder) ([]interface{}, error) {
	query, vars := tb.Build()
	if query == "" {
		return nil, nil
	}
	return db.Query(ctx, query, vars)
}

// variablePattern matches $name as a whole identifier, so $house does not match inside $house_key
func variablePattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`\$` + regexp.QuoteMeta(name) + `\b`)
}
