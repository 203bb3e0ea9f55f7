package db

import (
	"context"
	"strings"
	"testing"
)

func TestTxFromContext_Nil(t *testing.T) {
	if tx := TxFromContext(context.Background()); tx != nil {
		t.Error("expected nil tx for empty context")
	}
}

func TestTxFromContext_WrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), DBTxKey, "not-a-tx")
	if tx := TxFromContext(ctx); tx != nil {
		t.Error("expected nil tx for wrong value type")
	}
}

func TestBootstrapStatements_Shape(t *testing.T) {
	if len(createTables) == 0 || len(createConstraintsAndIndexes) == 0 {
		t.Fatal("bootstrap statement lists must not be empty")
	}
	for _, stmt := range createTables {
		if !strings.HasPrefix(strings.TrimSpace(stmt), "CREATE TABLE IF NOT EXISTS") {
			t.Errorf("table statement is not idempotent: %.60s", stmt)
		}
	}
	for _, stmt := range createConstraintsAndIndexes {
		if !strings.Contains(stmt, "IF NOT EXISTS") {
			t.Errorf("index statement is not idempotent: %.60s", stmt)
		}
	}
	for _, c := range cleanups {
		if !strings.Contains(c.sql, "a.id > b.id") {
			t.Errorf("cleanup %q does not keep the lowest id", c.name)
		}
	}
}
