package db

import (
	"context"
	"testing"
)

func TestTxFromContext_Nil(t *testing.T) {
	if tx := TxFromContext(context.Background()); tx != nil {
		t.Errorf("expected nil tx, got %v", tx)
	}
}

func TestTxFromContext_WithWrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), TxKey, "not-a-tx")
	if tx := TxFromContext(ctx); tx != nil {
		t.Errorf("expected nil tx for wrong type, got %v", tx)
	}
}

func TestContextWithTx_NilTx(t *testing.T) {
	ctx := ContextWithTx(context.Background(), nil)
	if tx := TxFromContext(ctx); tx != nil {
		t.Errorf("expected nil tx, got %v", tx)
	}
}
