package app

import (
	"testing"
	"time"
)

func TestNewOperation(t *testing.T) {
	started := time.Date(2024, 3, 5, 7, 8, 9, 0, time.FixedZone("X", 3600))
	op := NewOperation("backup", started)

	if op.ID != "20240305T060809Z" {
		t.Errorf("ID = %q, want the UTC start time", op.ID)
	}
	if op.Name != "backup" {
		t.Errorf("Name = %q, want %q", op.Name, "backup")
	}
	if op.Status != "success" || op.Mutated {
		t.Errorf("new operation = %+v, want successful and unmutated", op)
	}
}

func TestOperation_TouchAndFail(t *testing.T) {
	op := NewOperation("add", time.Now())

	op.Touch()
	op.Fail()
	if !op.Mutated {
		t.Error("Touch() did not mark the operation as mutated")
	}
	if op.Status != "error" {
		t.Errorf("Status = %q after Fail(), want error", op.Status)
	}
}
