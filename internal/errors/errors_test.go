// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package errors

import (
	"errors"
	"testing"
)

func TestError(t *testing.T) {
	err := New(KindValidation, "invalid input")
	if err.Error() != "invalid input" {
		t.Errorf("expected 'invalid input', got '%s'", err.Error())
	}

	wrapped := Wrap(err, KindInternal, "failed to validate")
	if wrapped.Error() != "failed to validate: invalid input" {
		t.Errorf("expected 'failed to validate: invalid input', got '%s'", wrapped.Error())
	}

	if Wrap(nil, KindInternal, "failed") != nil {
		t.Errorf("expected Wrap(nil, ...) to return nil")
	}
}

func TestGetKind(t *testing.T) {
	err := New(KindValidation, "invalid input")
	if GetKind(err) != KindValidation {
		t.Errorf("expected KindValidation, got %v", GetKind(err))
	}

	wrapped := Wrap(err, KindConflict, "failed")
	if GetKind(wrapped) != KindConflict {
		t.Errorf("expected KindConflict, got %v", GetKind(wrapped))
	}

	if GetKind(errors.New("std error")) != KindInternal {
		t.Errorf("expected KindInternal, got %v", GetKind(errors.New("std error")))
	}
}
