package twopc

import (
	"errors"
	"testing"

	apperrors "github.com/goliatone/go-errors"
)

func TestErrOrderNotFoundCode(t *testing.T) {
	err := ErrOrderNotFound(Toid(7))
	if !IsCode(err, ErrCodeOrderNotFound) {
		t.Fatalf("expected code %q, got error %v", ErrCodeOrderNotFound, err)
	}
	if IsCode(err, ErrCodeTaskNotFound) {
		t.Fatalf("did not expect code %q to match", ErrCodeTaskNotFound)
	}
}

func TestIsCodeOnNilError(t *testing.T) {
	if IsCode(nil, ErrCodeOrderNotFound) {
		t.Fatal("expected nil error to not match any code")
	}
}

func TestClonedErrorsCarryDistinctMetadata(t *testing.T) {
	a := ErrOrderNotFound(Toid(1))
	b := ErrOrderNotFound(Toid(2))

	var gea, geb *apperrors.Error
	if !errors.As(a, &gea) || !errors.As(b, &geb) {
		t.Fatalf("expected both errors to be *apperrors.Error, got %T and %T", a, b)
	}
	if gea.Metadata["toid"] == geb.Metadata["toid"] {
		t.Fatalf("expected distinct toid metadata, both were %v", gea.Metadata["toid"])
	}
}
