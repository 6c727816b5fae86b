package main

import (
	"errors"
	"testing"

	"github.com/mmdatafocus/boletos_backend/utils"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{utils.Validationf("bad"), 2},
		{utils.NotFoundf("missing"), 3},
		{utils.Conflictf("taken"), 4},
		{utils.Integrityf("pages"), 5},
		{utils.PersistenceError("db", errors.New("down")), 1},
		{errors.New("plain"), 1},
	}
	for _, tc := range cases {
		if got := exitCode(tc.err); got != tc.want {
			t.Fatalf("exitCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestParseId(t *testing.T) {
	if id, err := parseId("7"); err != nil || id != 7 {
		t.Fatalf("parseId(7) = %d, %v", id, err)
	}
	for _, s := range []string{"", "0", "-3", "abc"} {
		if _, err := parseId(s); !errors.Is(err, utils.ErrValidation) {
			t.Fatalf("parseId(%q) err = %v, want validation", s, err)
		}
	}
}
