package tags

import (
	"reflect"
	"strings"
	"testing"
)

func TestIsValid(t *testing.T) {
	for _, tag := range []string{"web", "pwn-101", "crypto_2", "rev.eng", "web sec"} {
		if !IsValid(tag) {
			t.Fatalf("expected %q to be valid", tag)
		}
	}
	for _, tag := range []string{"", "UPPER", "emoji🏴", "semi;colon", strings.Repeat("a", 33)} {
		if IsValid(tag) {
			t.Fatalf("expected %q to be invalid", tag)
		}
	}
}

func TestNormalizeList(t *testing.T) {
	got := NormalizeList([]string{" Web ", "pwn", "web", "BAD!", ""})
	want := []string{"pwn", "web"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestNormalizeList_Empty(t *testing.T) {
	if got := NormalizeList(nil); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestParseList(t *testing.T) {
	got := ParseList("Web, pwn ,web,,crypto")
	want := []string{"crypto", "pwn", "web"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
