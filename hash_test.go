package dh

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
	"testing/quick"
)

func TestHashBytes(t *testing.T) {
	const want = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" // sha256 of nothing
	if got := HashBytes(nil).String(); got != want {
		t.Errorf("got %s, want %s", got, want)
	}

	f := func(b []byte) bool {
		s := HashBytes(b).String()
		if len(s) != HashLen || s != strings.ToLower(s) {
			return false
		}
		sum := sha256.Sum256(b)
		return s == hex.EncodeToString(sum[:]) && s == HashBytes(b).String()
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestValidHash(t *testing.T) {
	good := HashString("foo").String()

	cases := []struct {
		s    string
		want bool
	}{
		{s: good, want: true},
		{s: strings.ToUpper(good), want: true},
		{s: good[:63], want: false},
		{s: good + "0", want: false},
		{s: "g" + good[1:], want: false},
		{s: "", want: false},
	}
	for i, c := range cases {
		if got := ValidHash(c.s); got != c.want {
			t.Errorf("case %d: got %v, want %v", i, got, c.want)
		}
	}
}

func TestHashFromHex(t *testing.T) {
	h := HashString("foo")
	got, err := HashFromHex(strings.ToUpper(h.String()))
	if err != nil {
		t.Fatal(err)
	}
	if got != h {
		t.Errorf("got %s, want %s", got, h)
	}

	_, err = HashFromHex("xyz")
	if !errorsIs(err, ErrInvalidInput) {
		t.Errorf("got error %v, want ErrInvalidInput", err)
	}
}

func TestHashText(t *testing.T) {
	h := HashString("bar")
	text, err := h.MarshalText()
	if err != nil {
		t.Fatal(err)
	}
	var got Hash
	if err = got.UnmarshalText(text); err != nil {
		t.Fatal(err)
	}
	if got != h {
		t.Errorf("got %s, want %s", got, h)
	}
}

func TestIsZero(t *testing.T) {
	if !Zero.IsZero() {
		t.Error("Zero is not zero")
	}
	if HashBytes(nil).IsZero() {
		t.Error("hash of empty content is zero")
	}
}
