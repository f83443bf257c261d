package report

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    ItemList
	}{
		{"comma", "A, B, C", ItemList{"A", "B", "C"}},
		{"newline", "A\nB\nC", ItemList{"A", "B", "C"}},
		{"single", "SingleItem", ItemList{"SingleItem"}},
		{"semicolon", "Fever; Pain", ItemList{"Fever", "Pain"}},
		{"bullet", "• Crocin • Dolo", ItemList{"Crocin", "Dolo"}},
		{"hyphen", "Crocin - Dolo - Calpol", ItemList{"Crocin", "Dolo", "Calpol"}},
		{"newline beats comma", "Crocin, 500\nDolo, 650", ItemList{"Crocin, 500", "Dolo, 650"}},
		{"comma beats semicolon", "A; B, C", ItemList{"A; B", "C"}},
		{"crlf", "A\r\nB", ItemList{"A", "B"}},
		{"blank items dropped", "A,, B,", ItemList{"A", "B"}},
		{"surrounding whitespace", "  \n Solo \n ", ItemList{"Solo"}},
		{"delimiter only", "-", ItemList{"-"}},
		{"empty", "", ItemList{""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.content)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %#v, want %#v", tt.content, got, tt.want)
			}
			if len(got) < 1 {
				t.Errorf("Tokenize(%q) returned empty list", tt.content)
			}
		})
	}
}
