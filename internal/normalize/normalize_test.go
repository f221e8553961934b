package normalize

import (
	"reflect"
	"testing"
	"time"
)

func TestAuthors(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		limit int
		want  []string
	}{
		{
			name:  "empty",
			raw:   "",
			limit: ListAuthorLimit,
			want:  []string{},
		},
		{
			name:  "single author",
			raw:   "Ada Lovelace",
			limit: ListAuthorLimit,
			want:  []string{"Ada Lovelace"},
		},
		{
			name:  "trims and drops fragments",
			raw:   " Ada Lovelace ;  ; X ;Alan Turing",
			limit: ListAuthorLimit,
			want:  []string{"Ada Lovelace", "Alan Turing"},
		},
		{
			name:  "case and whitespace insensitive dedupe",
			raw:   "Ada  Lovelace; ada lovelace; ADA LOVELACE",
			limit: ListAuthorLimit,
			want:  []string{"Ada Lovelace"},
		},
		{
			name:  "keeps first three",
			raw:   "Ana Gómez; Luis Pérez; Marta Ruiz; Pablo Díaz",
			limit: ListAuthorLimit,
			want:  []string{"Ana Gómez", "Luis Pérez", "Marta Ruiz"},
		},
		{
			name:  "detail limit keeps five",
			raw:   "A Uno; B Dos; C Tres; D Cuatro; E Cinco; F Seis",
			limit: DetailAuthorLimit,
			want:  []string{"A Uno", "B Dos", "C Tres", "D Cuatro", "E Cinco"},
		},
		{
			name:  "no limit",
			raw:   "A Uno; B Dos; C Tres; D Cuatro",
			limit: 0,
			want:  []string{"A Uno", "B Dos", "C Tres", "D Cuatro"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Authors(tt.raw, tt.limit)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Authors(%q, %d) = %v, want %v", tt.raw, tt.limit, got, tt.want)
			}
		})
	}
}

func TestAuthorLine(t *testing.T) {
	five := []string{"A Uno", "B Dos", "C Tres", "D Cuatro", "E Cinco"}
	tests := []struct {
		authors []string
		limit   int
		want    string
	}{
		{nil, ListAuthorLimit, DefaultAuthor},
		{[]string{"Ada Lovelace"}, ListAuthorLimit, "Ada Lovelace"},
		{[]string{"Ada Lovelace", "Alan Turing"}, ListAuthorLimit, "Ada Lovelace, Alan Turing"},
		{[]string{"A Uno", "B Dos", "C Tres"}, ListAuthorLimit, "A Uno, B Dos, C Tres et al."},
		{five, ListAuthorLimit, "A Uno, B Dos, C Tres et al."},
		{five[:4], DetailAuthorLimit, "A Uno, B Dos, C Tres, D Cuatro"},
		{five, DetailAuthorLimit, "A Uno, B Dos, C Tres, D Cuatro, E Cinco et al."},
	}

	for _, tt := range tests {
		if got := AuthorLine(tt.authors, tt.limit); got != tt.want {
			t.Errorf("AuthorLine(%v, %d) = %q, want %q", tt.authors, tt.limit, got, tt.want)
		}
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text", "  plain   text ", "plain text"},
		{"paragraphs", "<p>First</p>\n<p>Second <em>part</em></p>", "First Second part"},
		{"entities", "Fish &amp; chips", "Fish & chips"},
		{"script removed", "<p>Keep</p><script>alert(1)</script>", "Keep"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripHTML(tt.in); got != tt.want {
				t.Errorf("StripHTML(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"a longer sentence here", 8, "a longer..."},
		{"trailing space cut", 9, "trailing..."},
		{"ñandú ñandú", 5, "ñandú..."},
		{"anything", 0, "anything"},
	}

	for _, tt := range tests {
		if got := Truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestKeywords(t *testing.T) {
	got := Keywords("machine learning; NLP,  ,recommendation ")
	want := []string{"machine learning", "NLP", "recommendation"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Keywords() = %v, want %v", got, want)
	}
}

func TestDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-03-01T10:20:30Z", time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC), true},
		{"2024-03-01T10:20:30.123456", time.Date(2024, 3, 1, 10, 20, 30, 123456000, time.UTC), true},
		{"2024-03-01 10:20:30", time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC), true},
		{"2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"not a date", time.Time{}, false},
	}

	for _, tt := range tests {
		got := Date(tt.in)
		if !tt.ok {
			if got != nil {
				t.Errorf("Date(%q) = %v, want nil", tt.in, got)
			}
			continue
		}
		if got == nil || !got.Equal(tt.want) {
			t.Errorf("Date(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := FirstNonEmpty("", "  ", "b", "c"); got != "b" {
		t.Errorf("FirstNonEmpty() = %q, want %q", got, "b")
	}
	if got := FirstNonEmpty(); got != "" {
		t.Errorf("FirstNonEmpty() = %q, want empty", got)
	}
}
