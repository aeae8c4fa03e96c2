package pagination

import (
	"net/url"
	"testing"
)

func TestCalculate_Defaults(t *testing.T) {
	o := Calculate(map[string]string{})

	if o.Page != 1 || o.Limit != 10 || o.Skip != 0 {
		t.Errorf("unexpected paging defaults %+v", o)
	}
	if o.SortBy != "createdAt" || o.SortOrder != "desc" {
		t.Errorf("unexpected ordering defaults %+v", o)
	}
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name      string
		raw       map[string]string
		wantPage  int
		wantLimit int
		wantSkip  int
		wantOrder string
	}{
		{"third page", map[string]string{"page": "3", "limit": "20"}, 3, 20, 40, "desc"},
		{"non numeric", map[string]string{"page": "abc", "limit": "x"}, 1, 10, 0, "desc"},
		{"negative", map[string]string{"page": "-2", "limit": "0"}, 1, 10, 0, "desc"},
		{"capped limit", map[string]string{"limit": "500"}, 1, MaxLimit, 0, "desc"},
		{"ascending", map[string]string{"sortOrder": "ASC"}, 1, 10, 0, "asc"},
		{"bogus order", map[string]string{"sortOrder": "sideways"}, 1, 10, 0, "desc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := Calculate(tt.raw)
			if o.Page != tt.wantPage || o.Limit != tt.wantLimit || o.Skip != tt.wantSkip || o.SortOrder != tt.wantOrder {
				t.Errorf("got %+v", o)
			}
		})
	}
}

func TestPick(t *testing.T) {
	q := url.Values{}
	q.Set("page", "2")
	q.Set("email", "a@b.c")
	q.Set("password", "secret")
	q.Set("gender", "  ")

	got := Pick(q, "email", "gender", "page")
	if len(got) != 2 {
		t.Fatalf("expected 2 keys, got %v", got)
	}
	if got["email"] != "a@b.c" || got["page"] != "2" {
		t.Errorf("unexpected picked values %v", got)
	}
	if _, ok := got["password"]; ok {
		t.Error("non allow-listed key leaked")
	}
}

func TestColumn_AllowList(t *testing.T) {
	s := Sortable{"createdAt": "created_at", "name": "name"}

	if col := (Options{SortBy: "name"}).Column(s); col != "name" {
		t.Errorf("expected name, got %s", col)
	}
	if col := (Options{SortBy: "password; DROP TABLE users"}).Column(s); col != "created_at" {
		t.Errorf("expected fallback to created_at, got %s", col)
	}
	if col := (Options{SortBy: "x"}).Column(Sortable{"startDateTime": "start_date_time"}); col != "start_date_time" {
		t.Errorf("expected single column fallback, got %s", col)
	}
}

func TestNewMeta_TotalPagesRoundsUp(t *testing.T) {
	tests := []struct {
		total int64
		limit int
		want  int
	}{
		{0, 10, 0},
		{10, 10, 1},
		{11, 10, 2},
		{14, 10, 2},
		{15, 10, 2},
		{21, 10, 3},
	}
	for _, tt := range tests {
		m := NewMeta(Options{Page: 1, Limit: tt.limit}, tt.total)
		if m.TotalPages != tt.want {
			t.Errorf("total=%d limit=%d: expected %d pages, got %d", tt.total, tt.limit, tt.want, m.TotalPages)
		}
	}
}

func TestFromQuery(t *testing.T) {
	q, _ := url.ParseQuery("page=2&limit=5&sortBy=name&sortOrder=asc&email=x")
	o := FromQuery(q)
	if o.Skip != 5 || o.SortBy != "name" || o.SortOrder != "asc" {
		t.Errorf("unexpected options %+v", o)
	}
}
