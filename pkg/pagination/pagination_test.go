package pagination

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestFromContext_Defaults(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	p := FromContext(c)

	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Page != DefaultPage {
		t.Errorf("expected default page %d, got %d", DefaultPage, p.Page)
	}
}

func TestFromContext_CustomValues(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?page=3&limit=25", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	p := FromContext(c)

	if p.Page != 3 {
		t.Errorf("expected page 3, got %d", p.Page)
	}
	if p.Limit != 25 {
		t.Errorf("expected limit 25, got %d", p.Limit)
	}
	if p.Offset() != 50 {
		t.Errorf("expected offset 50, got %d", p.Offset())
	}
}

func TestParse_Clamping(t *testing.T) {
	tests := []struct {
		name      string
		page      string
		limit     string
		wantPage  int
		wantLimit int
	}{
		{"limit above max", "1", "500", 1, MaxLimit},
		{"zero limit", "1", "0", 1, 1},
		{"negative limit", "1", "-5", 1, 1},
		{"zero page", "0", "10", 1, 10},
		{"negative page", "-2", "10", 1, 10},
		{"garbage falls back to defaults", "abc", "xyz", DefaultPage, DefaultLimit},
		{"whitespace is trimmed", " 2 ", " 7 ", 2, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Parse(tt.page, tt.limit)
			if p.Page != tt.wantPage || p.Limit != tt.wantLimit {
				t.Errorf("Parse(%q, %q) = %+v, want page=%d limit=%d", tt.page, tt.limit, p, tt.wantPage, tt.wantLimit)
			}
		})
	}
}

func TestNewMeta(t *testing.T) {
	tests := []struct {
		name      string
		params    Params
		total     int
		wantPages int
		wantPrev  bool
		wantNext  bool
	}{
		{"empty set", New(1, 10), 0, 0, false, false},
		{"single partial page", New(1, 10), 3, 1, false, false},
		{"exact multiple", New(1, 10), 20, 2, false, true},
		{"middle page", New(2, 10), 25, 3, true, true},
		{"last page", New(3, 10), 25, 3, true, false},
		{"past the end", New(9, 10), 25, 3, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMeta(tt.params, tt.total)
			if m.TotalPages != tt.wantPages {
				t.Errorf("TotalPages = %d, want %d", m.TotalPages, tt.wantPages)
			}
			if m.HasPrev != tt.wantPrev {
				t.Errorf("HasPrev = %v, want %v", m.HasPrev, tt.wantPrev)
			}
			if m.HasNext != tt.wantNext {
				t.Errorf("HasNext = %v, want %v", m.HasNext, tt.wantNext)
			}
			if m.Total != tt.total {
				t.Errorf("Total = %d, want %d", m.Total, tt.total)
			}
		})
	}
}

func TestNewPage_EncodesEmptyItems(t *testing.T) {
	page := NewPage[string](nil, New(4, 10), 12)
	b, err := json.Marshal(page)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	items, ok := decoded["items"].([]interface{})
	if !ok || len(items) != 0 {
		t.Errorf("expected items to be an empty array, got %v", decoded["items"])
	}
	for _, key := range []string{"total", "page", "limit", "totalPages", "hasPrev", "hasNext"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("expected key %q at top level, got %s", key, b)
		}
	}
	if decoded["hasNext"] != false {
		t.Errorf("expected hasNext false past the end, got %v", decoded["hasNext"])
	}
}

func TestOffset_Saturates(t *testing.T) {
	tests := []struct {
		name string
		p    Params
		want int
	}{
		{"first page", New(1, 100), 0},
		{"third page", New(3, 100), 200},
		{"max page", New(math.MaxInt, 100), math.MaxInt},
		{"max page limit one", New(math.MaxInt, 1), math.MaxInt - 1},
		{"parsed max page", Parse(strconv.Itoa(math.MaxInt), "100"), math.MaxInt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Offset(); got != tt.want {
				t.Errorf("offset = %d, want %d", got, tt.want)
			}
		})
	}
}
