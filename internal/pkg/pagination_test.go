package pkg

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/simp-lee/gymadmin/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func parseQuery(rawQuery string) domain.PageRequest {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/coaches?"+rawQuery, nil)
	return ParsePageRequest(c)
}

func TestParsePageRequest(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  domain.PageRequest
	}{
		{
			name:  "defaults",
			query: "",
			want:  domain.PageRequest{Page: 1, PageSize: 10, Sort: "id:desc", Filter: map[string]string{}},
		},
		{
			name:  "everything set",
			query: "page=3&pageSize=50&sort=firstName:asc&search=++sara++&lang=ar&active=true&specialty__like=yoga",
			want: domain.PageRequest{Page: 3, PageSize: 50, Search: "sara", Sort: "firstName:asc",
				Filter: map[string]string{"active": "true", "specialty__like": "yoga"}},
		},
		{
			name:  "page_size alias",
			query: "page_size=25",
			want:  domain.PageRequest{Page: 1, PageSize: 25, Sort: "id:desc", Filter: map[string]string{}},
		},
		{
			name:  "pageSize wins over page_size",
			query: "page_size=25&pageSize=40",
			want:  domain.PageRequest{Page: 1, PageSize: 40, Sort: "id:desc", Filter: map[string]string{}},
		},
		{
			name:  "out of range numbers",
			query: "page=-2&pageSize=500",
			want:  domain.PageRequest{Page: 1, PageSize: 100, Sort: "id:desc", Filter: map[string]string{}},
		},
		{
			name:  "garbage numbers and blank sort",
			query: "page=two&page_size=abc&sort=+",
			want:  domain.PageRequest{Page: 1, PageSize: 10, Sort: "id:desc", Filter: map[string]string{}},
		},
		{
			name:  "empty filter values dropped",
			query: "gender=&level=beginner",
			want:  domain.PageRequest{Page: 1, PageSize: 10, Sort: "id:desc", Filter: map[string]string{"level": "beginner"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseQuery(tt.query); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ParsePageRequest() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

type coach struct {
	ID        uint
	FirstName string
	Specialty string
	Active    bool
}

func newCoachDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "coaches.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&coach{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })

	rows := []coach{
		{FirstName: "Sara", Specialty: "yoga", Active: true},
		{FirstName: "Omar", Specialty: "boxing", Active: true},
		{FirstName: "Lina", Specialty: "yoga", Active: false},
		{FirstName: "Adam", Specialty: "100% cardio", Active: true},
		{FirstName: "Maha", Specialty: "cross_fit", Active: true},
	}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	return db
}

func coachIDs(t *testing.T, db *gorm.DB, scopes ...func(*gorm.DB) *gorm.DB) []uint {
	t.Helper()
	var ids []uint
	if err := db.Model(&coach{}).Scopes(scopes...).Pluck("id", &ids).Error; err != nil {
		t.Fatalf("query: %v", err)
	}
	return ids
}

func TestSort(t *testing.T) {
	db := newCoachDB(t)
	allowed := []string{"id", "first_name", "specialty"}

	tests := []struct {
		sort string
		want []uint
	}{
		{"first_name:asc", []uint{4, 3, 5, 2, 1}},
		{"id:desc", []uint{5, 4, 3, 2, 1}},
		{"specialty:DESC", []uint{3, 1, 5, 2, 4}},
		{"specialty:asc", []uint{4, 2, 5, 1, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.sort, func(t *testing.T) {
			got := coachIDs(t, db, Sort(domain.PageRequest{Sort: tt.sort}, allowed))
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ids = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSort_IgnoresUnusableInput(t *testing.T) {
	allowed := []string{"first_name"}
	for _, sort := range []string{
		"active:asc",
		"first_name",
		"first_name:",
		"first_name:up",
		":asc",
		"first_name;DROP TABLE coaches--:asc",
	} {
		t.Run(sort, func(t *testing.T) {
			db := newCoachDB(t).Session(&gorm.Session{DryRun: true})
			stmt := db.Model(&coach{}).Scopes(Sort(domain.PageRequest{Sort: sort}, allowed)).Find(&[]coach{}).Statement
			if _, ordered := stmt.Clauses["ORDER BY"]; ordered {
				t.Fatalf("ORDER BY applied for %q: %s", sort, stmt.SQL.String())
			}
		})
	}
}

func TestFilter(t *testing.T) {
	db := newCoachDB(t)
	allowed := []string{"specialty", "active", "first_name"}

	tests := []struct {
		name   string
		filter map[string]string
		want   []uint
	}{
		{"exact", map[string]string{"specialty": "yoga"}, []uint{1, 3}},
		{"boolean", map[string]string{"active": "false"}, []uint{3}},
		{"combined", map[string]string{"specialty": "yoga", "active": "true"}, []uint{1}},
		{"substring", map[string]string{"first_name__like": "a"}, []uint{1, 2, 3, 4, 5}},
		{"percent is literal", map[string]string{"specialty__like": "0%"}, []uint{4}},
		{"underscore is literal", map[string]string{"specialty__like": "s_f"}, []uint{5}},
		{"unknown key ignored", map[string]string{"password": "x", "active": "false"}, []uint{3}},
		{"injection key ignored", map[string]string{"active OR 1=1": "x"}, []uint{1, 2, 3, 4, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := coachIDs(t, db, Filter(domain.PageRequest{Filter: tt.filter}, allowed), Sort(domain.PageRequest{Sort: "id:asc"}, []string{"id"}))
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ids = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSearch(t *testing.T) {
	db := newCoachDB(t)
	byID := Sort(domain.PageRequest{Sort: "id:asc"}, []string{"id"})

	tests := []struct {
		name   string
		search string
		fields []string
		want   []uint
	}{
		{"any field", "in", []string{"first_name", "specialty"}, []uint{2, 3}},
		{"empty term", "", []string{"first_name"}, []uint{1, 2, 3, 4, 5}},
		{"no usable fields", "yoga", []string{"specialty;--"}, []uint{1, 2, 3, 4, 5}},
		{"wildcards are literal", "%", []string{"specialty"}, []uint{4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := coachIDs(t, db, Search(domain.PageRequest{Search: tt.search}, tt.fields), byID)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ids = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWindow(t *testing.T) {
	db := newCoachDB(t)
	byID := Sort(domain.PageRequest{Sort: "id:asc"}, []string{"id"})

	tests := []struct {
		offset, limit int
		want          []uint
	}{
		{0, 2, []uint{1, 2}},
		{4, 2, []uint{5}},
		{6, 2, nil},
	}
	for _, tt := range tests {
		got := coachIDs(t, db, byID, Window(tt.offset, tt.limit))
		if len(got) != len(tt.want) || (len(got) > 0 && !reflect.DeepEqual(got, tt.want)) {
			t.Errorf("offset %d limit %d = %v, want %v", tt.offset, tt.limit, got, tt.want)
		}
	}
}

func TestPaginate(t *testing.T) {
	db := newCoachDB(t)
	byID := Sort(domain.PageRequest{Sort: "id:asc"}, []string{"id"})
	load := func(_ context.Context, offset, limit int) ([]uint, error) {
		return coachIDs(t, db, byID, Window(offset, limit)), nil
	}

	tests := []struct {
		name       string
		page, size int
		wantPage   int
		want       []uint
	}{
		{"first page", 1, 2, 1, []uint{1, 2}},
		{"short last page", 3, 2, 3, []uint{5}},
		{"past the end clamps", 4, 2, 3, []uint{5}},
		{"unset numbers use one", 0, 0, 1, []uint{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Paginate(context.Background(), domain.PageRequest{Page: tt.page, PageSize: tt.size}, 5, load)
			if err != nil {
				t.Fatalf("Paginate: %v", err)
			}
			if got.CurrentPage != tt.wantPage || !reflect.DeepEqual(got.Items, tt.want) {
				t.Fatalf("page %d items %v, want page %d items %v", got.CurrentPage, got.Items, tt.wantPage, tt.want)
			}
		})
	}
}

func TestPaginate_LoadError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Paginate(context.Background(), domain.PageRequest{Page: 1, PageSize: 10}, 3,
		func(context.Context, int, int) ([]uint, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want it to wrap boom", err)
	}
}

func TestNewPageResult(t *testing.T) {
	tests := []struct {
		total     int64
		pageSize  int
		wantPages int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{20, 10, 2},
		{25, 10, 3},
		{100, 100, 1},
	}
	for _, tt := range tests {
		p, err := Paginate(context.Background(), domain.PageRequest{Page: 1, PageSize: tt.pageSize}, tt.total,
			func(context.Context, int, int) ([]coach, error) { return nil, nil })
		if err != nil {
			t.Fatalf("Paginate: %v", err)
		}
		got := NewPageResult(p)
		if got.TotalPages != tt.wantPages {
			t.Errorf("total %d size %d: TotalPages = %d, want %d", tt.total, tt.pageSize, got.TotalPages, tt.wantPages)
		}
		if got.Items == nil || got.Total != tt.total || got.Page != 1 || got.PageSize != tt.pageSize {
			t.Errorf("result = %+v", got)
		}
	}
}
