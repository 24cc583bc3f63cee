package gymadmin_test

import (
	"os"
	"regexp"
	"testing"
)

func TestModuleDependencies(t *testing.T) {
	goMod, err := os.ReadFile("go.mod")
	if err != nil {
		t.Fatalf("read go.mod: %v", err)
	}

	for _, module := range []string{
		"github.com/simp-lee/cache",
		"github.com/simp-lee/jwt",
		"github.com/simp-lee/logger",
		"github.com/simp-lee/pagination",
		"github.com/simp-lee/rbac",
		"golang.org/x/crypto",
	} {
		if !directRequire(string(goMod), module) {
			t.Errorf("go.mod does not require %s directly", module)
		}
	}

	for _, module := range []string{
		"github.com/golang-jwt/jwt/v5",
		"github.com/stretchr/testify",
	} {
		if directRequire(string(goMod), module) {
			t.Errorf("go.mod requires %s directly", module)
		}
	}
}

func TestDirectRequire(t *testing.T) {
	fixture := `module example.com/demo

go 1.25.0

require (
	github.com/gin-gonic/gin v1.11.0
	github.com/golang-jwt/jwt/v5 v5.3.1 // indirect
)`
	tests := []struct {
		module string
		want   bool
	}{
		{"github.com/gin-gonic/gin", true},
		{"github.com/golang-jwt/jwt/v5", false},
		{"github.com/simp-lee/rbac", false},
		{"github.com/gin-gonic", false},
	}
	for _, tt := range tests {
		if got := directRequire(fixture, tt.module); got != tt.want {
			t.Errorf("directRequire(%s) = %v, want %v", tt.module, got, tt.want)
		}
	}
}

func directRequire(goMod, module string) bool {
	re := regexp.MustCompile(`(?m)^\s*` + regexp.QuoteMeta(module) + `\s+v\S+\s*$`)
	return re.MatchString(goMod)
}
