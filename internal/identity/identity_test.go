package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve_CaseAndWhitespaceInsensitive(t *testing.T) {
	a := Resolve("Acme Inc", "Backend Engineer", "42")
	b := Resolve("acme inc", "Backend   Engineer", "42")
	assert.Equal(t, a, b)
	assert.Equal(t, "acme_inc_backend_engineer_42", a)
}

func TestResolve_UnicodeSpacesMatchASCII(t *testing.T) {
	ascii := Resolve("Acme Inc", "Backend Engineer", "42")
	nbsp := Resolve("Acme\u00a0Inc", "Backend\u00a0Engineer\u2009", "42")
	assert.Equal(t, ascii, nbsp)
	assert.Equal(t, "acme_inc_backend_engineer_42", nbsp)
}

func TestResolve_Deterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		assert.Equal(t, "globex_sde_ii_abc", Resolve("Globex", "SDE II", "abc"))
	}
}

func TestResolve_DifferentIDsDiffer(t *testing.T) {
	assert.NotEqual(t, Resolve("Acme", "Engineer", "1"), Resolve("Acme", "Engineer", "2"))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "unknown"},
		{"   ", "unknown"},
		{"!!!", "unknown"},
		{"  Acme, Inc. ", "acme_inc"},
		{"Sr. Engineer (C++/Go)", "sr_engineer_cgo"},
		{"Data\tEngineer\nII", "data_engineer_ii"},
		{"already_snake", "already_snake"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "Normalize(%q)", tt.in)
	}
}

func TestResolve_AbsentFieldsUsePlaceholder(t *testing.T) {
	assert.Equal(t, "unknown_unknown_7", Resolve("", "", "7"))
}
